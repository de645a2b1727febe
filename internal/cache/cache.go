// Package cache tracks which article URLs have already been ingested.
// Membership in this set is the only de-duplication the pipeline does:
// an article re-published under a new URL is ingested again.
package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set is a persisted set of ingested URLs. The pipeline loads it once at the
// start of a run, mutates it in memory, and saves it at the end. Last write
// wins; a single ingestion process at a time is assumed.
type Set interface {
	Load(ctx context.Context) error
	Contains(url string) bool
	Add(url string)
	Save(ctx context.Context) error
	Len() int
}

// FileSet persists the URL set as a line-delimited text file.
type FileSet struct {
	path string
	urls map[string]struct{}
}

func NewFileSet(path string) *FileSet {
	return &FileSet{path: path, urls: make(map[string]struct{})}
}

// Load reads the cache file. A missing file means an empty set.
func (s *FileSet) Load(_ context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening cache file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		url := strings.TrimSpace(scanner.Text())
		if url != "" {
			s.urls[url] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading cache file: %w", err)
	}
	return nil
}

func (s *FileSet) Contains(url string) bool {
	_, ok := s.urls[url]
	return ok
}

func (s *FileSet) Add(url string) {
	s.urls[url] = struct{}{}
}

func (s *FileSet) Len() int { return len(s.urls) }

// Save writes the full set back to disk, replacing the previous contents.
// Lines are sorted so the file diffs cleanly between runs.
func (s *FileSet) Save(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	urls := make([]string, 0, len(s.urls))
	for u := range s.urls {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, u := range urls {
		fmt.Fprintln(w, u)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
