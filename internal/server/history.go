package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// HistoryEntry is one recorded search, newest first in the log.
type HistoryEntry struct {
	Query       string `json:"query"`
	Timestamp   string `json:"timestamp"`
	ResultCount int    `json:"result_count"`
	ElapsedMS   int64  `json:"elapsed_ms"`
}

// HistoryLog keeps the most recent searches in a JSON file for the UI.
// Recording is best effort: a write failure is logged, never surfaced to
// the search request that triggered it.
type HistoryLog struct {
	mu      sync.Mutex
	path    string
	limit   int
	entries []HistoryEntry
}

func NewHistoryLog(path string, limit int) (*HistoryLog, error) {
	h := &HistoryLog{path: path, limit: limit}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return h, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &h.entries); err != nil {
		// A corrupt history file should not keep the server down.
		log.Printf("discarding unreadable history file %s: %v", path, err)
		h.entries = nil
	}
	return h, nil
}

// Record prepends an entry, trims to the limit, and persists.
func (h *HistoryLog) Record(query string, resultCount int, elapsedMS int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := HistoryEntry{
		Query:       query,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ResultCount: resultCount,
		ElapsedMS:   elapsedMS,
	}
	h.entries = append([]HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
	h.save()
}

// Entries returns a copy of the log, newest first.
func (h *HistoryLog) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear empties the log and persists the empty state.
func (h *HistoryLog) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.save()
}

func (h *HistoryLog) save() {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		log.Printf("saving history: %v", err)
		return
	}
	data, err := json.MarshalIndent(h.entries, "", "  ")
	if err != nil {
		log.Printf("saving history: %v", err)
		return
	}
	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		log.Printf("saving history: %v", err)
	}
}

type HistoryHandler struct {
	Log *HistoryLog
}

func (h *HistoryHandler) Register(e *echo.Echo) {
	e.GET("/history", h.list)
	e.DELETE("/history", h.clear)
}

func (h *HistoryHandler) list(c echo.Context) error {
	entries := h.Log.Entries()
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *HistoryHandler) clear(c echo.Context) error {
	h.Log.Clear()
	return c.NoContent(http.StatusNoContent)
}
