package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the search system
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Store     StoreConfig     `mapstructure:"store"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Databases DatabasesConfig `mapstructure:"databases"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	HistoryFile  string `mapstructure:"history_file"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// Normalize applies defaults for unset server values.
func (s ServerConfig) Normalize() ServerConfig {
	if s.Address == "" {
		s.Address = ":8000"
	}
	if s.HistoryFile == "" {
		s.HistoryFile = "data/ui_search_history.json"
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = 50
	}
	return s
}

// EmbeddingConfig selects and configures the sentence-embedding provider.
// Ingestion and search must use the same provider and dimension, otherwise
// stored vectors and query vectors stop being comparable.
type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"` // openai or tei
	Dimension int           `mapstructure:"dimension"`
	OpenAI    OpenAIConfig  `mapstructure:"openai"`
	TEI       TEIConfig     `mapstructure:"tei"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig contains OpenAI embeddings API settings
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// TEIConfig points at a text-embeddings-inference server hosting a
// sentence-transformer model (all-MiniLM-L6-v2 by default).
type TEIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

func (e EmbeddingConfig) Normalize() EmbeddingConfig {
	if e.Provider == "" {
		e.Provider = "tei"
	}
	if e.Dimension <= 0 {
		e.Dimension = 384
	}
	if e.OpenAI.Model == "" {
		e.OpenAI.Model = "text-embedding-3-small"
	}
	if e.TEI.BaseURL == "" {
		e.TEI.BaseURL = "http://localhost:8080"
	}
	if e.Timeout <= 0 {
		e.Timeout = 30 * time.Second
	}
	return e
}

func (e EmbeddingConfig) Validate() error {
	switch e.Provider {
	case "openai":
		if e.OpenAI.APIKey == "" {
			return errors.New("embedding.openai.api_key is required for the openai provider")
		}
	case "tei":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
	return nil
}

// StoreConfig selects and configures the vector-store backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"` // pinecone or pgvector
	Index    string         `mapstructure:"index"`
	Pinecone PineconeConfig `mapstructure:"pinecone"`
}

// PineconeConfig contains Pinecone control- and data-plane settings.
type PineconeConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	ControlURL string        `mapstructure:"control_url"`
	IndexHost  string        `mapstructure:"index_host"`
	Cloud      string        `mapstructure:"cloud"`
	Region     string        `mapstructure:"region"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (s StoreConfig) Normalize() StoreConfig {
	if s.Backend == "" {
		s.Backend = "pinecone"
	}
	if s.Index == "" {
		s.Index = "gossip-semantic-search"
	}
	if s.Pinecone.ControlURL == "" {
		s.Pinecone.ControlURL = "https://api.pinecone.io"
	}
	if s.Pinecone.Cloud == "" {
		s.Pinecone.Cloud = "aws"
	}
	if s.Pinecone.Region == "" {
		s.Pinecone.Region = "us-east-1"
	}
	if s.Pinecone.Timeout <= 0 {
		s.Pinecone.Timeout = 30 * time.Second
	}
	return s
}

func (s StoreConfig) Validate() error {
	switch s.Backend {
	case "pinecone":
		if s.Pinecone.APIKey == "" {
			return errors.New("store.pinecone.api_key is required for the pinecone backend")
		}
	case "pgvector":
	default:
		return fmt.Errorf("unsupported store backend: %s", s.Backend)
	}
	return nil
}

// IngestConfig drives the feed ingestion pipeline.
type IngestConfig struct {
	// Feeds maps a category name to the feed URL it is pulled from. Every
	// article from a feed is stamped with that category.
	Feeds        map[string]string `mapstructure:"feeds"`
	CacheFile    string            `mapstructure:"cache_file"`
	CacheBackend string            `mapstructure:"cache_backend"` // file or redis
	Schedule     string            `mapstructure:"schedule"`      // cron spec for daemon mode
	FetchContent bool              `mapstructure:"fetch_content"`
	FeedTimeout  time.Duration     `mapstructure:"feed_timeout"`
}

func (i IngestConfig) Normalize() IngestConfig {
	if len(i.Feeds) == 0 {
		i.Feeds = DefaultFeeds()
	}
	if i.CacheFile == "" {
		i.CacheFile = "data/cached_urls.txt"
	}
	if i.CacheBackend == "" {
		i.CacheBackend = "file"
	}
	if i.FeedTimeout <= 0 {
		i.FeedTimeout = 30 * time.Second
	}
	return i
}

func (i IngestConfig) Validate() error {
	switch i.CacheBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("unsupported cache backend: %s", i.CacheBackend)
	}
	return nil
}

// DatabasesConfig contains optional backing-service connections.
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains connection settings for the pgvector backend
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string, preferring the explicit URL.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", errors.New("postgres not configured (databases.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains connection settings for the redis cache backend
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", host, port)
}

// DefaultFeeds returns the curated VSD/Public feed set indexed by category.
func DefaultFeeds() map[string]string {
	return map[string]string{
		"vsd_people":     "https://vsd.fr/actu-people/feed/",
		"vsd_tv":         "https://vsd.fr/tele/feed/",
		"vsd_company":    "https://vsd.fr/societe/feed/",
		"vsd_culture":    "https://vsd.fr/culture/feed/",
		"vsd_leisure":    "https://vsd.fr/loisirs/feed/",
		"public_news":    "https://www.public.fr/feed",
		"public_people":  "https://www.public.fr/people/feed",
		"public_tv":      "https://www.public.fr/tele/feed",
		"public_fashion": "https://www.public.fr/mode/feed",
		"public_royalty": "https://www.public.fr/people/familles-royales/feed",
	}
}

// LoadConfig reads configuration from a file plus GOSSIP_* environment
// variables. A missing config file is fine; malformed config is not.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Declared so AutomaticEnv can populate secrets without a config file.
	viper.SetDefault("embedding.openai.api_key", "")
	viper.SetDefault("store.pinecone.api_key", "")
	viper.SetDefault("store.pinecone.index_host", "")
	viper.SetDefault("databases.postgres.url", "")
	viper.SetDefault("databases.redis.host", "")
	viper.SetDefault("databases.redis.password", "")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("GOSSIP")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	config.Server = config.Server.Normalize()
	config.Embedding = config.Embedding.Normalize()
	config.Store = config.Store.Normalize()
	config.Ingest = config.Ingest.Normalize()

	if err := config.Embedding.Validate(); err != nil {
		panic(err)
	}
	if err := config.Store.Validate(); err != nil {
		panic(err)
	}
	if err := config.Ingest.Validate(); err != nil {
		panic(err)
	}

	return &config
}
