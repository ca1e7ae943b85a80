// Package config loads newsdesk settings from a YAML file and the
// environment.
//
// Settings are resolved in three steps: the YAML file (optional), defaults
// for every unset value, then environment overrides using the variable names
// of the hosted services (OPENAI_APIKEY, AZURE_OPENAI_ENDPOINT, QDRANT_HOST
// and so on). Validate reports the first required setting that is still
// missing as "<NAME> not found".
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/newsdesk/archive"
	"github.com/poiesic/newsdesk/feed"
	"gopkg.in/yaml.v3"
)

// ErrMissingSetting is wrapped with the setting name when a required value is absent.
var ErrMissingSetting = errors.New("not found")

// Store backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
	BackendCosmos = "cosmos"
)

// Ingestion failure policies.
const (
	OnFailureContinue = "continue"
	OnFailureAbort    = "abort"
)

// Config holds all configuration for the application.
type Config struct {
	AI          AIConfig          `yaml:"ai"`
	Store       StoreConfig       `yaml:"store"`
	Collections CollectionsConfig `yaml:"collections"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	Query       QueryConfig       `yaml:"query"`
	Reembed     ReembedConfig     `yaml:"reembed"`
	Export      ExportConfig      `yaml:"export"`
	NewsFeeds   []feed.Feed       `yaml:"news_feeds"`
	BlogFeeds   []feed.Feed       `yaml:"blog_feeds"`
}

// AIConfig selects and configures the chat and embedding services.
type AIConfig struct {
	Provider           string `yaml:"provider"`
	Endpoint           string `yaml:"endpoint"`
	APIKey             string `yaml:"api_key"`
	ChatModel          string `yaml:"chat_model"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingCacheSize int    `yaml:"embedding_cache_size"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	KeyStrategy string `yaml:"key_strategy"`

	// badger
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`

	// qdrant
	QdrantHost   string `yaml:"qdrant_host"`
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	Dimension    int    `yaml:"dimension"`

	// cosmos
	CosmosConnectionString string `yaml:"cosmos_connection_string"`
	CosmosDatabase         string `yaml:"cosmos_database"`
}

// CollectionsConfig names the collection used for each purpose.
type CollectionsConfig struct {
	News     string `yaml:"news"`
	Queries  string `yaml:"queries"`
	UserData string `yaml:"user_data"`
	Feedback string `yaml:"feedback"`
	Team     string `yaml:"team"`
}

// IngestionConfig controls feed ingestion.
type IngestionConfig struct {
	Dedup          string `yaml:"dedup"`
	MissingLink    string `yaml:"missing_link"`
	OnFailure      string `yaml:"on_failure"`
	PerSourceLimit int    `yaml:"per_source_limit"`
	PoolSize       int    `yaml:"pool_size"`
	UserAgent      string `yaml:"user_agent"`
}

// QueryConfig controls search and answering.
type QueryConfig struct {
	Top               int     `yaml:"top"`
	MinScore          float32 `yaml:"min_score"`
	DisplayMinScore   float32 `yaml:"display_min_score"`
	FactsTop          int     `yaml:"facts_top"`
	HistorySize       int     `yaml:"history_size"`
	PromptTokenBudget int     `yaml:"prompt_token_budget"`
	Encoding          string  `yaml:"encoding"`
}

// ReembedConfig controls the reembed command.
type ReembedConfig struct {
	BatchSize         int     `yaml:"batch_size"`
	MaxRetries        int     `yaml:"max_retries"`
	RetryDelayMillis  int     `yaml:"retry_delay_ms"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ExportConfig controls the export command.
type ExportConfig struct {
	Directory string               `yaml:"directory"`
	Bucket    archive.BucketConfig `yaml:"bucket"`
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the config file at path, applies defaults and environment
// overrides from the process environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg, lookup)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Export.Directory = expandHome(cfg.Export.Directory)

	return &cfg, nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
