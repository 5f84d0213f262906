// ABOUTME: Centralized configuration for the agenda pipeline
// ABOUTME: Layers defaults, an optional YAML file and environment variables, then validates
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	BackendFlat   = "flat"
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
)

var (
	knownTasks      = []string{"note", "schedule"}
	knownOperations = []string{"create", "update", "delete", "search"}
)

// Config holds all configuration for the agenda system
type Config struct {
	// Language model settings
	OpenAIKey         string        `yaml:"openai_api_key"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	ChatModel         string        `yaml:"chat_model"`
	IntentModel       string        `yaml:"intent_model"`
	EmbeddingProvider string        `yaml:"embedding_provider"`
	EmbeddingModel    string        `yaml:"embedding_model"`
	GenAIKey          string        `yaml:"genai_api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`

	// Intent resolution
	TaskTypes          []string `yaml:"task_types"`
	OperationTypes     []string `yaml:"operation_types"`
	ValidThreshold     int      `yaml:"valid_threshold"`
	MaxAttempts        int      `yaml:"max_attempts"`
	SemanticSearchK    int      `yaml:"semantic_search_k"`
	RelevanceThreshold float64  `yaml:"relevance_threshold"`

	// Storage
	DBPath             string `yaml:"db_path"`
	IndexBackend       string `yaml:"index_backend"`
	IndexPath          string `yaml:"index_path"`
	ReindexConcurrency int    `yaml:"reindex_concurrency"`

	// Charm settings, used by the charm index backend
	CharmHost     string `yaml:"charm_host"`
	CharmDB       string `yaml:"charm_db"`
	CharmAutoSync bool   `yaml:"charm_auto_sync"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := filepath.Join(xdg.DataHome, "agenda")
	return &Config{
		ChatModel:          "gpt-4o-mini",
		IntentModel:        "gpt-4o-mini",
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-3-small",
		Timeout:            30 * time.Second,
		MaxRetries:         3,
		RetryDelay:         2 * time.Second,
		TaskTypes:          slices.Clone(knownTasks),
		OperationTypes:     slices.Clone(knownOperations),
		ValidThreshold:     2,
		MaxAttempts:        5,
		SemanticSearchK:    5,
		RelevanceThreshold: 0.3,
		DBPath:             filepath.Join(dataDir, "agenda.db"),
		IndexBackend:       BackendSQLite,
		IndexPath:          filepath.Join(dataDir, "index.json"),
		ReindexConcurrency: 4,
		CharmHost:          "cloud.charm.sh",
		CharmDB:            "agenda",
		CharmAutoSync:      true,
	}
}

// Path returns the config file location: $AGENDA_CONFIG when set, otherwise
// agenda/config.yaml under the XDG config home.
func Path() string {
	if p := os.Getenv("AGENDA_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, "agenda", "config.yaml")
}

// Load reads configuration from the default file location and the environment
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom layers the YAML file at path (if it exists) and the environment
// over the defaults. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.ChatModel = getEnv("AGENDA_CHAT_MODEL", c.ChatModel)
	c.IntentModel = getEnv("AGENDA_INTENT_MODEL", c.IntentModel)
	c.EmbeddingProvider = getEnv("AGENDA_EMBEDDING_PROVIDER", c.EmbeddingProvider)
	c.EmbeddingModel = getEnv("AGENDA_EMBEDDING_MODEL", c.EmbeddingModel)
	c.GenAIKey = getEnv("GEMINI_API_KEY", c.GenAIKey)
	c.Timeout = getEnvDuration("OPENAI_TIMEOUT", c.Timeout)
	c.MaxRetries = getEnvInt("OPENAI_MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = getEnvDuration("OPENAI_RETRY_DELAY", c.RetryDelay)

	c.TaskTypes = getEnvList("AGENDA_TASK_TYPES", c.TaskTypes)
	c.OperationTypes = getEnvList("AGENDA_OPERATION_TYPES", c.OperationTypes)
	c.ValidThreshold = getEnvInt("AGENDA_VALID_THRESHOLD", c.ValidThreshold)
	c.MaxAttempts = getEnvInt("AGENDA_MAX_ATTEMPTS", c.MaxAttempts)
	c.SemanticSearchK = getEnvInt("AGENDA_SEARCH_K", c.SemanticSearchK)
	c.RelevanceThreshold = getEnvFloat("AGENDA_RELEVANCE_THRESHOLD", c.RelevanceThreshold)

	c.DBPath = getEnv("AGENDA_DB_PATH", c.DBPath)
	c.IndexBackend = getEnv("AGENDA_INDEX_BACKEND", c.IndexBackend)
	c.IndexPath = getEnv("AGENDA_INDEX_PATH", c.IndexPath)
	c.ReindexConcurrency = getEnvInt("AGENDA_REINDEX_CONCURRENCY", c.ReindexConcurrency)

	c.CharmHost = getEnv("CHARM_HOST", c.CharmHost)
	c.CharmDB = getEnv("CHARM_DB", c.CharmDB)
	c.CharmAutoSync = getEnvBool("CHARM_AUTO_SYNC", c.CharmAutoSync)
}

func (c *Config) Validate() error {
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("relevance_threshold must be 0-1, got %f", c.RelevanceThreshold)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be 0-10, got %d", c.MaxRetries)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.ValidThreshold < 1 || c.ValidThreshold > c.MaxAttempts {
		return fmt.Errorf("valid_threshold must be 1-%d, got %d", c.MaxAttempts, c.ValidThreshold)
	}
	if c.SemanticSearchK < 1 {
		return fmt.Errorf("semantic_search_k must be positive, got %d", c.SemanticSearchK)
	}
	if c.ReindexConcurrency < 1 {
		return fmt.Errorf("reindex_concurrency must be positive, got %d", c.ReindexConcurrency)
	}
	if err := checkLabels("task_types", c.TaskTypes, knownTasks); err != nil {
		return err
	}
	if err := checkLabels("operation_types", c.OperationTypes, knownOperations); err != nil {
		return err
	}

	switch c.IndexBackend {
	case BackendFlat, BackendSQLite, BackendCharm:
	default:
		return fmt.Errorf("index_backend must be one of flat, sqlite, charm; got %q", c.IndexBackend)
	}
	switch c.EmbeddingProvider {
	case ProviderOpenAI, ProviderGenAI:
	default:
		return fmt.Errorf("embedding_provider must be openai or genai; got %q", c.EmbeddingProvider)
	}
	if c.DBPath == "" {
		return errors.New("db_path must be set")
	}
	if c.IndexBackend == BackendFlat && c.IndexPath == "" {
		return errors.New("index_path must be set for the flat backend")
	}
	return nil
}

func checkLabels(name string, labels, known []string) error {
	if len(labels) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	for _, l := range labels {
		if !slices.Contains(known, l) {
			return fmt.Errorf("%s: unknown label %q", name, l)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(strings.ToLower(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
