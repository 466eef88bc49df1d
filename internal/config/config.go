package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
)

// Config holds the pipeline's closed configuration-key set (SPEC_FULL.md
// §6) plus the ambient keys that select which optional domain-stack
// backend is active (§6.1); the two are kept in separate structs so the
// closed set's shape is visible at a glance.
type Config struct {
	Core Core `yaml:"core"`

	// Optional backends. None of these change core semantics, only which
	// mirror/index/limiter implementation is wired in.
	Redis   RedisConfig   `yaml:"redis"`
	Neo4j   Neo4jConfig   `yaml:"neo4j"`
	StatsDB StatsDBConfig `yaml:"stats_db"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`

	// APIKey is never written by Save; it is resolved at Load time from
	// the environment, then the OS keyring, and is held only in memory.
	APIKey string `yaml:"-"`
}

// Core is exactly the closed configuration-key set of SPEC_FULL.md §6.
type Core struct {
	StorageRoot        string  `yaml:"storage_root"`
	ModelId             string `yaml:"model_id"`
	VisionModelId       string `yaml:"vision_model_id"`
	CaseType            string `yaml:"case_type"`
	AIResolveEntities   bool    `yaml:"ai_resolve_entities"`
	ChunkThreshold      int     `yaml:"chunk_threshold"`
	ChunkSize           int     `yaml:"chunk_size"`
	SequenceWindowDays  int     `yaml:"sequence_window_days"`
	GapThresholdDays    int     `yaml:"gap_threshold_days"`
	MaxWorkers          int     `yaml:"max_workers"`
	LLMTimeoutSeconds   int     `yaml:"llm_timeout_s"`
	LLMMaxRetries       int     `yaml:"llm_max_retries"`
}

type RedisConfig struct {
	URL string `yaml:"url"` // empty disables the shared limiter (§5.2)
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"` // empty disables the correlation graph mirror
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type StatsDBConfig struct {
	DSN string `yaml:"dsn"` // empty disables `storage stats`; scheme selects driver
}

type CacheConfig struct {
	Directory string        `yaml:"directory"`
	TTL       time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	JSONFormat bool   `yaml:"json_format"`
}

// Default returns the default configuration, matching SPEC_FULL.md §4's
// stated defaults (chunk_threshold=50, chunk_size=30, sequence_window_days
// =7, gap_threshold_days=7, max_workers in [4,8], llm_timeout_s=120,
// llm_max_retries=3).
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Core: Core{
			StorageRoot:        filepath.Join(homeDir, ".evidence-toolkit", "store"),
			ModelId:            "gpt-4o-mini",
			VisionModelId:      "gpt-4o-mini",
			CaseType:           "generic",
			AIResolveEntities:  false,
			ChunkThreshold:     50,
			ChunkSize:          30,
			SequenceWindowDays: 7,
			GapThresholdDays:   7,
			MaxWorkers:         4,
			LLMTimeoutSeconds:  120,
			LLMMaxRetries:      3,
		},
		Neo4j: Neo4jConfig{Database: "neo4j"},
		Cache: CacheConfig{
			Directory: filepath.Join(homeDir, ".evidence-toolkit", "cache"),
			TTL:       5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load loads configuration from file, environment, and (for the API key)
// the OS keyring, in that precedence order (env wins). path may be empty,
// in which case standard search locations are used.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("core", cfg.Core)
	v.SetDefault("redis", cfg.Redis)
	v.SetDefault("neo4j", cfg.Neo4j)
	v.SetDefault("stats_db", cfg.StatsDB)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("log", cfg.Log)

	v.SetEnvPrefix("EVIDENCE_TOOLKIT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".evidence-toolkit")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".evidence-toolkit"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, evterrors.ConfigurationErrorf("failed to read config: %v", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, evterrors.ConfigurationErrorf("failed to unmarshal config: %v", err)
	}

	applyEnvOverrides(cfg)

	if err := resolveAPIKey(cfg); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, evterrors.ConfigurationError("no LLM provider API key found in EVIDENCE_TOOLKIT_API_KEY or the OS keyring; run 'evidence-toolkit configure' to store one")
	}
	if cfg.Core.StorageRoot == "" {
		return nil, evterrors.ConfigurationError("storage_root must not be empty")
	}

	return cfg, nil
}

func loadEnvFiles() {
	envFiles := []string{".env.local", ".env", ".env.example"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".evidence-toolkit", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// resolveAPIKey applies the precedence described in SPEC_FULL.md §6
// Environment: env var wins, then keyring.
func resolveAPIKey(cfg *Config) error {
	if key := os.Getenv("EVIDENCE_TOOLKIT_API_KEY"); key != "" {
		cfg.APIKey = key
		return nil
	}
	km := NewKeyringManager()
	if km.IsAvailable() {
		key, err := km.GetAPIKey()
		if err != nil {
			return evterrors.ConfigurationErrorf("failed to read keyring: %v", err)
		}
		cfg.APIKey = key
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EVIDENCE_TOOLKIT_STORAGE_ROOT"); v != "" {
		cfg.Core.StorageRoot = expandPath(v)
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_MODEL_ID"); v != "" {
		cfg.Core.ModelId = v
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_VISION_MODEL_ID"); v != "" {
		cfg.Core.VisionModelId = v
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_CASE_TYPE"); v != "" {
		cfg.Core.CaseType = v
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_AI_RESOLVE_ENTITIES"); v != "" {
		cfg.Core.AIResolveEntities = v == "true"
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_CHUNK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Core.ChunkThreshold = n
		}
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Core.ChunkSize = n
		}
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Core.MaxWorkers = n
		}
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_LLM_TIMEOUT_S"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Core.LLMTimeoutSeconds = n
		}
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Core.LLMMaxRetries = n
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USERNAME"); v != "" {
		cfg.Neo4j.Username = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_STATS_DB_DSN"); v != "" {
		cfg.StatsDB.DSN = v
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_CACHE_DIR"); v != "" {
		cfg.Cache.Directory = expandPath(v)
	}
	if v := os.Getenv("EVIDENCE_TOOLKIT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save persists only the non-secret subset of the configuration — the API
// key is never written to a file that might be committed or shared.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("core", c.Core)
	v.Set("redis", c.Redis)
	v.Set("neo4j", Neo4jConfig{URI: c.Neo4j.URI, Username: c.Neo4j.Username, Database: c.Neo4j.Database})
	v.Set("stats_db", c.StatsDB)
	v.Set("cache", c.Cache)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
