package config

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppName names the per-user config and data directory.
const AppName = "bookmarks-search"

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Bookmarks  BookmarksConfig  `yaml:"bookmarks" mapstructure:"bookmarks"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	DeepSearch DeepSearchConfig `yaml:"deep_search" mapstructure:"deep_search"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	History    HistoryConfig    `yaml:"history" mapstructure:"history"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the key-value store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// BookmarksConfig locates the browser bookmarks file.
type BookmarksConfig struct {
	File  string `yaml:"file" mapstructure:"file"`
	Watch bool   `yaml:"watch" mapstructure:"watch"`
}

// CacheConfig configures the page content cache.
type CacheConfig struct {
	MaxAgeHours int `yaml:"max_age_hours" mapstructure:"max_age_hours"`
	MaxMB       int `yaml:"max_mb" mapstructure:"max_mb"`
}

// MaxAge returns the entry lifetime.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

// MaxBytes returns the aggregate size ceiling.
func (c CacheConfig) MaxBytes() int {
	return c.MaxMB * 1024 * 1024
}

// FetchConfig configures page downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxKB       int     `yaml:"max_kb" mapstructure:"max_kb"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
}

// Timeout returns the per-request timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// JinaConfig holds Jina AI Reader settings. The reader is only used as a
// fallback when a key is set.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DeepSearchConfig seeds the deep-search settings of a fresh store.
type DeepSearchConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Format      string `yaml:"format" mapstructure:"format"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// BatchConfig seeds the batch settings of a fresh store.
type BatchConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	Size     int  `yaml:"size" mapstructure:"size"`
	DeepSize int  `yaml:"deep_size" mapstructure:"deep_size"`
	MaxBytes int  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// LLMConfig is the provider used when none has been saved.
type LLMConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	Model         string `yaml:"model" mapstructure:"model"`
	APIKey        string `yaml:"api_key" mapstructure:"api_key"`
	OllamaURL     string `yaml:"ollama_url" mapstructure:"ollama_url"`
	OllamaModel   string `yaml:"ollama_model" mapstructure:"ollama_model"`
	ProvidersFile string `yaml:"providers_file" mapstructure:"providers_file"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// HistoryConfig configures the search history log.
type HistoryConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and the BOOKMARKS_* environment.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, AppName))
	}

	v.SetEnvPrefix("BOOKMARKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("bookmarks.file", "")
	v.SetDefault("bookmarks.watch", true)
	v.SetDefault("cache.max_age_hours", 24)
	v.SetDefault("cache.max_mb", 50)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.max_kb", 500)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; bookmarks-search/1.0)")
	v.SetDefault("fetch.rate_per_host", 2.0)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("deep_search.enabled", false)
	v.SetDefault("deep_search.format", "text")
	v.SetDefault("deep_search.concurrency", 3)
	v.SetDefault("batch.enabled", true)
	v.SetDefault("batch.size", 50)
	v.SetDefault("batch.deep_size", 10)
	v.SetDefault("batch.max_bytes", 100000)
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.ollama_url", "")
	v.SetDefault("llm.ollama_model", "")
	v.SetDefault("llm.providers_file", "")
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("history.limit", 100)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*", "http://localhost:*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = defaultDataPath("store.db")
	}
	if cfg.Bookmarks.File == "" {
		cfg.Bookmarks.File = DefaultBookmarksFile()
	}

	return &cfg, nil
}

// Validate checks driver names and limits.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"sqlite", "postgres", "memory"}, c.Store.Driver) {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for postgres")
	}
	if c.DeepSearch.Format != "text" && c.DeepSearch.Format != "markdown" {
		return eris.Errorf("config: deep_search.format must be text or markdown, got %q", c.DeepSearch.Format)
	}

	positive := []struct {
		key string
		val int
	}{
		{"cache.max_age_hours", c.Cache.MaxAgeHours},
		{"cache.max_mb", c.Cache.MaxMB},
		{"fetch.timeout_secs", c.Fetch.TimeoutSecs},
		{"fetch.max_kb", c.Fetch.MaxKB},
		{"deep_search.concurrency", c.DeepSearch.Concurrency},
		{"batch.size", c.Batch.Size},
		{"batch.deep_size", c.Batch.DeepSize},
		{"batch.max_bytes", c.Batch.MaxBytes},
		{"llm.timeout_secs", c.LLM.TimeoutSecs},
		{"history.limit", c.History.Limit},
		{"server.port", c.Server.Port},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return eris.Errorf("config: %s must be positive, got %d", p.key, p.val)
		}
	}
	return nil
}

// DefaultBookmarksFile returns the default Chrome profile bookmarks path.
func DefaultBookmarksFile() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks")
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "Google", "Chrome", "User Data", "Default", "Bookmarks")
	default:
		return filepath.Join(home, ".config", "google-chrome", "Default", "Bookmarks")
	}
}

func defaultDataPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, AppName, name)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
