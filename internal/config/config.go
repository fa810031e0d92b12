package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API         APIConfig
	Explorer    ExplorerConfig
	Aggregation AggregationConfig
	UI          UIConfig
	Log         LogConfig
	Journal     JournalConfig
	Download    DownloadConfig
}

// APIConfig locates the registry service.
type APIConfig struct {
	URL           string
	Timeout       time.Duration
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

// ExplorerConfig builds display-only ledger links.
type ExplorerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Network string
}

// AggregationConfig holds aggregation request settings.
type AggregationConfig struct {
	ResyncDelay time.Duration `mapstructure:"resync_delay"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string `mapstructure:"date_format"`
	Timezone   string
}

// LogConfig holds zap settings.
type LogConfig struct {
	Path  string
	Level string
}

// JournalConfig holds the submission journal location.
type JournalConfig struct {
	Path string
}

// DownloadConfig controls where fetched artifacts are written.
type DownloadConfig struct {
	Dir string
}

// DefaultAPIURL is the local development registry.
const DefaultAPIURL = "http://localhost:5000"

// New returns a viper instance with defaults, config file lookup and env bindings
// applied but not yet read. Flags may be bound to it before calling Read.
func New() *viper.Viper {
	home := os.Getenv("HOME")
	v := viper.New()

	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.upload_timeout", 10*time.Minute)
	v.SetDefault("explorer.base_url", "https://explorer.shimmer.network")
	v.SetDefault("explorer.network", "shimmer-testnet")
	v.SetDefault("aggregation.resync_delay", 15*time.Second)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "modelhub", "modelhub.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("journal.path", filepath.Join(home, ".local", "share", "modelhub", "journal.db"))
	v.SetDefault("download.dir", ".")

	v.SetConfigType("toml")

	v.SetEnvPrefix("MODELHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("api.url", "MODELHUB_API_URL", "API_URL")
	return v
}

// Read loads .env, then resolves the config file (explicit path,
// $MODELHUB_CONFIG, or ~/.config/modelhub/config.toml) and unmarshals v.
// Env var overrides use prefix MODELHUB_; the bare API_URL variable is
// honoured as well.
func Read(v *viper.Viper, cfgPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if cfgPath == "" {
		cfgPath = os.Getenv("MODELHUB_CONFIG")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "modelhub"))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.API.URL = strings.TrimRight(strings.TrimSpace(c.API.URL), "/")
	if c.API.URL == "" {
		c.API.URL = DefaultAPIURL
	}
	return c, nil
}

// Location resolves the configured timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.UI.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// Path returns where Save writes when no explicit path is given.
func Path() string {
	if path := os.Getenv("MODELHUB_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "modelhub", "config.toml")
}

// Save writes cfg to path (Path() when empty), creating the directory if needed.
func Save(cfg Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.url", cfg.API.URL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("api.upload_timeout", cfg.API.UploadTimeout.String())
	v.Set("explorer.base_url", cfg.Explorer.BaseURL)
	v.Set("explorer.network", cfg.Explorer.Network)
	v.Set("aggregation.resync_delay", cfg.Aggregation.ResyncDelay.String())
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("journal.path", cfg.Journal.Path)
	v.Set("download.dir", cfg.Download.Dir)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
