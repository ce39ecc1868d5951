package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	QuickBooks QuickBooksConfig `mapstructure:"quickbooks"`
	Database   DatabaseConfig   `mapstructure:"database"`
	UI         UIConfig         `mapstructure:"ui"`
}

// QuickBooksConfig holds API credentials and environment selection.
type QuickBooksConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Environment  string `mapstructure:"environment"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

// IsSandbox reports whether the sandbox API should be used.
func (c QuickBooksConfig) IsSandbox() bool { return c.Environment == "sandbox" }

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// EASYCAT_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("quickbooks.client_id", "")
	v.SetDefault("quickbooks.client_secret", "")
	v.SetDefault("quickbooks.environment", "sandbox")
	v.SetDefault("quickbooks.redirect_uri", "http://localhost:8085/callback")
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "easycat", "easycat.db"))
	v.SetDefault("ui.date_format", "02/01/2006")
	v.SetDefault("ui.currency_symbol", "$")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("EASYCAT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "easycat"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("EASYCAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory
// if needed. The client secret lands in plain text; prefer env vars.
func Save(cfg Config) error {
	path := os.Getenv("EASYCAT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "easycat", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("quickbooks.client_id", cfg.QuickBooks.ClientID)
	v.Set("quickbooks.client_secret", cfg.QuickBooks.ClientSecret)
	v.Set("quickbooks.environment", cfg.QuickBooks.Environment)
	v.Set("quickbooks.redirect_uri", cfg.QuickBooks.RedirectURI)
	v.Set("database.path", cfg.Database.Path)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
