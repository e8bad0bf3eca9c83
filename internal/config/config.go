// Package config loads runtime settings from the environment, an optional
// .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// Keys are matched case-insensitively against environment variables
// (DATABASE_URL, PORT, ...) and config.yaml entries.
const (
	KeyPort              = "port"
	KeyDatabaseURL       = "database_url"
	KeyDBMaxOpenConns    = "db_max_open_conns"
	KeyDBMaxIdleConns    = "db_max_idle_conns"
	KeyDBConnMaxLifetime = "db_conn_max_lifetime"
	KeyDBLogLevel        = "db_log_level"
	KeyAutoMigrate       = "auto_migrate"
)

const (
	configFileName = "config"
	configFileType = "yaml"
)

var validLogLevels = []string{"silent", "error", "warn", "info"}

type Config struct {
	Port              int
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBLogLevel        string
	AutoMigrate       bool
}

// New returns a viper instance with defaults applied and environment
// lookup enabled. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyDBMaxOpenConns, 100)
	v.SetDefault(KeyDBMaxIdleConns, 10)
	v.SetDefault(KeyDBConnMaxLifetime, time.Hour)
	v.SetDefault(KeyDBLogLevel, "warn")
	v.SetDefault(KeyAutoMigrate, true)
	v.AutomaticEnv()
	return v
}

// Load reads configFile (or config.yaml in the working directory when
// configFile is empty) into v and returns the resolved Config. A missing
// config.yaml is not an error; an explicitly named file must exist.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:              v.GetInt(KeyPort),
		DatabaseURL:       strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		DBMaxOpenConns:    v.GetInt(KeyDBMaxOpenConns),
		DBMaxIdleConns:    v.GetInt(KeyDBMaxIdleConns),
		DBConnMaxLifetime: v.GetDuration(KeyDBConnMaxLifetime),
		DBLogLevel:        strings.ToLower(v.GetString(KeyDBLogLevel)),
		AutoMigrate:       v.GetBool(KeyAutoMigrate),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("db_max_open_conns must be positive, got %d", c.DBMaxOpenConns)
	}
	if c.DBMaxIdleConns < 0 {
		return fmt.Errorf("db_max_idle_conns must not be negative, got %d", c.DBMaxIdleConns)
	}
	for _, lvl := range validLogLevels {
		if c.DBLogLevel == lvl {
			return nil
		}
	}
	return fmt.Errorf("db_log_level must be one of %s, got %q", strings.Join(validLogLevels, ", "), c.DBLogLevel)
}
