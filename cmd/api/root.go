package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/database"
)

var (
	flagConfigFile string
	v              = config.New()
)

var rootCmd = &cobra.Command{
	Use:          "todo-api",
	Short:        "HTTP service for creating, listing and completing todos",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfigFile, "config", "", "config file (default: ./config.yaml if present)")
	flags.String("database-url", "", "database connection string (env DATABASE_URL)")
	flags.String("db-log-level", "", "SQL log level: silent, error, warn or info (env DB_LOG_LEVEL)")
	bindFlag(v, config.KeyDatabaseURL, "database-url")
	bindFlag(v, config.KeyDBLogLevel, "db-log-level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func bindFlag(v *viper.Viper, key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(v, flagConfigFile)
}

func openDatabase(cfg *config.Config) (database.Service, error) {
	return database.New(database.Options{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:        cfg.DBLogLevel,
	})
}
