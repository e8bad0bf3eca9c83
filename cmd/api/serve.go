package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/repository"
	"github.com/Tomlord1122/todo-service/internal/server"
	"github.com/Tomlord1122/todo-service/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default command)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (env PORT, default 8080)")
	serveCmd.Flags().Bool("auto-migrate", true, "create the todos table on startup (env AUTO_MIGRATE)")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := v.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port")); err != nil {
		return err
	}
	if err := v.BindPFlag(config.KeyAutoMigrate, cmd.Flags().Lookup("auto-migrate")); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbService, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		log.Println("Running database auto-migration...")
		if err := dbService.Migrate(); err != nil {
			_ = dbService.Close()
			return fmt.Errorf("auto-migrate: %w", err)
		}
		log.Println("Database auto-migration complete.")
	}

	todoRepo := repository.NewGormTodoRepository(dbService.GetDB())
	todoService := service.NewTodoService(todoRepo, dbService)
	apiServer := server.NewServer(cfg.Port, todoService, dbService)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, done)

	log.Printf("Starting server on %s (%s)", apiServer.Addr, dbService.Dialect())
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = dbService.Close()
		return fmt.Errorf("HTTP server ListenAndServe error: %w", err)
	}

	<-done
	log.Println("Graceful shutdown complete.")
	return nil
}

func gracefulShutdown(apiServer *http.Server, dbService database.Service, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight requests get 5 seconds to finish.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Closing database connection pool...")
	if err := dbService.Close(); err != nil {
		log.Printf("Error closing database connection pool: %v", err)
	} else {
		log.Println("Database connection pool closed.")
	}

	log.Println("Server exiting")
	done <- true
}
