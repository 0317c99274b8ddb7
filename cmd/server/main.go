package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jo-hoe/imgcompressor/internal/backend"
	"github.com/jo-hoe/imgcompressor/internal/core"
)

// getConfigPath returns CONFIG_PATH, or config.yaml in the working directory
// when that file exists, or "" to run on defaults and environment only
func getConfigPath() string {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	configPath := filepath.Join(cwd, "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		return ""
	}
	return configPath
}

func main() {
	// Load configuration
	configPath := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		log.Printf("failed to load config from %q: %v", configPath, err)
		panic(err)
	}

	logger, logCloser := core.NewLogger(config.Log)
	slog.SetDefault(logger)

	server := backend.NewServer(config)
	apiService := backend.NewAPIService(config)
	apiService.SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		slog.Info("backend listening", "port", config.Port, "frontend_origin", config.FrontendOrigin)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := logCloser.Close(); err != nil {
		log.Printf("log file close error: %v", err)
	}
}
