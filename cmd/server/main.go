// Command server is a thin wrapper equivalent to "peerctl serve",
// kept for parity with the teacher's cmd/server entrypoint naming.
// Configuration and the data document path come from environment
// variables instead of peerctl's cobra flags, matching the teacher's
// getEnv convention.
package main

import (
	"log"
	"log/slog"
	"os"

	"peereval/internal/app"
	"peereval/internal/config"
)

func main() {
	configPath := getEnv("CONFIG_PATH", "")
	dataPath := getEnv("DATA_PATH", "")
	dev := getEnv("DEV", "") != ""

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.System.DBPath = dbPath
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.Server.JWTSecret = jwtSecret
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var logger *slog.Logger
	if dev {
		logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	if err := app.Serve(cfg, dataPath, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
