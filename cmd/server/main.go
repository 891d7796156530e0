package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"pharmacy-backend/internal/auth"
	"pharmacy-backend/internal/config"
	"pharmacy-backend/internal/http/router"
	"pharmacy-backend/internal/storage/sqlite"
	"pharmacy-backend/pkg/logging"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to yaml config file (optional)")
	flag.Parse()

	logging.Setup()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DB.Path)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	revoked := auth.NewRevocationList()

	r := router.Setup(store, jwtManager, revoked, router.Options{
		UploadDir:      cfg.Files.UploadDir,
		ExportPath:     cfg.Files.ExportPath,
		RequestTimeout: cfg.HTTPServer.RequestTimeout,
	}, slog.Default())

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      r,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	slog.Info("Server starting", "address", cfg.HTTPServer.Address, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
