package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/zeroshot-api/internal/config"
	"github.com/Brownie44l1/zeroshot-api/internal/handlers"
	"github.com/Brownie44l1/zeroshot-api/internal/logger"
	"github.com/Brownie44l1/zeroshot-api/internal/model"
	"github.com/Brownie44l1/zeroshot-api/internal/remote"
	"github.com/Brownie44l1/zeroshot-api/internal/router"
	"github.com/Brownie44l1/zeroshot-api/internal/service"
	"github.com/Brownie44l1/zeroshot-api/internal/tokenizer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CLASSIFIER_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	log.Info("Loading models",
		zap.String("text_backend", cfg.Text.Backend),
		zap.String("text_model", cfg.Text.ModelPath),
		zap.String("image_model", cfg.Image.ModelPath),
	)

	models, err := model.NewServer(cfg, tokenizer.FromFile)
	if err != nil {
		return fmt.Errorf("failed to initialize models: %w", err)
	}
	defer func() {
		if err := models.Close(); err != nil {
			log.Warn("Failed to release models", zap.Error(err))
		}
	}()

	var text service.TextClassifier
	var textBackend string
	if cfg.Text.Backend == config.BackendRemote {
		text = remote.NewClient(cfg.Text.Remote.BaseURL, cfg.Text.Remote.Model, cfg.Text.Remote.Token, cfg.Text.Remote.Timeout)
		textBackend = "remote:" + cfg.Text.Remote.Model
	} else {
		text = models.Text
		textBackend = "onnx:" + cfg.Text.ModelPath
	}

	classifier := service.NewClassifier(text, models.Image)
	h := handlers.NewHandler(classifier, log, map[string]string{
		"text":  textBackend,
		"image": "onnx:" + cfg.Image.ModelPath,
	}, cfg.Server.MaxUploadBytes)

	r := router.Setup(h, log, cfg.Server.MaxUploadBytes)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
