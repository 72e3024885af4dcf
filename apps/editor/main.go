package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tilsley/quill/apps/editor/internal/app"
	"github.com/tilsley/quill/apps/editor/internal/handler"
	"github.com/tilsley/quill/apps/editor/internal/platform/env"
	"github.com/tilsley/quill/apps/editor/internal/platform/telemetry"
	"github.com/tilsley/quill/apps/editor/internal/platform/validation"
	"github.com/tilsley/quill/apps/editor/schemas"
	"github.com/tilsley/quill/pkg/logging"
)

const serviceName = "quill-editor"

func main() {
	log := logging.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := env.Load(ctx)
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	// --- Observability ---

	tel, err := telemetry.New(ctx, telemetry.Options{Enabled: cfg.OTelEnabled, ServiceName: serviceName})
	if err != nil {
		log.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// --- Services ---

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("editor init failed", "error", err)
		os.Exit(1) //nolint:gocritic // nothing to flush yet
	}
	defer a.Close() //nolint:errcheck

	ctrl := a.NewController()
	defer ctrl.Close()

	// --- HTTP ---

	validator, err := validation.New(schemas.OpenAPISpec, log)
	if err != nil {
		log.Error("openapi validation middleware init failed", "error", err)
		return
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), validator)
	handler.RegisterRoutes(router, handler.Deps{
		Controller: ctrl,
		Config:     a.Config,
		Tokens:     a.Tokens,
		Whoami:     a.Whoami,
	}, log)

	// Loopback only: the API carries the user's token and local drafts.
	srv := &http.Server{
		Addr:              "127.0.0.1:" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
	}()

	log.Info("starting quill editor", "addr", srv.Addr, "backend", cfg.StoreBackend, "github", cfg.GitHubAPIURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
	}
}
