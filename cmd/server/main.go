package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interview-pipeline/internal/interview"
	"interview-pipeline/internal/platform/config"
	"interview-pipeline/internal/platform/logger"
	"interview-pipeline/internal/platform/metrics"
	"interview-pipeline/internal/platform/objectstore"
	"interview-pipeline/internal/platform/realtime"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8011")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	uploadTimeout := config.GetEnvDuration("UPLOAD_TIMEOUT", interview.DefaultUploadTimeout)
	rosterFile := config.GetEnv("ROSTER_FILE", "roster.json")

	log := logger.New(logLevel, logFormat)

	roster, err := interview.NewFileRoster(rosterFile)
	if err != nil {
		log.Error("load roster", "file", rosterFile, "error", err)
		os.Exit(1)
	}

	objects, err := objectstore.New(context.Background(), objectstore.Config{
		Endpoint:  config.GetEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: config.GetEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: config.GetEnv("MINIO_SECRET_KEY", "minioadmin"),
		Bucket:    config.GetEnv("MINIO_BUCKET", "interview-recordings"),
		UseSSL:    config.GetEnvBool("MINIO_USE_SSL", false),
		PublicURL: config.GetEnv("MINIO_PUBLIC_URL", "http://localhost:9000"),
	})
	if err != nil {
		log.Error("object store init", "error", err)
		os.Exit(1)
	}

	apiKey := config.GetEnv("OPENAI_API_KEY", "")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY missing")
		os.Exit(1)
	}
	broker := realtime.NewSessionClient(apiKey, config.GetEnv("REALTIME_MODEL", "gpt-4o-realtime-preview"))

	registry := interview.NewRegistry(roster)
	recorder := interview.NewLocalRecorder()
	svc := interview.NewService(registry, objects, recorder, broker, uploadTimeout)
	met := metrics.New()
	h := interview.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveAttempts(registry.ActiveAttemptCount()) }).ServeHTTP(w, r)
	})
	r.Group(h.Routes)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"roster_file", rosterFile,
		"upload_timeout", uploadTimeout.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
