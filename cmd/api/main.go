package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/ingest/internal/config"
	"github.com/abduss/ingest/internal/content"
	"github.com/abduss/ingest/internal/logger"
	"github.com/abduss/ingest/internal/metrics"
	"github.com/abduss/ingest/internal/object"
	"github.com/abduss/ingest/internal/presigned"
	"github.com/abduss/ingest/internal/server"
	"github.com/abduss/ingest/internal/staging"
	"github.com/abduss/ingest/internal/storage"
	"github.com/abduss/ingest/internal/upload"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.InitMetrics()

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		logg.Fatal("connect object store", zap.Error(err))
	}
	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
		logg.Fatal("ensure bucket", zap.Error(err))
	}

	probes := []server.Probe{{
		Component: "minio",
		Check: func(ctx context.Context) error {
			return storage.CheckBucket(ctx, minioClient, cfg.MinIO.Bucket)
		},
	}}

	var ledger object.Ledger
	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	if dbPool != nil {
		defer dbPool.Close()
		repo := object.NewRepository(dbPool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logg.Fatal("prepare object ledger", zap.Error(err))
		}
		ledger = repo
		probes = append(probes, server.Probe{Component: "postgres", Check: dbPool.Ping})
	}

	objectStore := object.NewMinIOStore(minioClient)
	publisher := object.NewPublisher(objectStore, cfg.MinIO.Bucket, ledger, logg)
	retriever := object.NewRetriever(objectStore, cfg.MinIO.Bucket)
	uploadService := upload.NewService(content.NewValidator(nil), publisher, retriever, logg)

	chunkStore, err := staging.NewStore(cfg.Staging.Dir)
	if err != nil {
		logg.Fatal("prepare staging", zap.Error(err))
	}
	locks := staging.NewLocks()
	engine := upload.NewEngine(uploadService, chunkStore, locks, logg)

	sweeper := staging.NewSweeper(chunkStore, locks, cfg.Staging.SessionTTL, cfg.Staging.SweepInterval, logg)
	go sweeper.Run(ctx)

	presigner := presigned.NewService(minioClient, retriever, cfg.MinIO.Bucket, cfg.Presign.DefaultTTL, cfg.Presign.MaxTTL)

	router := server.NewRouter(server.Dependencies{
		Config:        cfg,
		Logger:        logg,
		Readiness:     probes,
		UploadService: uploadService,
		Engine:        engine,
		Presigner:     presigner,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("ingest API listening",
			zap.String("address", cfg.Server.Address()),
			zap.String("bucket", cfg.MinIO.Bucket),
			zap.String("staging_dir", chunkStore.Root()),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
