package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"customer-insights/internal/assistant"
	"customer-insights/internal/config"
	"customer-insights/internal/dataset"
	apphttp "customer-insights/internal/http"
	"customer-insights/internal/pages"
	"customer-insights/internal/repository"
	"customer-insights/internal/repository/csvfile"
	"customer-insights/internal/repository/sqlite"
	"customer-insights/internal/router"
	"customer-insights/internal/service"
	"customer-insights/internal/session"
	"customer-insights/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	level, _ := logrus.ParseLevel(cfg.Log.Level)
	logger.SetLevel(level)

	if cfg.Session.TrustClientParams {
		logger.Warn("session.trustclientparams is on: session parameters from clients are not verified")
	}
	if cfg.Auth.AllowLegacyPlaintext {
		logger.Warn("auth.allowlegacyplaintext is on: plaintext credential rows are accepted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildCredentialStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup credential store: %v", err)
	}
	defer closeStore.Close()

	authService := service.NewAuthService(store, service.NewBcryptHasher(cfg.Auth.BcryptCost, cfg.Auth.AllowLegacyPlaintext), logger)

	gemini, err := assistant.NewGemini(assistant.Config{
		APIKey:   cfg.Assistant.APIKey,
		Model:    cfg.Assistant.Model,
		Endpoint: cfg.Assistant.Endpoint,
		Timeout:  cfg.AssistantTimeout(),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("setup assistant: %v", err)
	}

	archive, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	datasets := dataset.NewCatalog(
		dataset.Source{Name: dataset.Customers, Title: "Customers Dataset", Path: cfg.Datasets.Customers},
		dataset.Source{Name: dataset.Mall, Title: "Mall Customers Dataset", Path: cfg.Datasets.Mall},
	)

	deps := pages.Deps{
		Auth:      authService,
		Datasets:  datasets,
		Assistant: gemini,
		Logger:    logger,
	}
	if archive != nil {
		deps.Archive = archive
	}
	pageRouter := router.New(pages.Table(deps), logger)

	codec := session.NewCodec(session.CodecConfig{
		Secret:            cfg.Session.Secret,
		TTL:               cfg.SessionTTL(),
		TrustClientParams: cfg.Session.TrustClientParams,
		Logger:            logger,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler := apphttp.NewHandler(pageRouter, codec, logger)
	handler.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func buildCredentialStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.CredentialStore, io.Closer, error) {
	if cfg.Credentials.Backend != config.BackendSQLite {
		logger.Infof("using credential file %s", cfg.Credentials.Path)
		return csvfile.NewCredentialStore(cfg.Credentials.Path), nopCloser{}, nil
	}

	db, err := sqlite.Open(ctx, cfg.Credentials.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	store := sqlite.NewCredentialStore(db)
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init credential store: %w", err)
	}
	logger.Infof("using credential database %s", cfg.Credentials.SQLitePath)
	return store, db, nil
}

// buildArchive returns nil when no bucket is configured; exports are then
// only downloaded.
func buildArchive(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storage.S3Archive, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, export archive disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving exports to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Archive(client, storage.S3Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger,
	})
}
