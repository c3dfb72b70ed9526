package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/auth"
	"github.com/abduss/backoffice/internal/config"
	"github.com/abduss/backoffice/internal/customer"
	"github.com/abduss/backoffice/internal/employee"
	"github.com/abduss/backoffice/internal/events"
	"github.com/abduss/backoffice/internal/file"
	"github.com/abduss/backoffice/internal/grant"
	"github.com/abduss/backoffice/internal/logger"
	"github.com/abduss/backoffice/internal/metrics"
	"github.com/abduss/backoffice/internal/objectstore"
	"github.com/abduss/backoffice/internal/organization"
	"github.com/abduss/backoffice/internal/product"
	"github.com/abduss/backoffice/internal/quotation"
	"github.com/abduss/backoffice/internal/scan"
	"github.com/abduss/backoffice/internal/server"
	"github.com/abduss/backoffice/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	dotenvErr := godotenv.Load()

	log, err := logger.Init()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		log.Warn("read .env", zap.Error(dotenvErr))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	if cfg.Postgres.RunMigrations {
		if err := storage.Migrate(ctx, dbPool); err != nil {
			log.Fatal("run migrations", zap.Error(err))
		}
	}

	store, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatal("init object store", zap.String("driver", cfg.ObjectStore.Driver), zap.Error(err))
	}

	orgRepo := organization.NewRepository(dbPool)
	authService := auth.NewService(auth.NewRepository(dbPool, orgRepo), cfg.Auth)
	if cfg.Auth.OIDCIssuerURL != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth)
		if err != nil {
			log.Fatal("init oidc verifier", zap.String("issuer", cfg.Auth.OIDCIssuerURL), zap.Error(err))
		}
		authService.UseExternalVerifier(verifier)
	}

	grants := grant.NewRepository(dbPool, cfg.Files.GrantTTL)
	fileService := file.NewService(grants, store, access.NewEvaluator(log), file.Options{
		PublicPrefix:   cfg.Files.PublicPrefix,
		MaxUploadBytes: cfg.Files.MaxUploadBytes,
		MaxBatch:       cfg.Files.MaxBatch,
		RequireAuth:    cfg.Files.PresignRequireAuth,
		DefaultPolicy:  access.PublicReadOwnerWritePolicy,
		DownloadURLTTL: cfg.Files.DownloadURLTTL,
	}, log)

	if cfg.ClamAV.Address != "" {
		fileService.UseScanner(scan.NewClamAV(cfg.ClamAV.Address))
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		conn, err := events.Connect(cfg.NATS.URL, log)
		if err != nil {
			log.Fatal("connect nats", zap.Error(err))
		}
		defer conn.Close()
		publisher = events.NewNATS(conn, cfg.NATS.SubjectPrefix)
	}
	fileService.UsePublisher(publisher)

	reconciler := file.NewReconciler(fileService, cfg.Files.PublicPrefix, log)
	reaper := file.NewReaper(grants, store, publisher, cfg.Files.ReaperInterval, cfg.Files.ReaperBatch, log)
	go reaper.Run(ctx)

	customerRepo := customer.NewRepository(dbPool)

	router := server.NewRouter(server.Dependencies{
		Config:              cfg,
		Logger:              log,
		DB:                  dbPool,
		ObjectStore:         store,
		AuthService:         authService,
		OrganizationService: organization.NewService(orgRepo),
		FileService:         fileService,
		CustomerService:     customer.NewService(customerRepo, reconciler),
		EmployeeService:     employee.NewService(employee.NewRepository(dbPool), reconciler),
		ProductService:      product.NewService(product.NewRepository(dbPool), reconciler),
		QuotationService:    quotation.NewService(quotation.NewRepository(dbPool), customerRepo),
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("backoffice API listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
		os.Exit(1)
	}
}

func newObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (objectstore.Store, error) {
	switch cfg.Driver {
	case config.DriverS3:
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return objectstore.NewS3Store(client, cfg.S3.Bucket, cfg.Timeout), nil
	case config.DriverMemory:
		return objectstore.NewMemoryStore(), nil
	default:
		client, err := storage.OpenMinIO(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return objectstore.NewMinIOStore(client, cfg.MinIO.Bucket, cfg.Timeout), nil
	}
}
