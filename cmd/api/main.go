package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/dejobratic/reportwebhook/internal/config"
	"github.com/dejobratic/reportwebhook/internal/database"
	ledgermemory "github.com/dejobratic/reportwebhook/internal/ledger/memory"
	ledgerpostgres "github.com/dejobratic/reportwebhook/internal/ledger/postgres"
	"github.com/dejobratic/reportwebhook/internal/notify"
	"github.com/dejobratic/reportwebhook/internal/reports/adapters"
	"github.com/dejobratic/reportwebhook/internal/reports/adapters/csv"
	httpadapter "github.com/dejobratic/reportwebhook/internal/reports/adapters/http"
	reportsmemory "github.com/dejobratic/reportwebhook/internal/reports/adapters/memory"
	reportspostgres "github.com/dejobratic/reportwebhook/internal/reports/adapters/postgres"
	"github.com/dejobratic/reportwebhook/internal/reports/adapters/s3"
	reportsapp "github.com/dejobratic/reportwebhook/internal/reports/app"
	"github.com/dejobratic/reportwebhook/internal/reports/app/commands"
	"github.com/dejobratic/reportwebhook/internal/reports/metrics"
	"github.com/dejobratic/reportwebhook/internal/reports/ports"
	"github.com/dejobratic/reportwebhook/internal/signature"
	"github.com/dejobratic/reportwebhook/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(telemetry.ParseLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:      cfg.Service.Name,
		ServiceVersion:   cfg.Service.Version,
		Environment:      cfg.Service.Environment,
		OTLPEndpoint:     cfg.Telemetry.OTelEndpoint,
		EnableTracing:    cfg.Telemetry.EnableTracing,
		EnableMetrics:    cfg.Telemetry.EnableMetrics,
		EnablePrometheus: cfg.Telemetry.EnablePrometheus,
		SampleRate:       cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	meter := otel.GetMeterProvider().Meter(cfg.Service.Name)

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return err
	}
	storageMetrics, err := s3.NewMetrics(meter)
	if err != nil {
		return err
	}
	reportMetrics, err := metrics.NewMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return err
	}

	var (
		pools  = map[string]*pgxpool.Pool{}
		source ports.RecordSource
	)
	defer func() {
		for _, pool := range pools {
			pool.Close()
		}
	}()

	switch cfg.Report.Source {
	case config.SourcePostgres:
		opts := []database.PoolOption{
			database.WithMaxConns(cfg.Redshift.MaxConns),
			database.WithConnectTimeout(cfg.Redshift.ConnectTimeout),
		}
		if cfg.Redshift.SimpleProtocol {
			opts = append(opts, database.WithSimpleProtocol())
		}
		pool, err := database.NewPool(ctx, cfg.Redshift.URL(), opts...)
		if err != nil {
			return fmt.Errorf("connect to redshift: %w", err)
		}
		pools["redshift"] = pool
		source = reportspostgres.NewSource(pool, reportspostgres.SourceConfig{
			Table:        cfg.Report.Table,
			BuildingType: cfg.Report.BuildingType,
			MaxRows:      cfg.Report.MaxRows,
		})
		logger.Info("report source configured", "source", "redshift", "host", cfg.Redshift.Host, "table", cfg.Report.Table)
	default:
		source = reportsmemory.NewSourceFor(cfg.Report.BuildingType, cfg.Report.MaxRows)
		logger.Warn("report source is in memory; reports will be empty", "source", cfg.Report.Source)
	}

	var ledger ports.ArtifactLedger = ledgermemory.NewStore()
	if cfg.Ledger.DatabaseURL != "" {
		if cfg.Ledger.AutoMigrate {
			logger.Info("running database migrations", "path", cfg.Ledger.MigrationsPath)
			version, err := database.RunMigrations(cfg.Ledger.DatabaseURL, cfg.Ledger.MigrationsPath)
			if err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			logger.Info("migrations completed successfully", "version", version)
		}
		pool, err := database.NewPool(ctx, cfg.Ledger.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to ledger database: %w", err)
		}
		pools["ledger"] = pool
		ledger = ledgerpostgres.NewStore(pool)
	}

	storageCfg := s3.Config{
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		Region:       cfg.Storage.Region,
		Endpoint:     cfg.Storage.Endpoint,
		UsePathStyle: cfg.Storage.UsePathStyle,
		Bucket:       cfg.Storage.Bucket,
		KeyPrefix:    cfg.Storage.KeyPrefix,
		LinkTTL:      cfg.Storage.LinkTTL,
	}
	s3Client, err := s3.NewClient(ctx, storageCfg)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}

	service := reportsapp.NewService(reportsapp.Dependencies{
		Source:    adapters.NewObservableSource(source, dbMetrics),
		Writer:    csv.NewExporter(cfg.Report.ArtifactDir),
		Publisher: adapters.NewObservablePublisher(s3.NewPublisher(s3Client, storageCfg), cfg.Storage.Bucket, storageMetrics),
		Ledger:    ledger,
		Notifier:  notify.NewNoopNotifier(logger),
	}, commands.Options{StrictPublish: cfg.Storage.StrictPublish}, logger, reportMetrics)

	encoding, err := signature.ParseEncoding(cfg.Webhook.SignatureEncoding)
	if err != nil {
		return err
	}
	webhookHandler := httpadapter.NewHandler(service, signature.NewVerifier(cfg.Webhook.Secret, encoding), logger, httpMetrics, httpadapter.Options{
		Path:         cfg.Webhook.Path,
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		DebugRoutes:  cfg.Webhook.DebugRoutes,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpadapter.WithLogging(logger))
	r.Use(httpadapter.WithMetrics(httpMetrics))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("report webhook is running\n"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for name, pool := range pools {
			if err := database.CheckHealth(r.Context(), pool); err != nil {
				logger.WarnContext(r.Context(), "readiness check failed", "dependency", name, "error", err)
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "dependency": name})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Method(http.MethodGet, cfg.HTTP.MetricsPath, tel.MetricsHandler())

	webhookHandler.Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			"port", cfg.HTTP.Port,
			"webhook_path", cfg.Webhook.Path,
			"hmac_encoding", encoding,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	if shutdownErr == nil {
		logger.Info("http server stopped")
	}

	return errors.Join(serveErr, shutdownErr, tel.Shutdown(shutdownCtx))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
