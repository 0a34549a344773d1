package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingWebhookSecret  = errors.New("WCKEY is required")
	ErrMissingRedshiftHost   = errors.New("REDSHIFT_HOST is required")
	ErrMissingRedshiftDB     = errors.New("REDSHIFT_DBNAME is required")
	ErrMissingRedshiftUser   = errors.New("REDSHIFT_USER is required")
	ErrMissingStorageKeys    = errors.New("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required")
	ErrMissingStorageBucket  = errors.New("STORAGE_BUCKET is required")
	ErrInvalidReportSource   = errors.New("REPORT_SOURCE must be postgres or memory")
	ErrInvalidSignatureMode  = errors.New("SIGNATURE_ENCODING must be hex or base64")
	ErrInvalidLinkTTL        = errors.New("STORAGE_LINK_TTL must be positive and at most 7 days")
	ErrInvalidReportMaxRows  = errors.New("REPORT_MAX_ROWS must be positive")
	ErrInvalidWebhookPath    = errors.New("WEBHOOK_PATH must start with /")
	ErrInvalidMaxBodySize    = errors.New("WEBHOOK_MAX_BODY_BYTES must be positive")
	ErrInvalidArtifactDir    = errors.New("ARTIFACT_DIR is required")
	ErrInvalidLedgerSettings = errors.New("AUTO_MIGRATE requires LEDGER_DATABASE_URL")
)

// Config captures runtime configuration for the webhook service.
type Config struct {
	HTTP      HTTPConfig
	Redshift  RedshiftConfig
	Webhook   WebhookConfig
	Storage   StorageConfig
	Report    ReportConfig
	Ledger    LedgerConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port          int
	MetricsPath   string
	ShutdownGrace int
}

type RedshiftConfig struct {
	Host           string
	Port           int
	DBName         string
	User           string
	Password       string
	SSLMode        string
	MaxConns       int32
	ConnectTimeout time.Duration
	SimpleProtocol bool
}

type WebhookConfig struct {
	Secret            string
	SignatureEncoding string
	Path              string
	MaxBodyBytes      int64
	DebugRoutes       bool
}

// StorageConfig describes the artifact bucket. StrictPublish turns storage
// failures into a 500 instead of a partial 200.
type StorageConfig struct {
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	Endpoint      string
	UsePathStyle  bool
	KeyPrefix     string
	LinkTTL       time.Duration
	StrictPublish bool
}

type ReportConfig struct {
	Source       string
	Table        string
	BuildingType string
	MaxRows      int
	ArtifactDir  string
}

type LedgerConfig struct {
	DatabaseURL    string
	AutoMigrate    bool
	MigrationsPath string
}

type TelemetryConfig struct {
	LogLevel         string
	OTelEndpoint     string
	EnableTracing    bool
	EnableMetrics    bool
	EnablePrometheus bool
	SampleRate       float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	SourcePostgres = "postgres"
	SourceMemory   = "memory"
)

const (
	defaultHTTPPort          = 8080
	defaultMetricsPath       = "/metrics"
	defaultShutdownGrace     = 15
	defaultRedshiftPort      = 5439
	defaultRedshiftSSLMode   = "require"
	defaultRedshiftMaxConns  = 10
	defaultConnectTimeout    = 10 * time.Second
	defaultSignatureEncoding = "hex"
	defaultWebhookPath       = "/webhook"
	defaultMaxBodyBytes      = 1 << 20
	defaultStorageRegion     = "eu-west-3"
	defaultLinkTTL           = time.Hour
	maxLinkTTL               = 7 * 24 * time.Hour
	defaultReportSource      = SourcePostgres
	defaultReportTable       = "leads"
	defaultBuildingType      = "house"
	defaultReportMaxRows     = 100
	defaultArtifactDir       = "artifacts"
	defaultMigrationsPath    = "migrations"
	defaultServiceName       = "report-webhook"
	defaultServiceVersion    = "0.1.0"
	defaultEnvironment       = "development"
	defaultLogLevel          = "info"
	defaultOTelSampleRate    = 1.0
)

// Load reads configuration from environment variables, applying defaults when needed.
// It does not check that required values are present; call Validate for that.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	redshiftCfg, err := loadRedshiftConfig()
	if err != nil {
		return nil, fmt.Errorf("loading redshift config: %w", err)
	}

	webhookCfg, err := loadWebhookConfig()
	if err != nil {
		return nil, fmt.Errorf("loading webhook config: %w", err)
	}

	storageCfg, err := loadStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}

	reportCfg, err := loadReportConfig()
	if err != nil {
		return nil, fmt.Errorf("loading report config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:      httpCfg,
		Redshift:  redshiftCfg,
		Webhook:   webhookCfg,
		Storage:   storageCfg,
		Report:    reportCfg,
		Ledger:    loadLedgerConfig(),
		Telemetry: telCfg,
		Service:   loadServiceConfig(),
	}, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Webhook.Secret == "" {
		errs = append(errs, ErrMissingWebhookSecret)
	}
	if enc := strings.ToLower(c.Webhook.SignatureEncoding); enc != "hex" && enc != "base64" {
		errs = append(errs, ErrInvalidSignatureMode)
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		errs = append(errs, ErrInvalidWebhookPath)
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		errs = append(errs, ErrInvalidMaxBodySize)
	}

	switch c.Report.Source {
	case SourcePostgres:
		if c.Redshift.Host == "" {
			errs = append(errs, ErrMissingRedshiftHost)
		}
		if c.Redshift.DBName == "" {
			errs = append(errs, ErrMissingRedshiftDB)
		}
		if c.Redshift.User == "" {
			errs = append(errs, ErrMissingRedshiftUser)
		}
	case SourceMemory:
	default:
		errs = append(errs, ErrInvalidReportSource)
	}
	if c.Report.MaxRows <= 0 {
		errs = append(errs, ErrInvalidReportMaxRows)
	}
	if c.Report.ArtifactDir == "" {
		errs = append(errs, ErrInvalidArtifactDir)
	}

	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		errs = append(errs, ErrMissingStorageKeys)
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, ErrMissingStorageBucket)
	}
	if c.Storage.LinkTTL <= 0 || c.Storage.LinkTTL > maxLinkTTL {
		errs = append(errs, ErrInvalidLinkTTL)
	}

	if c.Ledger.AutoMigrate && c.Ledger.DatabaseURL == "" {
		errs = append(errs, ErrInvalidLedgerSettings)
	}

	return errors.Join(errs...)
}

// URL builds a pgx connection string for the configured cluster.
func (c RedshiftConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("API_HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}

	shutdownGrace, err := getIntEnv("API_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Port:          port,
		MetricsPath:   getEnvOrDefault("API_METRICS_PATH", defaultMetricsPath),
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadRedshiftConfig() (RedshiftConfig, error) {
	port, err := getIntEnv("REDSHIFT_PORT", defaultRedshiftPort)
	if err != nil {
		return RedshiftConfig{}, err
	}

	maxConns, err := getIntEnv("REDSHIFT_MAX_CONNS", defaultRedshiftMaxConns)
	if err != nil {
		return RedshiftConfig{}, err
	}

	connectTimeout, err := getDurationEnv("REDSHIFT_CONNECT_TIMEOUT", defaultConnectTimeout)
	if err != nil {
		return RedshiftConfig{}, err
	}

	return RedshiftConfig{
		Host:           os.Getenv("REDSHIFT_HOST"),
		Port:           port,
		DBName:         os.Getenv("REDSHIFT_DBNAME"),
		User:           os.Getenv("REDSHIFT_USER"),
		Password:       os.Getenv("REDSHIFT_PASSWORD"),
		SSLMode:        getEnvOrDefault("REDSHIFT_SSLMODE", defaultRedshiftSSLMode),
		MaxConns:       int32(maxConns),
		ConnectTimeout: connectTimeout,
		SimpleProtocol: getBoolEnv("REDSHIFT_SIMPLE_PROTOCOL", true),
	}, nil
}

func loadWebhookConfig() (WebhookConfig, error) {
	maxBody, err := getIntEnv("WEBHOOK_MAX_BODY_BYTES", defaultMaxBodyBytes)
	if err != nil {
		return WebhookConfig{}, err
	}

	return WebhookConfig{
		Secret:            os.Getenv("WCKEY"),
		SignatureEncoding: getEnvOrDefault("SIGNATURE_ENCODING", defaultSignatureEncoding),
		Path:              getEnvOrDefault("WEBHOOK_PATH", defaultWebhookPath),
		MaxBodyBytes:      int64(maxBody),
		DebugRoutes:       getBoolEnv("WEBHOOK_DEBUG_ROUTES", false),
	}, nil
}

func loadStorageConfig() (StorageConfig, error) {
	ttl, err := getDurationEnv("STORAGE_LINK_TTL", defaultLinkTTL)
	if err != nil {
		return StorageConfig{}, err
	}

	return StorageConfig{
		AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
		SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
		Bucket:        os.Getenv("STORAGE_BUCKET"),
		Region:        getEnvOrDefault("STORAGE_REGION", defaultStorageRegion),
		Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
		UsePathStyle:  getBoolEnv("STORAGE_PATH_STYLE", false),
		KeyPrefix:     strings.Trim(os.Getenv("STORAGE_KEY_PREFIX"), "/"),
		LinkTTL:       ttl,
		StrictPublish: getBoolEnv("STRICT_PUBLISH", false),
	}, nil
}

func loadReportConfig() (ReportConfig, error) {
	maxRows, err := getIntEnv("REPORT_MAX_ROWS", defaultReportMaxRows)
	if err != nil {
		return ReportConfig{}, err
	}

	return ReportConfig{
		Source:       getEnvOrDefault("REPORT_SOURCE", defaultReportSource),
		Table:        getEnvOrDefault("REPORT_TABLE", defaultReportTable),
		BuildingType: getEnvOrDefault("REPORT_BUILDING_TYPE", defaultBuildingType),
		MaxRows:      maxRows,
		ArtifactDir:  getEnvOrDefault("ARTIFACT_DIR", defaultArtifactDir),
	}, nil
}

func loadLedgerConfig() LedgerConfig {
	return LedgerConfig{
		DatabaseURL:    os.Getenv("LEDGER_DATABASE_URL"),
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", false),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:         getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing:    getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics:    getBoolEnv("OTEL_ENABLE_METRICS", true),
		EnablePrometheus: getBoolEnv("PROMETHEUS_ENABLED", true),
		SampleRate:       sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

// getDurationEnv accepts Go durations ("90m") or a bare number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
