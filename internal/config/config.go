package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the fulfillment API.
type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
	Payments    PaymentsConfig
	Logistics   LogisticsConfig
	External    ExternalConfig
	Auth        AuthConfig
	Idempotency IdempotencyConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace int
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

type PaymentsConfig struct {
	BaseURL    string
	SecretKey  string
	EscrowHold time.Duration
}

type LogisticsConfig struct {
	BaseURL        string
	APIKey         string
	DeliveryWindow time.Duration
}

// ExternalConfig bounds every call to the payment gateway and the carrier.
type ExternalConfig struct {
	Timeout       time.Duration
	RatePerSecond float64
}

type AuthConfig struct {
	JWTSecret string
}

type IdempotencyConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

const (
	IdempotencyPostgres = "postgres"
	IdempotencyRedis    = "redis"
	IdempotencyMemory   = "memory"
)

const (
	defaultHTTPPort           = 8080
	defaultShutdownGrace      = 15
	defaultMigrationsPath     = "migrations"
	defaultAutoMigrate        = true
	defaultTopicPrefix        = "marketplace."
	defaultServiceName        = "fulfillment-api"
	defaultServiceVersion     = "0.1.0"
	defaultEnvironment        = "development"
	defaultLogLevel           = "info"
	defaultOTelSampleRate     = 1.0
	defaultPaystackURL        = "https://api.paystack.co"
	defaultGIGURL             = "https://api.giglogistics.com"
	defaultCallTimeoutSeconds = 10
	defaultCallRatePerSecond  = 20.0
	defaultEscrowHoldDays     = 3
	defaultDeliveryDays       = 3
	defaultRedisAddr          = "localhost:6379"
	defaultIdempotencyTTLHrs  = 24
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	paymentsCfg, err := loadPaymentsConfig()
	if err != nil {
		return nil, fmt.Errorf("loading payments config: %w", err)
	}

	logisticsCfg, err := loadLogisticsConfig()
	if err != nil {
		return nil, fmt.Errorf("loading logistics config: %w", err)
	}

	externalCfg, err := loadExternalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading external call config: %w", err)
	}

	idemCfg, err := loadIdempotencyConfig()
	if err != nil {
		return nil, fmt.Errorf("loading idempotency config: %w", err)
	}

	return &Config{
		HTTP:        httpCfg,
		Database:    loadDatabaseConfig(),
		Kafka:       loadKafkaConfig(),
		Telemetry:   telCfg,
		Service:     loadServiceConfig(),
		Payments:    paymentsCfg,
		Logistics:   logisticsCfg,
		External:    externalCfg,
		Auth:        AuthConfig{JWTSecret: os.Getenv("JWT_SECRET")},
		Idempotency: idemCfg,
	}, nil
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
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}
}

func loadKafkaConfig() KafkaConfig {
	var brokers []string
	for _, broker := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	prefix := defaultTopicPrefix
	if value, ok := os.LookupEnv("KAFKA_TOPIC_PREFIX"); ok {
		prefix = value
	}

	return KafkaConfig{
		Brokers:     brokers,
		TopicPrefix: prefix,
	}
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate, err := getFloatEnv("OTEL_SAMPLE_RATE", defaultOTelSampleRate)
	if err != nil {
		return TelemetryConfig{}, err
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func loadPaymentsConfig() (PaymentsConfig, error) {
	holdDays, err := getIntEnv("ESCROW_HOLD_DAYS", defaultEscrowHoldDays)
	if err != nil {
		return PaymentsConfig{}, err
	}

	return PaymentsConfig{
		BaseURL:    getEnvOrDefault("PAYSTACK_BASE_URL", defaultPaystackURL),
		SecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		EscrowHold: days(holdDays),
	}, nil
}

func loadLogisticsConfig() (LogisticsConfig, error) {
	windowDays, err := getIntEnv("DELIVERY_WINDOW_DAYS", defaultDeliveryDays)
	if err != nil {
		return LogisticsConfig{}, err
	}

	return LogisticsConfig{
		BaseURL:        getEnvOrDefault("GIG_LOGISTICS_BASE_URL", defaultGIGURL),
		APIKey:         os.Getenv("GIG_LOGISTICS_API_KEY"),
		DeliveryWindow: days(windowDays),
	}, nil
}

func loadExternalConfig() (ExternalConfig, error) {
	timeoutSeconds, err := getIntEnv("EXTERNAL_CALL_TIMEOUT_SECONDS", defaultCallTimeoutSeconds)
	if err != nil {
		return ExternalConfig{}, err
	}

	ratePerSecond, err := getFloatEnv("EXTERNAL_CALL_RATE_PER_SECOND", defaultCallRatePerSecond)
	if err != nil {
		return ExternalConfig{}, err
	}

	return ExternalConfig{
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		RatePerSecond: ratePerSecond,
	}, nil
}

func loadIdempotencyConfig() (IdempotencyConfig, error) {
	backend := getEnvOrDefault("IDEMPOTENCY_BACKEND", IdempotencyPostgres)
	switch backend {
	case IdempotencyPostgres, IdempotencyRedis, IdempotencyMemory:
	default:
		return IdempotencyConfig{}, fmt.Errorf("invalid IDEMPOTENCY_BACKEND %q", backend)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return IdempotencyConfig{}, err
	}

	ttlHours, err := getIntEnv("IDEMPOTENCY_TTL_HOURS", defaultIdempotencyTTLHrs)
	if err != nil {
		return IdempotencyConfig{}, err
	}

	return IdempotencyConfig{
		Backend:       backend,
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", defaultRedisAddr),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		TTL:           time.Duration(ttlHours) * time.Hour,
	}, nil
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "marketplace")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
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

func getFloatEnv(key string, defaultValue float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
