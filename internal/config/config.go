package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort        string
	GRPCHealthPort  string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxRequestBody  int64
	LogLevel        string

	CMSURL      string
	CMSAPIToken string

	RedisAddr     string
	RedisPassword string

	CartStore          string
	MongoURI           string
	MongoDBName        string
	SQLitePath         string
	CartMigrationsPath string
	CartIdleTTL        time.Duration

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string

	KafkaBrokers       []string
	PaymentEventsTopic string
	PollInterval       time.Duration

	PaymentPublicKey       string
	PaymentIntegritySecret string
	PaymentEventsSecret    string
	PaymentSignatureURL    string
	Currency               string

	ConfirmationPath   string
	SearchDebounce     time.Duration
	CheckoutSessionTTL time.Duration
}

func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		GRPCHealthPort:  getEnv("GRPC_HEALTH_PORT", "50060"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBody:  1 << 20, // 1MB
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		CMSURL:      strings.TrimRight(getEnv("CMS_URL", "http://localhost:1337"), "/"),
		CMSAPIToken: getEnv("CMS_API_TOKEN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CartStore:          getEnv("CART_STORE", "mongo"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "storefront"),
		SQLitePath:         getEnv("SQLITE_PATH", "./carts.db"),
		CartMigrationsPath: getEnv("CART_MIGRATIONS_PATH", "./internal/cart/repository/migrations/sqlite"),
		CartIdleTTL:        getDuration("CART_IDLE_TTL", 30*time.Minute),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         dbPort,
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "storefront"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/reconcile/repository/migrations"),

		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		PaymentEventsTopic: getEnv("PAYMENT_EVENTS_TOPIC", "payment-events"),
		PollInterval:       getDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),

		PaymentPublicKey:       getEnv("PAYMENT_PUBLIC_KEY", ""),
		PaymentIntegritySecret: getEnv("PAYMENT_INTEGRITY_SECRET", ""),
		PaymentEventsSecret:    getEnv("PAYMENT_EVENTS_SECRET", ""),
		PaymentSignatureURL:    getEnv("PAYMENT_SIGNATURE_URL", ""),
		Currency:               getEnv("CURRENCY", "COP"),

		ConfirmationPath:   getEnv("CONFIRMATION_PATH", "/confirmacion"),
		SearchDebounce:     getDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		CheckoutSessionTTL: getDuration("CHECKOUT_SESSION_TTL", 2*time.Hour),
	}

	if cfg.CartStore != "mongo" && cfg.CartStore != "sqlite" {
		return nil, fmt.Errorf("unknown CART_STORE %q", cfg.CartStore)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
