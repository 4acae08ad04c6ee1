package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	SumUp             SumUpConfig
	TopUps            TopUpsConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type SumUpConfig struct {
	APIURL               string
	AuthURL              string
	ClientID             string
	ClientSecret         string
	MerchantCode         string
	ReturnURL            string
	HTTPTimeout          time.Duration
	AuthRefreshThreshold time.Duration
}

// TopUpsConfig holds the fallbacks used when the settings table has no value.
type TopUpsConfig struct {
	Enabled           bool
	Currency          string
	MaxAccountBalance decimal.Decimal
	DescriptionPrefix string
}

type JobsConfig struct {
	ReconcileInterval time.Duration
	BatchSize         int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "topups-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		SumUp: SumUpConfig{
			APIURL:               getEnv("SUMUP_API_URL", "https://api.sumup.com/v0.1"),
			AuthURL:              getEnv("SUMUP_AUTH_URL", "https://api.sumup.com/token"),
			ClientID:             getEnv("SUMUP_CLIENT_ID", ""),
			ClientSecret:         getEnv("SUMUP_CLIENT_SECRET", ""),
			MerchantCode:         getEnv("SUMUP_MERCHANT_CODE", ""),
			ReturnURL:            getEnv("SUMUP_RETURN_URL", ""),
			HTTPTimeout:          getSecondsEnv("SUMUP_HTTP_TIMEOUT_SECONDS", 2*time.Second),
			AuthRefreshThreshold: getSecondsEnv("SUMUP_AUTH_REFRESH_THRESHOLD_SECONDS", 180*time.Second),
		},
		TopUps: TopUpsConfig{
			Enabled:           getBoolEnv("TOPUPS_ENABLED", false),
			Currency:          strings.ToUpper(getEnv("TOPUPS_CURRENCY", "EUR")),
			MaxAccountBalance: getDecimalEnv("TOPUPS_MAX_ACCOUNT_BALANCE", decimal.NewFromInt(150)),
			DescriptionPrefix: getEnv("TOPUPS_DESCRIPTION_PREFIX", "Online TopUp"),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getSecondsEnv("TOPUPS_RECONCILE_INTERVAL_SECONDS", 20*time.Second),
			BatchSize:         int32(getIntEnv("TOPUPS_JOB_BATCH_SIZE", 100)),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
