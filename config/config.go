package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"order-service/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port     string
	GRPCPort string
	BaseURL  string
	DB       DB
	JWT      JWT
	Redis    Redis
	Kafka    Kafka
	VietQR   VietQR
	PayOS    PayOS

	GatewayTimeout    time.Duration
	ReconcileInterval time.Duration
	ReconcileWindow   time.Duration
}

type DB struct {
	database.Config
}

type JWT struct {
	AccessSecret string
	Issuer       string
	Audience     string
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

type Kafka struct {
	Brokers     []string
	EmailTopic  string
	EventsTopic string
}

type VietQR struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	AccountNo   string
	AccountName string
	AcqID       string
}

type PayOS struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port:     getEnv("APP_PORT", log),
		GRPCPort: getEnvDefault("GRPC_PORT", ":50053"),
		BaseURL:  strings.TrimRight(getEnv("BASE_URL", log), "/"),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		JWT: JWT{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", log),
			Issuer:       getEnvDefault("JWT_ISSUER", "orderhub-auth"),
			Audience:     getEnvDefault("JWT_AUDIENCE", "orderhub"),
		},
		Redis: Redis{
			Enabled:    os.Getenv("REDIS_ENABLED") == "true",
			Addr:       getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         atoiDefault(os.Getenv("REDIS_DB"), 0),
			TTLSeconds: atoiDefault(os.Getenv("CACHE_TTL_SECONDS"), 60),
		},
		Kafka: Kafka{
			Brokers:     splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			EmailTopic:  getEnvDefault("KAFKA_TOPIC_EMAIL", "emails"),
			EventsTopic: getEnvDefault("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
		},
		VietQR: VietQR{
			BaseURL:     getEnvDefault("VIETQR_BASE_URL", "https://api.vietqr.io"),
			ClientID:    os.Getenv("VIETQR_CLIENT_ID"),
			APIKey:      os.Getenv("VIETQR_API_KEY"),
			AccountNo:   os.Getenv("VIETQR_ACCOUNT_NO"),
			AccountName: os.Getenv("VIETQR_ACCOUNT_NAME"),
			AcqID:       os.Getenv("VIETQR_ACQ_ID"),
		},
		PayOS: PayOS{
			BaseURL:     getEnvDefault("PAYOS_BASE_URL", "https://api-merchant.payos.vn"),
			ClientID:    os.Getenv("PAYOS_CLIENT_ID"),
			APIKey:      os.Getenv("PAYOS_API_KEY"),
			ChecksumKey: os.Getenv("PAYOS_CHECKSUM_KEY"),
		},
		GatewayTimeout:    durationDefault(os.Getenv("GATEWAY_TIMEOUT"), 10*time.Second),
		ReconcileInterval: durationDefault(os.Getenv("RECONCILE_INTERVAL"), 5*time.Minute),
		ReconcileWindow:   durationDefault(os.Getenv("RECONCILE_WINDOW"), 24*time.Hour),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
