package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

// NotifierConfig: настройки cmd/notifier (SMTP + kafka consumer).
type NotifierConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPSSL      bool

	TMPLDir string

	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopic   string
}

func LoadNotifier(log *zap.Logger) *NotifierConfig {
	return &NotifierConfig{
		SMTPHost:     getEnv("SMTP_HOST", log),
		SMTPPort:     getEnvInt("SMTP_PORT", log),
		SMTPUser:     getEnv("SMTP_USER", log),
		SMTPPassword: getEnv("SMTP_PASSWORD", log),
		SMTPFrom:     getEnv("SMTP_FROM", log),
		SMTPSSL:      os.Getenv("SMTP_SSL") != "false",
		TMPLDir:      getEnvDefault("TMPL_DIR", "templates"),
		KafkaBrokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID: getEnvDefault("KAFKA_GROUP_ID", "order-notifier"),
		KafkaTopic:   getEnvDefault("KAFKA_TOPIC_EMAIL", "emails"),
	}
}

func getEnvInt(key string, log *zap.Logger) int {
	valStr := getEnv(key, log)
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Error("Ошибка преобразования переменной окружения в int", zap.String("key", key), zap.Error(err))
		panic("invalid int value for environment variable: " + key)
	}
	return val
}
