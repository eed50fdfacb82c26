package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Prediction PredictionConfig
	AlertJob   AlertJobConfig
	MQTT       MQTTConfig
	Kafka      KafkaConfig
	PushWorker PushWorkerConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// GetDSN returns the key/value DSN understood by both gorm's postgres driver and pgxpool.
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
	Issuer      string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins string
}

type LogConfig struct {
	Level      string
	Format     string
	Output     string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type PredictionConfig struct {
	// DefaultPropertyAge is used when a property has no construction year.
	DefaultPropertyAge int
	DefaultMonthsAhead int
	MaxMonthsAhead     int
	AlertHorizonMonths int
	RiskModelPath      string
	CacheTTL           time.Duration
}

type AlertJobConfig struct {
	Interval    time.Duration
	MetricsAddr string
}

type MQTTConfig struct {
	URL         string
	Topic       string
	MetricsAddr string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type PushWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MetricsAddr  string
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	logMaxSize, err := getIntEnv("LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}
	logMaxBackups, err := getIntEnv("LOG_MAX_BACKUPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_BACKUPS: %w", err)
	}
	logMaxAge, err := getIntEnv("LOG_MAX_AGE_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_AGE_DAYS: %w", err)
	}

	defaultAge, err := getIntEnv("PREDICTION_DEFAULT_PROPERTY_AGE", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_DEFAULT_PROPERTY_AGE: %w", err)
	}
	monthsAhead, err := getIntEnv("PREDICTION_DEFAULT_MONTHS_AHEAD", 6)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_DEFAULT_MONTHS_AHEAD: %w", err)
	}
	maxMonths, err := getIntEnv("PREDICTION_MAX_MONTHS_AHEAD", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_MAX_MONTHS_AHEAD: %w", err)
	}
	alertHorizon, err := getIntEnv("PREDICTION_ALERT_HORIZON_MONTHS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_ALERT_HORIZON_MONTHS: %w", err)
	}
	cacheTTL, err := getDurationEnv("PREDICTION_CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_CACHE_TTL: %w", err)
	}

	alertInterval, err := getDurationEnv("ALERT_JOB_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_JOB_INTERVAL: %w", err)
	}

	pushPoll, err := getDurationEnv("PUSH_POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid PUSH_POLL_INTERVAL: %w", err)
	}
	pushBatch, err := getIntEnv("PUSH_BATCH_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid PUSH_BATCH_SIZE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "rental"),
			Password: getEnv("DB_PASSWORD", "rental_dev_password"),
			Name:     getEnv("DB_NAME", "rental"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
			ExpiryHours: jwtExpiry,
			Issuer:      getEnv("JWT_ISSUER", "rental-platform-api"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSizeMB:  logMaxSize,
			MaxBackups: logMaxBackups,
			MaxAgeDays: logMaxAge,
		},
		Prediction: PredictionConfig{
			DefaultPropertyAge: defaultAge,
			DefaultMonthsAhead: monthsAhead,
			MaxMonthsAhead:     maxMonths,
			AlertHorizonMonths: alertHorizon,
			RiskModelPath:      getEnv("RISK_MODEL_PATH", ""),
			CacheTTL:           cacheTTL,
		},
		AlertJob: AlertJobConfig{
			Interval:    alertInterval,
			MetricsAddr: getEnv("ALERT_JOB_METRICS_ADDR", ":9101"),
		},
		MQTT: MQTTConfig{
			URL:         getEnv("MQTT_URL", "tcp://localhost:1883"),
			Topic:       getEnv("MQTT_TOPIC", "rental/sensors/+"),
			MetricsAddr: getEnv("COLLECTOR_METRICS_ADDR", ":9103"),
		},
		Kafka: KafkaConfig{
			Brokers: getListEnv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_NOTIFICATION_TOPIC", "rental.notifications"),
		},
		PushWorker: PushWorkerConfig{
			PollInterval: pushPoll,
			BatchSize:    pushBatch,
			MetricsAddr:  getEnv("PUSH_WORKER_METRICS_ADDR", ":9102"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
