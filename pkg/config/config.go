// Package config loads server configuration: the core three settings as
// positional CLI arguments (matching the original program's argv contract),
// and everything ambient/optional from the environment (and an optional
// .env file), the way the teacher's config package does.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds the three settings the distilled spec requires on the
// command line.
type ServerConfig struct {
	Port           int
	BufferCapacity int
	WorkerCount    int
}

// MetricsConfig controls the optional /metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// KafkaConfig configures the optional audit event topic.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
}

// PostgresConfig configures the optional audit trail database.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnectionString builds a libpq-style DSN.
func (p PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// RedisConfig configures the optional read-only job-status cache.
type RedisConfig struct {
	Enabled bool
	Addr    string
}

// AuditConfig groups the optional, off-by-default reporting pipeline.
type AuditConfig struct {
	Enabled  bool
	Kafka    KafkaConfig
	Postgres PostgresConfig
	Redis    RedisConfig
}

// Config is the full set of settings for cmd/jobexecd.
type Config struct {
	Server  ServerConfig
	Metrics MetricsConfig
	Audit   AuditConfig
}

// ParseServerArgs parses the mandatory positional CLI arguments
// "<port> <bufferCapacity> <workerCount>".
func ParseServerArgs(args []string) (ServerConfig, error) {
	if len(args) != 3 {
		return ServerConfig{}, fmt.Errorf("config: expected <port> <bufferCapacity> <workerCount>, got %d arguments", len(args))
	}

	port, err := strconv.Atoi(args[0])
	if err != nil || port <= 0 {
		return ServerConfig{}, fmt.Errorf("config: invalid port %q", args[0])
	}
	capacity, err := strconv.Atoi(args[1])
	if err != nil || capacity <= 0 {
		return ServerConfig{}, fmt.Errorf("config: invalid bufferCapacity %q", args[1])
	}
	workers, err := strconv.Atoi(args[2])
	if err != nil || workers <= 0 {
		return ServerConfig{}, fmt.Errorf("config: invalid workerCount %q", args[2])
	}

	return ServerConfig{Port: port, BufferCapacity: capacity, WorkerCount: workers}, nil
}

// Load reads the ambient and optional domain-stack settings from the
// environment, after loading a .env file if one is present. Core server
// settings are supplied separately via ParseServerArgs since the spec
// mandates they come from argv.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Port:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Audit: AuditConfig{
			Enabled: getEnvAsBool("AUDIT_ENABLED", false),
			Kafka: KafkaConfig{
				Brokers:      strings.Split(getEnv("AUDIT_KAFKA_BROKERS", "localhost:9092"), ","),
				Topic:        getEnv("AUDIT_KAFKA_TOPIC", "jobexec.audit"),
				GroupID:      getEnv("AUDIT_KAFKA_GROUP_ID", "jobexec-audit-writer"),
				BatchSize:    getEnvAsInt("AUDIT_KAFKA_BATCH_SIZE", 50),
				BatchTimeout: getEnvAsDuration("AUDIT_KAFKA_BATCH_TIMEOUT", 100*time.Millisecond),
				RequiredAcks: getEnvAsInt("AUDIT_KAFKA_REQUIRED_ACKS", 1),
			},
			Postgres: PostgresConfig{
				Host:     getEnv("AUDIT_DB_HOST", "localhost"),
				Port:     getEnvAsInt("AUDIT_DB_PORT", 5432),
				User:     getEnv("AUDIT_DB_USER", "jobexec"),
				Password: getEnv("AUDIT_DB_PASSWORD", "jobexec"),
				DBName:   getEnv("AUDIT_DB_NAME", "jobexec_audit"),
				SSLMode:  getEnv("AUDIT_DB_SSLMODE", "disable"),
			},
			Redis: RedisConfig{
				Enabled: getEnvAsBool("AUDIT_REDIS_ENABLED", false),
				Addr:    getEnv("AUDIT_REDIS_ADDR", "localhost:6379"),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
