package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Everything comes from the
// environment so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// RecordStoreBackend selects where records live: memory, redis, postgres.
	RecordStoreBackend string
	RedisURL           string
	PostgresURL        string

	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers    []string
	AuditTopic      string
	ShutdownTimeout time.Duration

	// Bootstrap values for the subscription config when BOOTSTRAP_ADMIN is
	// set; prices in the smallest native unit, duration in seconds.
	BootstrapAdmin    string
	BootstrapTreasury string
	BasicPrice        uint64
	ProPrice          uint64
	AlphaPrice        uint64
	DurationSeconds   int64
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("TOKENSAFE_ADDR", ":8080"),
		JWTSigningKey:      envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RecordStoreBackend: envOr("RECORD_STORE", "memory"),
		RedisURL:           os.Getenv("REDIS_URL"),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		AuditTopic:         envOr("AUDIT_TOPIC", "tokensafe.audit"),
		ShutdownTimeout:    10 * time.Second,
		BootstrapAdmin:     os.Getenv("BOOTSTRAP_ADMIN"),
		BootstrapTreasury:  os.Getenv("BOOTSTRAP_TREASURY"),
		BasicPrice:         envUint("BASIC_PRICE", 100_000_000),
		ProPrice:           envUint("PRO_PRICE", 500_000_000),
		AlphaPrice:         envUint("ALPHA_PRICE", 1_000_000_000),
		DurationSeconds:    envInt("SUBSCRIPTION_DURATION_SECONDS", 30*24*60*60),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
