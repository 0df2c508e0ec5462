package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Blockchain BlockchainConfig
	Sync       SyncConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
}

// BlockchainConfig holds chain RPC endpoints and the governance
// registry contract addresses per network
type BlockchainConfig struct {
	DefaultNetwork  string
	RPCURLs         map[string]string
	RegistryAddress map[string]string
}

// SyncConfig tunes the ingestion pipeline and the reconciliation sweep
type SyncConfig struct {
	Interval          time.Duration // full sweep period
	MaxRetryAttempts  int           // per-event ingestion retry cap
	RetryDelay        time.Duration // base backoff, doubled per attempt
	BatchSize         int           // max events drained per wake-up
	ChainCallTimeout  time.Duration // bound on every chain client call
	ConsistencyWindow time.Duration // rows updated within count as synced
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "community_gov"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Blockchain: BlockchainConfig{
			DefaultNetwork: getEnv("CHAIN_DEFAULT_NETWORK", "base-sepolia"),
			RPCURLs: map[string]string{
				"base-sepolia": getEnv("BASE_SEPOLIA_RPC_URL", "https://sepolia.base.org"),
				"bsc-testnet":  getEnv("BSC_TESTNET_RPC_URL", "https://data-seed-prebsc-1-s1.binance.org:8545"),
			},
			RegistryAddress: map[string]string{
				"base-sepolia": getEnv("BASE_SEPOLIA_REGISTRY_ADDRESS", ""),
				"bsc-testnet":  getEnv("BSC_TESTNET_REGISTRY_ADDRESS", ""),
			},
		},
		Sync: SyncConfig{
			Interval:          getEnvAsDuration("SYNC_INTERVAL", 5*time.Minute),
			MaxRetryAttempts:  getEnvAsInt("MAX_EVENT_RETRY_ATTEMPTS", 3),
			RetryDelay:        getEnvAsDuration("EVENT_RETRY_DELAY", 5*time.Second),
			BatchSize:         getEnvAsInt("EVENT_BATCH_SIZE", 10),
			ChainCallTimeout:  getEnvAsDuration("CHAIN_CALL_TIMEOUT", 10*time.Second),
			ConsistencyWindow: getEnvAsDuration("CONSISTENCY_WINDOW", 24*time.Hour),
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
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
