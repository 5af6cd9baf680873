package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
// 所有环境变量只在这里读取
type Config struct {
	Env string // development, staging, production

	Engine    EngineConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Kafka     KafkaConfig
	MySQL     MySQLConfig
	Snowflake int64 // 雪花算法节点 ID (0-1023)

	// Logging
	LogLevel  string
	LogFormat string
}

// EngineConfig 榜单引擎配置
type EngineConfig struct {
	Depth          int    // 榜单深度 K
	MaxID          int    // 预分配的最大标的 ID
	Eager          bool   // 是否预先分配全部标的
	Index          string // skiplist | btree
	QuoteQueueSize int    // 报价队列大小
	EventQueueSize int    // 快照事件队列大小

	StatsInterval time.Duration // 统计日志间隔
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// NATSConfig NATS 配置
type NATSConfig struct {
	URL             string
	QuoteSubject    string
	SnapshotSubject string
	Enabled         bool
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers    []string
	QuoteTopic string
	GroupID    string
	Enabled    bool
}

// MySQLConfig 标的目录数据库配置
type MySQLConfig struct {
	DSN     string
	Enabled bool
}

// Load 从环境变量读取配置（支持 .env）
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Engine: EngineConfig{
			Depth:          getEnvAsInt("TOPS_DEPTH", 10),
			MaxID:          getEnvAsInt("TOPS_MAX_ID", 10000),
			Eager:          getEnvAsBool("TOPS_EAGER", false),
			Index:          getEnv("TOPS_RANK_INDEX", "skiplist"),
			QuoteQueueSize: getEnvAsInt("TOPS_QUOTE_QUEUE", 10000),
			EventQueueSize: getEnvAsInt("TOPS_EVENT_QUEUE", 1024),
			StatsInterval:  getEnvAsDuration("TOPS_STATS_INTERVAL", "10s"),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		NATS: NATSConfig{
			URL:             getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			QuoteSubject:    getEnv("NATS_QUOTE_SUBJECT", "quotes"),
			SnapshotSubject: getEnv("NATS_SNAPSHOT_SUBJECT", "topstocks.snapshots"),
			Enabled:         getEnvAsBool("NATS_ENABLED", false),
		},

		Kafka: KafkaConfig{
			Brokers:    getEnvAsList("KAFKA_BROKERS", "localhost:9092"),
			QuoteTopic: getEnv("KAFKA_QUOTE_TOPIC", "quotes"),
			GroupID:    getEnv("KAFKA_GROUP_ID", "topstocks"),
			Enabled:    getEnvAsBool("KAFKA_ENABLED", false),
		},

		MySQL: MySQLConfig{
			DSN:     getEnv("MYSQL_DSN", ""),
			Enabled: getEnvAsBool("MYSQL_ENABLED", false),
		},

		Snowflake: int64(getEnvAsInt("SNOWFLAKE_NODE", 1)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate 校验配置
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.Engine.Depth <= 0 {
		return fmt.Errorf("TOPS_DEPTH must be positive, got %d", c.Engine.Depth)
	}
	if c.Engine.MaxID < 0 {
		return fmt.Errorf("TOPS_MAX_ID must not be negative, got %d", c.Engine.MaxID)
	}
	if c.Engine.Index != "skiplist" && c.Engine.Index != "btree" {
		return fmt.Errorf("TOPS_RANK_INDEX must be skiplist or btree, got %q", c.Engine.Index)
	}
	if c.Engine.QuoteQueueSize <= 0 || c.Engine.EventQueueSize <= 0 {
		return fmt.Errorf("queue sizes must be positive")
	}
	if c.Snowflake < 0 || c.Snowflake > 1023 {
		return fmt.Errorf("SNOWFLAKE_NODE must be in [0, 1023], got %d", c.Snowflake)
	}
	if c.MySQL.Enabled && c.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required when MYSQL_ENABLED")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED")
	}
	return nil
}

// loadEnvFile 按顺序尝试加载 .env
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// LoadFile 加载指定的 env 文件（--config 参数）
func LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvAsList(key, defaultValue string) []string {
	var res []string
	for _, s := range strings.Split(getEnv(key, defaultValue), ",") {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}
