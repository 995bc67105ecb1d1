package server

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/Zereker/filesearch/internal/action"
	"github.com/Zereker/filesearch/internal/cache"
	"github.com/Zereker/filesearch/pkg/log"
	"github.com/Zereker/filesearch/pkg/mq"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig    `toml:"server"`
	Log      log.Config      `toml:"log"`
	Upstream upstream.Config `toml:"upstream"`
	Cache    cache.Config    `toml:"cache"`
	Kafka    mq.KafkaConfig  `toml:"kafka"`
	Action   action.Config   `toml:"action"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	Mode string `toml:"mode"` // http, mcp, or both
	Port int    `toml:"port"`

	// IngestTopic 异步摄取任务投递的 topic, 默认 filesearch.ingest
	IngestTopic string `toml:"ingest_topic"`
}

// DefaultIngestTopic 默认摄取 topic
const DefaultIngestTopic = "filesearch.ingest"

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Mode == "" {
		s.Mode = "http" // default mode
	}
	switch s.Mode {
	case "http", "mcp", "both":
		// valid
	default:
		return fmt.Errorf("invalid mode: %s, must be http, mcp, or both", s.Mode)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port is required and must be between 1 and 65535")
	}
	if s.IngestTopic == "" {
		s.IngestTopic = DefaultIngestTopic
	}
	return nil
}

// Validate checks all configuration fields
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("upstream: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}

	if err := c.Action.Validate(); err != nil {
		return fmt.Errorf("action: %w", err)
	}

	return nil
}

// LoadConfig reads and parses the configuration file
func LoadConfig(filename string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
