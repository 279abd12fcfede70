package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	LogConfig        logger.LogConfig `json:"log_config"`
	Database         DatabaseConfig   `json:"database"`
	Redis            RedisConfig      `json:"redis"`
	RateLimit        RateLimitConfig  `json:"rate_limit"`
	AI               AIConfig         `json:"ai"`
	Corpus           CorpusConfig     `json:"corpus"`
	CORSAllowOrigins []string         `json:"cors_allow_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RateLimitConfig carries quota strings in "<count>/<unit>" form,
// e.g. "100/minute". Global applies to every non-exempt route, Chat
// additionally to each client on chat routes.
type RateLimitConfig struct {
	Global string `json:"global"`
	Chat   string `json:"chat"`
}

type AIConfig struct {
	Provider      string          `json:"provider"`
	Model         string          `json:"model"`
	EmbedProvider string          `json:"embed_provider"`
	EmbedModel    string          `json:"embed_model"`
	Timeout       int             `json:"timeout"`
	Data          json.RawMessage `json:"data"`
}

type CorpusConfig struct {
	Dir          string `json:"dir"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	ResyncCron   string `json:"resync_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required")
	}
	if cfg.RateLimit.Global == "" {
		cfg.RateLimit.Global = "1000/minute"
	}
	if cfg.RateLimit.Chat == "" {
		cfg.RateLimit.Chat = "10/minute"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 120
	}
	if cfg.Corpus.Dir == "" {
		return nil, fmt.Errorf("corpus.dir is required")
	}
	if cfg.Corpus.ChunkSize == 0 {
		cfg.Corpus.ChunkSize = 1000
	}
	if cfg.Corpus.ChunkOverlap == 0 {
		cfg.Corpus.ChunkOverlap = 200
	}
	if cfg.Corpus.ChunkOverlap >= cfg.Corpus.ChunkSize {
		return nil, fmt.Errorf("corpus.chunk_overlap must be smaller than corpus.chunk_size")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	return &cfg, nil
}
