// Package redis はRedisクライアントの生成を提供します。
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"parking_backend/internal/platform/env"
)

// ErrNotConfigured はRedisの接続先が設定されていないことを示します。
var ErrNotConfigured = errors.New("redis is not configured")

// Config はRedisの接続設定です。
type Config struct {
	URL      string // redis://… 形式。設定されていればHost/Portより優先
	Host     string
	Port     string
	Password string
	DB       int
}

// LoadConfigFromEnv は環境変数からRedisの接続設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		URL:      env.String("REDIS_URL", ""),
		Host:     env.String("REDIS_HOST", ""),
		Port:     env.String("REDIS_PORT", "6379"),
		Password: env.String("REDIS_PASSWORD", ""),
		DB:       env.Int("REDIS_DB", 0),
	}
}

// Options は設定からredis.Optionsを組み立てます。
func (c Config) Options() (*redis.Options, error) {
	if c.URL != "" {
		opt, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opt, nil
	}
	if c.Host == "" {
		return nil, ErrNotConfigured
	}
	return &redis.Options{
		Addr:     c.Host + ":" + c.Port,
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

// NewRedisClient は接続を確認したRedisクライアントを返します。
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	opt, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)

	// 接続確認
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("Redis connection failed", "address", opt.Addr, "error", err)
		_ = rdb.Close()
		return nil, err
	}

	slog.Info("Redis connection successful", "address", opt.Addr)
	return rdb, nil
}
