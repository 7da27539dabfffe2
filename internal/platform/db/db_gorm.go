// Package db はgormによるデータベース接続を提供します。
package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	plateadapters "parking_backend/internal/feature/platedetection/adapters"
	"parking_backend/internal/platform/env"
)

const (
	// DriverPostgres はSupabaseなどのPostgreSQLに接続します。
	DriverPostgres = "postgres"
	// DriverSQLite はローカル開発用のSQLiteファイルを使います。
	DriverSQLite = "sqlite"
)

// retryInterval は接続リトライの間隔です。
var retryInterval = 3 * time.Second

// Config はデータベースの接続設定です。
type Config struct {
	Driver     string
	URL        string // postgres://… 形式。設定されていれば個別項目より優先
	User       string
	Password   string
	Name       string
	Host       string
	Port       string
	SSLMode    string
	SQLitePath string
	Migrate    bool
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		Driver:     env.String("DB_DRIVER", DriverPostgres),
		URL:        env.String("DATABASE_URL", ""),
		User:       env.String("DB_USER", ""),
		Password:   env.String("DB_PASSWORD", ""),
		Name:       env.String("DB_NAME", "postgres"),
		Host:       env.String("DB_HOST", ""),
		Port:       env.String("DB_PORT", "5432"),
		SSLMode:    env.String("DB_SSLMODE", "require"),
		SQLitePath: env.String("SQLITE_PATH", "parking.db"),
		Migrate:    env.Bool("RUN_MIGRATIONS", false),
	}
}

// BuildDSN は接続文字列を組み立てます。
func BuildDSN(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		return cfg.SQLitePath
	}
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
}

// Dialector はドライバに応じたgorm.Dialectorを返します。
func Dialector(cfg Config, dsn string) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// ConnectWithRetry はtimeoutに達するまでopenerを繰り返し呼び出します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener func(dsn string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %v: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err)
		time.Sleep(retryInterval)
	}
}

// OpenDB は接続し、必要ならviolationsテーブルをマイグレーションします。
func OpenDB(cfg Config) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)
	if _, err := Dialector(cfg, dsn); err != nil {
		return nil, err
	}

	db, err := ConnectWithRetry(dsn, 60*time.Second, func(dsn string) (*gorm.DB, error) {
		d, _ := Dialector(cfg, dsn)
		return gorm.Open(d, &gorm.Config{})
	})
	if err != nil {
		return nil, err
	}

	if cfg.Migrate || cfg.Driver == DriverSQLite {
		if err := db.AutoMigrate(&plateadapters.RecordModel{}); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	slog.Info("DB connection successful", "driver", cfg.Driver)
	return db, nil
}
