// Package storage はプレート画像・シーン画像を保存して公開URLを返すバックエンドを提供します。
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/env"
	platformhttp "parking_backend/internal/platform/http"
)

// Backend names accepted by STORAGE_BACKEND.
const (
	BackendSupabase = "supabase"
	BackendS3       = "s3"
	BackendLocal    = "local"
	BackendNone     = "none"
)

// ErrInvalidKey はオブジェクトキーが空、または上位ディレクトリを指していることを示します。
var ErrInvalidKey = errors.New("invalid object key")

// Config は画像ストレージの設定です。
type Config struct {
	Backend string

	SupabaseURL string
	SupabaseKey string
	Bucket      string

	S3Bucket        string
	S3Region        string
	S3PublicBaseURL string

	LocalDir     string
	LocalBaseURL string

	Timeout time.Duration
}

// LoadConfigFromEnv は環境変数からストレージ設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		Backend:         env.String("STORAGE_BACKEND", BackendSupabase),
		SupabaseURL:     env.String("SUPABASE_URL", ""),
		SupabaseKey:     env.String("SUPABASE_KEY", ""),
		Bucket:          env.String("SUPABASE_BUCKET", "violations"),
		S3Bucket:        env.String("S3_BUCKET", ""),
		S3Region:        env.String("AWS_REGION", ""),
		S3PublicBaseURL: env.String("S3_PUBLIC_BASE_URL", ""),
		LocalDir:        env.String("LOCAL_STORAGE_DIR", "uploads"),
		LocalBaseURL:    env.String("LOCAL_STORAGE_BASE_URL", "/uploads"),
		Timeout:         env.Duration("STORAGE_TIMEOUT", 30*time.Second),
	}
}

// New は設定に応じたストレージを返します。BackendNoneのときは (nil, nil) を返します。
func New(ctx context.Context, cfg Config) (usecase.ObjectStorage, error) {
	switch cfg.Backend {
	case BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, errors.New("SUPABASE_URL and SUPABASE_KEY are required for supabase storage")
		}
		return NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket, platformhttp.NewHTTPClient(cfg.Timeout)), nil
	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3_BUCKET is required for s3 storage")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewS3Storage(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3PublicBaseURL, awsCfg.Region), nil
	case BackendLocal:
		st, err := NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
}

// cleanKey はキーを正規化し、空のキーや上位ディレクトリへの参照を拒否します。
func cleanKey(key string) (string, error) {
	raw := strings.ReplaceAll(key, "\\", "/")
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	k := strings.TrimPrefix(path.Clean("/"+raw), "/")
	if k == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}
