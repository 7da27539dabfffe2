package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"parking_backend/internal/feature/platedetection/usecase"
)

// LocalStorage はローカルディレクトリに保存し、baseURL配下のURLを返します。
type LocalStorage struct {
	dir     string
	baseURL string
}

var _ usecase.ObjectStorage = (*LocalStorage)(nil)

// NewLocalStorage はディレクトリを作成してLocalStorageを生成します。
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir は保存先ディレクトリを返します。
func (s *LocalStorage) Dir() string { return s.dir }

// Upload はファイルを書き込み、URLを返します。同じキーは上書きされます。
func (s *LocalStorage) Upload(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", k, err)
	}
	return s.baseURL + "/" + k, nil
}
