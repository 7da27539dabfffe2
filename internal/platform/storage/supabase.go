package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"parking_backend/internal/feature/platedetection/usecase"
)

// SupabaseStorage はSupabase StorageのREST APIにアップロードします（上書き可）。
type SupabaseStorage struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
}

var _ usecase.ObjectStorage = (*SupabaseStorage)(nil)

// NewSupabaseStorage はSupabaseStorageの新しいインスタンスを生成します。
func NewSupabaseStorage(baseURL, key, bucket string, client *http.Client) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
		client:  client,
	}
}

// Upload はオブジェクトを保存し、公開URLを返します。
func (s *SupabaseStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, k)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("supabase upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return s.PublicURL(k), nil
}

// PublicURL は公開バケット内のオブジェクトURLを返します。
func (s *SupabaseStorage) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}
