package onnx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	platformhttp "parking_backend/internal/platform/http"
)

// EnsureModel はモデルファイルが無ければmodelURLからダウンロードします。
// ファイルが既にある場合は何もしません。
func EnsureModel(ctx context.Context, client *http.Client, path, modelURL string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if modelURL == "" {
		return fmt.Errorf("model %s not found and MODEL_URL is not set", path)
	}

	slog.Info("モデルをダウンロードします", "url", modelURL, "path", path)
	if err := platformhttp.DownloadFile(ctx, client, modelURL, path); err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	return nil
}
