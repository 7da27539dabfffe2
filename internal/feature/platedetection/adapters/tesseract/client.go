// Package tesseract はTesseract OCR（gosseract）によるプレート文字認識を提供します。
package tesseract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/imagecodec"
)

// Recognizer はgosseract.Clientを1つ保持し、呼び出しをmuで直列化します。
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// RecognizerがRecognizerインターフェースを実装していることをコンパイル時に検証します。
var _ usecase.Recognizer = (*Recognizer)(nil)

// NewRecognizer は1行モード・英大文字と数字のみの設定でTesseractを初期化します。
func NewRecognizer(lang string) (*Recognizer, error) {
	if lang == "" {
		lang = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(usecase.PlateWhitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	// plates are not dictionary words
	for _, v := range []gosseract.SettableVariable{"load_system_dawg", "load_freq_dawg"} {
		if err := client.SetVariable(v, "false"); err != nil {
			slog.Warn("Tesseract変数の設定に失敗", "variable", v, "error", err)
		}
	}

	return &Recognizer{client: client}, nil
}

// Recognize はPNGにエンコードした画像をTesseractに渡し、生テキストを返します。
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := imagecodec.Encode(img, imagecodec.PNG)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := r.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

// Close はTesseractのリソースを解放します。
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
