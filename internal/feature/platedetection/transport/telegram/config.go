// Package telegram はTelegramボット経由の画像取り込みを提供します。
package telegram

import (
	"errors"

	"parking_backend/internal/platform/env"
)

// DefaultCameraID はTelegram経由の画像に付けるカメラIDです。
const DefaultCameraID = "TELEGRAM"

// ErrNotConfigured はボットトークンが設定されていないことを示します。
var ErrNotConfigured = errors.New("TELEGRAM_BOT_TOKEN is not set")

// Config はTelegram連携の設定です。
type Config struct {
	BotToken   string
	WebhookURL string // 例: https://your-domain/telegram-webhook
	CameraID   string
}

// LoadConfig は環境変数からTelegram設定を読み込みます。
func LoadConfig() (Config, error) {
	cfg := Config{
		BotToken:   env.String("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL: env.String("WEBHOOK_URL", ""),
		CameraID:   env.String("TELEGRAM_CAMERA_ID", DefaultCameraID),
	}
	if cfg.BotToken == "" {
		return cfg, ErrNotConfigured
	}
	return cfg, nil
}
