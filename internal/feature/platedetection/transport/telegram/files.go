package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"parking_backend/internal/feature/platedetection/usecase"
	platformhttp "parking_backend/internal/platform/http"
)

// Bot は利用するTelegram Bot APIの操作です。*tgbotapi.BotAPI が満たします。
type Bot interface {
	GetFileDirectURL(fileID string) (string, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Files はTelegramのファイルIDから画像をダウンロードします。
type Files struct {
	bot    Bot
	client *http.Client
}

// NewFiles はFilesの新しいインスタンスを生成します。
func NewFiles(bot Bot, client *http.Client) *Files {
	return &Files{bot: bot, client: client}
}

// FetchFile はファイルをメモリに読み込みます。サイズ上限はアップロードと同じ16MBです。
func (f *Files) FetchFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := f.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve telegram file %s: %w", fileID, err)
	}
	data, err := platformhttp.Fetch(ctx, f.client, url, usecase.MaxImageSize)
	if err != nil {
		if errors.Is(err, platformhttp.ErrTooLarge) {
			return nil, fmt.Errorf("telegram file %s: %w", fileID, err)
		}
		// ダウンロードURLにはボットトークンが含まれるため、エラーメッセージから取り除く
		return nil, fmt.Errorf("download telegram file %s: %s", fileID, strings.ReplaceAll(err.Error(), url, "<file-url>"))
	}
	return data, nil
}
