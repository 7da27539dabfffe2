package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

const (
	replyHelp     = "Send a photo of a vehicle and I will read its license plate."
	replyAccepted = "Photo received, processing…"
	replyBusy     = "The server is busy, please try again in a minute."
	replyNoPlate  = "No license plate detected."
)

// FileFetcher はファイルIDから画像を取得します。
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) ([]byte, error)
}

// Enqueuer は非同期取り込みジョブを登録します。
type Enqueuer interface {
	Enqueue(ctx context.Context, cameraID string, data []byte, onDone usecase.JobCallback) (*entity.Job, error)
}

// WebhookHandler はTelegramのWebhook更新を受け取り、画像をジョブキューに登録します。
// 処理結果は完了時にチャットへ返信します。Telegramの再送を避けるため常に200を返します。
type WebhookHandler struct {
	bot      Bot
	files    FileFetcher
	queue    Enqueuer
	cameraID string
}

// NewWebhookHandler はWebhookHandlerの新しいインスタンスを生成します。
func NewWebhookHandler(bot Bot, files FileFetcher, queue Enqueuer, cameraID string) *WebhookHandler {
	if cameraID == "" {
		cameraID = DefaultCameraID
	}
	return &WebhookHandler{bot: bot, files: files, queue: queue, cameraID: cameraID}
}

// Handle はWebhookリクエストを処理します。
//
// エンドポイント: POST /telegram-webhook
func (h *WebhookHandler) Handle(c *gin.Context) {
	defer c.JSON(http.StatusOK, gin.H{"ok": true})

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		slog.Warn("Telegram更新の解析に失敗", "error", err, "remote_addr", c.ClientIP())
		return
	}

	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID, replyTo := msg.Chat.ID, msg.MessageID

	fileID := imageFileID(msg)
	if fileID == "" {
		h.reply(chatID, replyTo, replyHelp)
		return
	}

	data, err := h.files.FetchFile(c.Request.Context(), fileID)
	if err != nil {
		slog.Error("Telegram画像の取得に失敗", "chat_id", chatID, "error", err)
		h.reply(chatID, replyTo, "Could not download the photo.")
		return
	}

	job, err := h.queue.Enqueue(c.Request.Context(), h.cameraID, data, func(job entity.Job) {
		h.reply(chatID, replyTo, formatReply(job))
	})
	if err != nil {
		slog.Warn("Telegram画像をキューに登録できません", "chat_id", chatID, "error", err)
		h.reply(chatID, replyTo, replyBusy)
		return
	}
	slog.Info("Telegram画像を受付", "chat_id", chatID, "job_id", job.ID, "bytes", len(data))
	h.reply(chatID, replyTo, replyAccepted)
}

func (h *WebhookHandler) reply(chatID int64, replyTo int, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyToMessageID = replyTo
	if _, err := h.bot.Send(m); err != nil {
		slog.Warn("Telegramへの返信に失敗", "chat_id", chatID, "error", err)
	}
}

// imageFileID は最も大きい写真、または画像ドキュメントのファイルIDを返します。
func imageFileID(msg *tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		best := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return best.FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}

func formatReply(job entity.Job) string {
	if job.Status == entity.JobFailed {
		return "Could not process the photo: " + job.Error
	}
	if job.Result == nil || !job.Result.HasPlates() {
		return replyNoPlate
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Detected %d plate(s):", len(job.Result.Plates))
	for i, p := range job.Result.Plates {
		fmt.Fprintf(&b, "\n%d. %s (%.0f%%)", i+1, p.Text, p.Confidence*100)
	}
	return b.String()
}
