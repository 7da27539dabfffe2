package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockBot はBotインターフェースのモック実装です。送信したメッセージを記録します。
type mockBot struct {
	GetFileDirectURLFunc func(fileID string) (string, error)

	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (m *mockBot) GetFileDirectURL(fileID string) (string, error) {
	return m.GetFileDirectURLFunc(fileID)
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockBot) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Text)
	}
	return out
}

type mockFiles struct {
	FetchFileFunc func(ctx context.Context, fileID string) ([]byte, error)
}

func (m *mockFiles) FetchFile(ctx context.Context, fileID string) ([]byte, error) {
	return m.FetchFileFunc(ctx, fileID)
}

type mockEnqueuer struct {
	EnqueueFunc func(ctx context.Context, cameraID string, data []byte, onDone usecase.JobCallback) (*entity.Job, error)
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, cameraID string, data []byte, onDone usecase.JobCallback) (*entity.Job, error) {
	return m.EnqueueFunc(ctx, cameraID, data, onDone)
}

func post(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/telegram-webhook", h.Handle)
	req := httptest.NewRequest(http.MethodPost, "/telegram-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_Handle(t *testing.T) {
	t.Parallel()

	const photoUpdate = `{"update_id":1,"message":{"message_id":10,"chat":{"id":42,"type":"private"},
		"photo":[{"file_id":"small","file_unique_id":"s","width":90,"height":60},
		         {"file_id":"large","file_unique_id":"l","width":1280,"height":960},
		         {"file_id":"medium","file_unique_id":"m","width":320,"height":240}]}}`

	doneJob := entity.Job{ID: "j1", Status: entity.JobDone, Result: &entity.IngestResult{
		Plates: []entity.PlateOutcome{{Text: "ABC123", Confidence: 0.91}, {Text: "unreadable", Confidence: 0.5}},
	}}

	tests := []struct {
		name          string
		body          string
		fetch         func(ctx context.Context, fileID string) ([]byte, error)
		enqueue       func(ctx context.Context, cameraID string, data []byte, onDone usecase.JobCallback) (*entity.Job, error)
		expectedTexts []string
	}{
		{
			name: "largest photo is enqueued and result is replied",
			body: photoUpdate,
			fetch: func(_ context.Context, fileID string) ([]byte, error) {
				return []byte("img:" + fileID), nil
			},
			enqueue: func(_ context.Context, cameraID string, data []byte, onDone usecase.JobCallback) (*entity.Job, error) {
				if cameraID != DefaultCameraID || string(data) != "img:large" {
					return nil, errors.New("unexpected job input: " + cameraID + " " + string(data))
				}
				onDone(doneJob)
				return &entity.Job{ID: "j1", Status: entity.JobQueued}, nil
			},
			expectedTexts: []string{"Detected 2 plate(s):\n1. ABC123 (91%)\n2. unreadable (50%)", replyAccepted},
		},
		{
			name: "image document is accepted",
			body: `{"update_id":2,"message":{"message_id":11,"chat":{"id":42,"type":"private"},
				"document":{"file_id":"doc","file_unique_id":"d","mime_type":"image/png"}}}`,
			fetch: func(_ context.Context, fileID string) ([]byte, error) {
				return []byte(fileID), nil
			},
			enqueue: func(_ context.Context, _ string, _ []byte, onDone usecase.JobCallback) (*entity.Job, error) {
				onDone(entity.Job{Status: entity.JobDone, Result: &entity.IngestResult{}})
				return &entity.Job{ID: "j2"}, nil
			},
			expectedTexts: []string{replyNoPlate, replyAccepted},
		},
		{
			name:          "text message gets help",
			body:          `{"update_id":3,"message":{"message_id":12,"chat":{"id":42,"type":"private"},"text":"hello"}}`,
			expectedTexts: []string{replyHelp},
		},
		{
			name:          "non-image document gets help",
			body:          `{"update_id":4,"message":{"message_id":13,"chat":{"id":42,"type":"private"},"document":{"file_id":"x","file_unique_id":"x","mime_type":"application/pdf"}}}`,
			expectedTexts: []string{replyHelp},
		},
		{
			name: "download failure is reported",
			body: photoUpdate,
			fetch: func(context.Context, string) ([]byte, error) {
				return nil, errors.New("timeout")
			},
			expectedTexts: []string{"Could not download the photo."},
		},
		{
			name: "full queue is reported",
			body: photoUpdate,
			fetch: func(context.Context, string) ([]byte, error) {
				return []byte("img"), nil
			},
			enqueue: func(context.Context, string, []byte, usecase.JobCallback) (*entity.Job, error) {
				return nil, usecase.ErrQueueFull
			},
			expectedTexts: []string{replyBusy},
		},
		{
			name:          "update without message is ignored",
			body:          `{"update_id":5,"edited_message":{"message_id":1,"chat":{"id":1,"type":"private"}}}`,
			expectedTexts: []string{},
		},
		{
			name:          "malformed body is ignored",
			body:          `{not json`,
			expectedTexts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bot := &mockBot{}
			h := NewWebhookHandler(bot, &mockFiles{FetchFileFunc: tt.fetch}, &mockEnqueuer{EnqueueFunc: tt.enqueue}, "")

			w := post(t, h, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"ok":true}`, w.Body.String())
			assert.Equal(t, tt.expectedTexts, bot.texts())
		})
	}
}

func TestWebhookHandler_RepliesToOriginalMessage(t *testing.T) {
	t.Parallel()

	bot := &mockBot{}
	h := NewWebhookHandler(bot, nil, nil, "GATE")
	post(t, h, `{"update_id":1,"message":{"message_id":77,"chat":{"id":-100,"type":"group"},"text":"hi"}}`)

	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(-100), bot.sent[0].ChatID)
	assert.Equal(t, 77, bot.sent[0].ReplyToMessageID)
}

func TestFormatReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		job  entity.Job
		want string
	}{
		{"failed", entity.Job{Status: entity.JobFailed, Error: "image could not be decoded"}, "Could not process the photo: image could not be decoded"},
		{"done without result", entity.Job{Status: entity.JobDone}, replyNoPlate},
		{"one plate", entity.Job{Status: entity.JobDone, Result: &entity.IngestResult{Plates: []entity.PlateOutcome{{Text: "XY9", Confidence: 0.666}}}}, "Detected 1 plate(s):\n1. XY9 (67%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatReply(tt.job))
		})
	}
}
