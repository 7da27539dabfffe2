// Package handler はplatedetectionフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parking_backend/internal/api"
	"parking_backend/internal/feature/platedetection/domain"
	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

const (
	// DefaultCameraID はカメラIDが指定されなかった場合の値です。
	DefaultCameraID = "CAM1"
	// HeaderCameraID はESP32カメラがカメラIDを送るヘッダーです。
	HeaderCameraID = "X-Camera-ID"

	statusOK            = "ok"
	statusNoPlate       = "no_plate_detected"
	msgTooLarge         = "File too large. Maximum size is 16MB"
	msgNoImage          = "No image data received"
	msgEmptyImage       = "Empty image data received"
	msgUndecodable      = "Invalid image data - could not decode"
	msgInternal         = "Internal server error"
	msgQueueUnavailable = "Job queue is full, retry later"
)

// Ingestor は1枚の画像を同期的に取り込むユースケースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type Ingestor interface {
	Ingest(ctx context.Context, cameraID string, data []byte) (*entity.IngestResult, error)
}

// JobQueue は非同期取り込みのユースケースです。
type JobQueue interface {
	Enqueue(ctx context.Context, cameraID string, data []byte, onDone usecase.JobCallback) (*entity.Job, error)
	Get(ctx context.Context, id string) (*entity.Job, error)
}

// FileFetcher はTelegramのファイルIDから画像をダウンロードします。
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) ([]byte, error)
}

// UploadHandler は画像アップロードのHTTPリクエストを処理します。
type UploadHandler struct {
	ingestor Ingestor
	queue    JobQueue
	files    FileFetcher // nilならtelegram_file_idは受け付けない
}

// NewUploadHandler はUploadHandlerの新しいインスタンスを生成します。
func NewUploadHandler(ingestor Ingestor, queue JobQueue, files FileFetcher) *UploadHandler {
	return &UploadHandler{ingestor: ingestor, queue: queue, files: files}
}

// Index はサーバーの稼働確認用レスポンスを返します。
//
// エンドポイント: GET /
func (h *UploadHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, api.StatusResponse{Status: statusOK, Message: "Smart Parking Detection Server is running"})
}

// Test は疎通確認用のレスポンスを返します。
//
// エンドポイント: GET /test
func (h *UploadHandler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, api.StatusResponse{Status: statusOK, Message: "Test successful"})
}

// UploadInfo は /upload の使い方を返します。
//
// エンドポイント: GET /upload
func (h *UploadHandler) UploadInfo(c *gin.Context) {
	c.JSON(http.StatusOK, api.UploadInfoResponse{
		Endpoint: "/upload",
		Method:   http.MethodPost,
		Status:   "ready",
		Message:  "This endpoint accepts POST requests with image data",
		ExpectedFields: map[string]string{
			"image":     "multipart/form-data file (required)",
			"camera_id": "string (optional, defaults to CAM1)",
		},
		Example: "curl -X POST https://your-domain/upload -F 'camera_id=CAM1' -F 'image=@photo.jpg'",
	})
}

// Upload は画像を受け取り、検出・OCR・保存を同期的に行います。
//
// エンドポイント: POST /upload
// 画像の取得順: multipartの image → file → JSONの telegram_file_id → リクエストボディそのもの
func (h *UploadHandler) Upload(c *gin.Context) {
	cameraID, data, ok := h.readImage(c)
	if !ok {
		return
	}

	res, err := h.ingestor.Ingest(c.Request.Context(), cameraID, data)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDecode):
			slog.Warn("画像のデコードに失敗", "camera_id", cameraID, "bytes", len(data), "error", err)
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: msgUndecodable})
		case errors.Is(err, usecase.ErrImageTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: msgTooLarge})
		default:
			slog.Error("アップロード処理に失敗", "camera_id", cameraID, "error", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: msgInternal})
		}
		return
	}

	c.JSON(http.StatusOK, toUploadResponse(res))
}

// UploadAsync は画像をジョブキューに登録し、ジョブIDを返します。
//
// エンドポイント: POST /upload/async
func (h *UploadHandler) UploadAsync(c *gin.Context) {
	cameraID, data, ok := h.readImage(c)
	if !ok {
		return
	}

	job, err := h.queue.Enqueue(c.Request.Context(), cameraID, data, nil)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrQueueFull), errors.Is(err, usecase.ErrQueueClosed):
			slog.Warn("ジョブを受け付けられません", "camera_id", cameraID, "error", err)
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: msgQueueUnavailable})
		case errors.Is(err, usecase.ErrImageTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: msgTooLarge})
		default:
			slog.Error("ジョブの登録に失敗", "camera_id", cameraID, "error", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: msgInternal})
		}
		return
	}

	c.JSON(http.StatusAccepted, api.JobAcceptedResponse{JobID: job.ID, Status: string(job.Status)})
}

// readImage はリクエストからカメラIDと画像バイト列を取り出します。
// 失敗した場合はレスポンスを書き込み、okにfalseを返します。
func (h *UploadHandler) readImage(c *gin.Context) (cameraID string, data []byte, ok bool) {
	if c.Request.ContentLength > usecase.MaxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: msgTooLarge})
		return "", nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, usecase.MaxImageSize)

	var err error
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		data, err = readFormImage(c)
		cameraID = c.PostForm("camera_id")
	case gin.MIMEJSON:
		cameraID, data, err = h.readTelegramImage(c)
	default:
		data, err = io.ReadAll(c.Request.Body)
	}

	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: msgTooLarge})
		case errors.Is(err, errNoImage):
			slog.Warn("画像データが見つかりません", "content_type", c.ContentType(), "remote_addr", c.ClientIP())
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: msgNoImage})
		case errors.Is(err, errTelegramDisabled):
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "Telegram integration is not configured"})
		case errors.Is(err, errTelegramFetch):
			slog.Error("Telegramファイルの取得に失敗", "error", err)
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Failed to download Telegram file"})
		default:
			slog.Warn("リクエストの読み取りに失敗", "error", err, "remote_addr", c.ClientIP())
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: msgNoImage})
		}
		return "", nil, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: msgEmptyImage})
		return "", nil, false
	}

	if cameraID == "" {
		cameraID = c.GetHeader(HeaderCameraID)
	}
	if cameraID == "" {
		cameraID = DefaultCameraID
	}
	return cameraID, data, true
}

var (
	errNoImage          = errors.New("no image in request")
	errTelegramDisabled = errors.New("telegram file download is not configured")
	errTelegramFetch    = errors.New("telegram file download failed")
)

func readFormImage(c *gin.Context) ([]byte, error) {
	var (
		file *multipart.FileHeader
		err  error
	)
	for _, field := range []string{"image", "file"} {
		file, err = c.FormFile(field)
		if err == nil {
			break
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, err
		}
	}
	if file == nil {
		return nil, errNoImage
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Filename, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()
	return io.ReadAll(f)
}

func (h *UploadHandler) readTelegramImage(c *gin.Context) (string, []byte, error) {
	var req api.UploadJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", nil, err
	}
	fileID := strings.TrimSpace(req.TelegramFileID)
	if fileID == "" {
		return "", nil, errNoImage
	}
	if h.files == nil {
		return "", nil, errTelegramDisabled
	}
	data, err := h.files.FetchFile(c.Request.Context(), fileID)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errTelegramFetch, err)
	}
	return req.CameraID, data, nil
}
