package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking_backend/internal/api"
	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

// RecordsUsecase は保存済み検出レコードを参照するユースケースです。
type RecordsUsecase interface {
	ListRecent(ctx context.Context, cameraID string, limit int) ([]entity.PlateRecord, error)
}

// RecordsHandler は検出レコード一覧のHTTPリクエストを処理します。
type RecordsHandler struct {
	uc RecordsUsecase
}

// NewRecordsHandler はRecordsHandlerの新しいインスタンスを生成します。
func NewRecordsHandler(uc RecordsUsecase) *RecordsHandler {
	return &RecordsHandler{uc: uc}
}

// List は最新の検出レコードを新しい順に返します。
//
// エンドポイント例:
// GET /v1/records?camera_id=CAM1&limit=50
func (h *RecordsHandler) List(c *gin.Context) {
	cameraID := c.Query("camera_id")
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}

	recs, err := h.uc.ListRecent(c.Request.Context(), cameraID, limit)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidLimit) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("検出レコードの取得に失敗", "camera_id", cameraID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: msgInternal})
		return
	}

	out := make([]api.RecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toRecordResponse(r))
	}
	c.JSON(http.StatusOK, out)
}
