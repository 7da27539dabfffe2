package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking_backend/internal/api"
	"parking_backend/internal/feature/platedetection/usecase"
)

// JobsHandler は非同期ジョブの状態照会を処理します。
type JobsHandler struct {
	queue JobQueue
}

// NewJobsHandler はJobsHandlerの新しいインスタンスを生成します。
func NewJobsHandler(queue JobQueue) *JobsHandler {
	return &JobsHandler{queue: queue}
}

// Get はジョブの状態と、完了していれば結果を返します。
//
// エンドポイント: GET /v1/jobs/:id
func (h *JobsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	job, err := h.queue.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "job not found"})
			return
		}
		slog.Error("ジョブの取得に失敗", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: msgInternal})
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}
