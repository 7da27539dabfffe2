package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_backend/internal/api"
	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/transport/handler"
	"parking_backend/internal/feature/platedetection/usecase"
)

type fixedDetector struct{ boxes []entity.BoundingBox }

func (d fixedDetector) Detect(_ context.Context, _ image.Image, threshold float32) ([]entity.BoundingBox, error) {
	return usecase.KeepConfident(d.boxes, threshold), nil
}

// flakyRecognizer は1回目の呼び出しだけ失敗します。
type flakyRecognizer struct{ calls atomic.Int32 }

func (r *flakyRecognizer) Recognize(context.Context, image.Image) (string, error) {
	if r.calls.Add(1) == 1 {
		return "", errors.New("tesseract crashed")
	}
	return "abc-123\n", nil
}

type recordSink struct{ inserted atomic.Int32 }

func (s *recordSink) Insert(context.Context, *entity.PlateRecord) error {
	s.inserted.Add(1)
	return nil
}

func (s *recordSink) ListRecent(context.Context, string, int) ([]entity.PlateRecord, error) {
	return nil, nil
}

func sceneBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 160, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 160; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestUpload_RecognitionFailureKeepsOtherPlates は1つのクロップでOCRが失敗しても
// 他のプレートの結果が残り、リクエスト全体は200で成功することを検証します。
func TestUpload_RecognitionFailureKeepsOtherPlates(t *testing.T) {
	t.Parallel()

	det := fixedDetector{boxes: []entity.BoundingBox{
		{X1: 10, Y1: 10, X2: 60, Y2: 30, Label: "plate", Confidence: 0.9},
		{X1: 80, Y1: 40, X2: 150, Y2: 70, Label: "Plate", Confidence: 0.5},
		{X1: 0, Y1: 0, X2: 20, Y2: 20, Label: "plate", Confidence: 0.49},
	}}
	sink := &recordSink{}
	pipeline := usecase.NewPipeline(det, &flakyRecognizer{}, usecase.PipelineConfig{})
	ingestor := usecase.NewIngestor(pipeline, nil, sink)
	h := handler.NewUploadHandler(ingestor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(sceneBytes(t)))
	req.Header.Set(handler.HeaderCameraID, "CAM7")
	w := httptest.NewRecorder()
	newUploadRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res api.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "CAM7", res.CameraID)
	require.Len(t, res.Plates, 2)
	assert.Equal(t, "unreadable", res.Plates[0].Text)
	assert.Equal(t, "abc123", res.Plates[1].Text)
	assert.InDelta(t, 0.5, res.Plates[1].Confidence, 1e-6)
	assert.Nil(t, res.SceneURL)
	assert.Equal(t, int32(2), sink.inserted.Load())
}
