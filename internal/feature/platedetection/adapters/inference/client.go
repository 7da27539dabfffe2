// Package inference は外部の推論サービス（YOLOを載せたHTTPサーバー）を使う検出器を提供します。
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/imagecodec"
)

// detection は推論サービスが返す1件の検出結果です。
type detection struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float32 `json:"confidence"`
}

type detectResponse struct {
	Detections []detection `json:"detections"`
}

// RemoteDetector は画像をmultipartで推論サービスに送り、検出結果を受け取ります。
// 状態を持たないため並行に呼び出せます。
type RemoteDetector struct {
	baseURL string
	client  *http.Client
}

// RemoteDetectorがDetectorを実装していることをコンパイル時に検証します。
var _ usecase.Detector = (*RemoteDetector)(nil)

// NewRemoteDetector はRemoteDetectorの新しいインスタンスを生成します。
func NewRemoteDetector(baseURL string, client *http.Client) *RemoteDetector {
	return &RemoteDetector{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Detect は画像をPNGで送信し、信頼度がthreshold以上のボックスを返します。
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image, threshold float32) ([]entity.BoundingBox, error) {
	data, err := imagecodec.Encode(img, imagecodec.PNG)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.WriteField("conf", strconv.FormatFloat(float64(threshold), 'f', -1, 32)); err != nil {
		return nil, fmt.Errorf("write conf field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	boxes := make([]entity.BoundingBox, 0, len(result.Detections))
	for _, det := range result.Detections {
		boxes = append(boxes, entity.BoundingBox{
			X1:         det.X,
			Y1:         det.Y,
			X2:         det.X + det.Width,
			Y2:         det.Y + det.Height,
			Label:      det.Class,
			Confidence: det.Confidence,
		})
	}
	// the service may ignore conf, so filter here too
	return usecase.KeepConfident(boxes, threshold), nil
}

// CheckHealth は推論サービスの死活を確認します。
func (d *RemoteDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
