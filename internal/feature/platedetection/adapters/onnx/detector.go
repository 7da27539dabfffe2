// Package onnx はonnxruntimeでYOLOv8のプレート検出モデルを実行する検出器を提供します。
package onnx

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

// Detector はYOLOv8 ONNXモデルによるプレート検出器です。
// 入出力テンソルをセッションと共有しているため、推論はmuで直列化します。
type Detector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	meta Metadata
	iou  float32
}

// DetectorがDetectorインターフェースを実装していることをコンパイル時に検証します。
var _ usecase.Detector = (*Detector)(nil)

// NewDetector はモデルを読み込み、セッションを1度だけ生成します。
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.ImageSize <= 0 {
		cfg.ImageSize = DefaultImageSize
	}
	if cfg.IoU <= 0 {
		cfg.IoU = DefaultIoU
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", cfg.ModelPath, err)
	}

	meta := DefaultMetadata(cfg.ImageSize)
	if cfg.MetadataPath != "" {
		m, err := LoadMetadata(cfg.MetadataPath)
		if err != nil {
			return nil, err
		}
		meta = m
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	slog.Info("ONNXモデルを読み込みました", "path", cfg.ModelPath, "classes", meta.Classes, "image_size", meta.ImageSize)
	return &Detector{session: session, input: input, output: output, meta: meta, iou: cfg.IoU}, nil
}

// Detect は画像からボックスを検出し、信頼度がthreshold以上のものを返します。
func (d *Detector) Detect(ctx context.Context, img image.Image, threshold float32) ([]entity.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := d.meta.ImageSize
	b := img.Bounds()

	buf := make([]float32, 3*size*size)
	lb := prepareInput(img, size, buf)

	d.mu.Lock()
	copy(d.input.GetData(), buf)
	if err := d.session.Run(); err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	out := append([]float32(nil), d.output.GetData()...)
	d.mu.Unlock()

	anchors := int(d.meta.OutputShape[2])
	return decodeOutput(out, anchors, d.meta.Classes, threshold, d.iou, lb, b.Dx(), b.Dy()), nil
}

// Close はセッションとテンソルを解放します。
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.input != nil {
		d.input.Destroy()
	}
	if d.output != nil {
		d.output.Destroy()
	}
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}
