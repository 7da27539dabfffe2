// Package usecase はplatedetectionフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"parking_backend/internal/feature/platedetection/domain"
	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/platform/imagecodec"
)

// Detector は画像から物体を検出するインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type Detector interface {
	// Detect は信頼度がthreshold以上のボックスだけを返します（しきい値と等しいものを含む）。
	Detect(ctx context.Context, img image.Image, threshold float32) ([]entity.BoundingBox, error)
}

// Recognizer は前処理済みのプレート画像から文字列を読み取るインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type Recognizer interface {
	// Recognize は1行モード・英大文字と数字のみの制約で読み取った生テキストを返します。
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Pipeline はデコード → 検出 → 切り出し → 前処理 → OCR → サニタイズ → 注釈 を順に実行します。
// 状態は持たず、複数のgoroutineから同時に呼び出せます。
type Pipeline struct {
	detector   Detector
	recognizer Recognizer
	cfg        PipelineConfig
}

// NewPipeline はPipelineの新しいインスタンスを生成します。
func NewPipeline(d Detector, r Recognizer, cfg PipelineConfig) *Pipeline {
	return &Pipeline{detector: d, recognizer: r, cfg: cfg.withDefaults()}
}

// Run は画像バイト列に対してパイプライン全体を実行します。
// デコードに失敗した場合のみ domain.ErrDecode を返し、それ以外の段階の失敗はログに記録して
// 「検出ゼロ」または「テキストなし」として処理を続けます。
func (p *Pipeline) Run(ctx context.Context, data []byte) (*entity.PipelineResult, error) {
	img, err := imagecodec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	boxes := p.detect(ctx, img)
	crops := FilterAndCrop(img, boxes)

	records := make([]entity.DetectionRecord, 0, len(crops))
	for _, c := range crops {
		records = append(records, entity.DetectionRecord{
			Index:      c.Index,
			Crop:       c.Image,
			Text:       p.recognize(ctx, c),
			Confidence: c.Box.Confidence,
			Box:        c.Box,
		})
	}

	return &entity.PipelineResult{
		Records:   records,
		Annotated: Annotate(img, crops),
	}, nil
}

// detect は検出器を呼び出します。失敗はゼロ検出として扱います。
func (p *Pipeline) detect(ctx context.Context, img image.Image) []entity.BoundingBox {
	start := time.Now()
	boxes, err := callWithTimeout(ctx, p.cfg.StageTimeout, func(ctx context.Context) ([]entity.BoundingBox, error) {
		return p.detector.Detect(ctx, img, p.cfg.ConfidenceThreshold)
	})
	if err != nil {
		slog.Error("プレート検出に失敗", "error", fmt.Errorf("%w: %v", domain.ErrDetection, err))
		return nil
	}
	slog.Info("プレート検出完了", "boxes", len(boxes), "elapsed", time.Since(start))
	return boxes
}

// recognize は前処理とOCRを実行し、サニタイズ済みテキストを返します。失敗時は空文字です。
func (p *Pipeline) recognize(ctx context.Context, c PlateCrop) string {
	raw, err := callWithTimeout(ctx, p.cfg.StageTimeout, func(ctx context.Context) (string, error) {
		binary, err := PreprocessForOCR(c.Image)
		if err != nil {
			return "", fmt.Errorf("preprocess: %w", err)
		}
		return p.recognizer.Recognize(ctx, binary)
	})
	if err != nil {
		slog.Warn("プレート文字認識に失敗", "index", c.Index, "error", fmt.Errorf("%w: %v", domain.ErrRecognition, err))
		return ""
	}
	text, ok := SanitizePlateText(raw)
	if !ok {
		slog.Info("OCR結果が空", "index", c.Index, "raw", raw)
	}
	return text
}

// callWithTimeout はfnを別goroutineで実行し、タイムアウトかパニックをエラーとして返します。
// タイムアウト後もエンジン側の呼び出し自体は完了まで走り続けます。
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome{val: zero, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// KeepConfident は信頼度がthreshold以上のボックスだけを順序を保って返します。
// 検出器アダプタが共通で使います。
func KeepConfident(boxes []entity.BoundingBox, threshold float32) []entity.BoundingBox {
	out := make([]entity.BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence >= threshold {
			out = append(out, b)
		}
	}
	return out
}
