package usecase

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/platform/imagecodec"
)

// captureTimeLayout はキャプチャファイル名に使う時刻フォーマットです。
const captureTimeLayout = "20060102_150405"

// PlateReader はパイプラインを実行するインターフェースです。
type PlateReader interface {
	Run(ctx context.Context, data []byte) (*entity.PipelineResult, error)
}

// ObjectStorage は画像を保存して公開URLを返すストレージのインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// RecordRepository は検出レコードを永続化するリポジトリインターフェースです。
type RecordRepository interface {
	Insert(ctx context.Context, rec *entity.PlateRecord) error
	ListRecent(ctx context.Context, cameraID string, limit int) ([]entity.PlateRecord, error)
}

// Ingestor はパイプラインの結果を画像ストレージとレコードテーブルへ保存します。
type Ingestor struct {
	reader  PlateReader
	storage ObjectStorage // nilなら画像を保存しない
	records RecordRepository
	now     func() time.Time
}

// NewIngestor はIngestorの新しいインスタンスを生成します。storageはnilでも構いません。
func NewIngestor(reader PlateReader, storage ObjectStorage, records RecordRepository) *Ingestor {
	return &Ingestor{reader: reader, storage: storage, records: records, now: time.Now}
}

// Ingest は1枚の画像を処理し、切り出し画像・注釈画像・レコードを保存します。
// 保存やDB登録の失敗はリクエストを失敗させず、Warningsに記録して返します。
func (i *Ingestor) Ingest(ctx context.Context, cameraID string, data []byte) (*entity.IngestResult, error) {
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}

	result, err := i.reader.Run(ctx, data)
	if err != nil {
		return nil, err
	}

	now := i.now().UTC()
	base := now.Format(captureTimeLayout)
	ext, contentType := imagecodec.Sniff(data)
	out := &entity.IngestResult{
		CameraID: cameraID,
		File:     base + ext,
		Plates:   make([]entity.PlateOutcome, 0, len(result.Records)),
	}
	out.FileURL = i.store(ctx, out, cameraID, out.File, data, contentType)

	for _, r := range result.Records {
		name := fmt.Sprintf("%s_plate_%d.jpg", base, r.Index)
		plateURL := i.upload(ctx, out, cameraID, name, r.Crop)
		slog.Info("プレート認識結果", "camera_id", cameraID, "file", name, "text", r.DisplayText(), "confidence", r.Confidence)
		out.Plates = append(out.Plates, entity.PlateOutcome{
			File:       name,
			Text:       r.DisplayText(),
			PlateURL:   plateURL,
			Confidence: r.Confidence,
		})
	}

	out.SceneURL = i.upload(ctx, out, cameraID, base+"_annotated.jpg", result.Annotated)

	if !out.HasPlates() {
		i.insert(ctx, out, entity.PlateRecord{
			CameraID:  cameraID,
			PlateText: entity.NoPlateText,
			SceneURL:  out.SceneURL,
			Timestamp: now,
			Status:    entity.StatusNew,
		})
		return out, nil
	}

	for _, p := range out.Plates {
		i.insert(ctx, out, entity.PlateRecord{
			CameraID:   cameraID,
			PlateText:  p.Text,
			Confidence: p.Confidence,
			PlateURL:   p.PlateURL,
			SceneURL:   out.SceneURL,
			Timestamp:  now,
			Status:     entity.StatusNew,
		})
	}
	return out, nil
}

// upload はJPEGにエンコードして保存し、公開URLを返します。失敗時はnilです。
func (i *Ingestor) upload(ctx context.Context, out *entity.IngestResult, cameraID, name string, img image.Image) *string {
	if i.storage == nil {
		return nil
	}
	data, err := imagecodec.Encode(img, imagecodec.JPEG)
	if err != nil {
		i.warn(out, "画像のエンコードに失敗", name, err)
		return nil
	}
	return i.store(ctx, out, cameraID, name, data, imagecodec.ContentType(imagecodec.JPEG))
}

// store はバイト列を <camera>/<name> に保存し、公開URLを返します。失敗時はnilです。
func (i *Ingestor) store(ctx context.Context, out *entity.IngestResult, cameraID, name string, data []byte, contentType string) *string {
	if i.storage == nil {
		return nil
	}
	url, err := i.storage.Upload(ctx, cameraID+"/"+name, data, contentType)
	if err != nil {
		i.warn(out, "画像のアップロードに失敗", name, err)
		return nil
	}
	return &url
}

func (i *Ingestor) insert(ctx context.Context, out *entity.IngestResult, rec entity.PlateRecord) {
	if err := i.records.Insert(ctx, &rec); err != nil {
		i.warn(out, "検出レコードの登録に失敗", rec.PlateText, err)
	}
}

func (i *Ingestor) warn(out *entity.IngestResult, msg, subject string, err error) {
	slog.Error(msg, "camera_id", out.CameraID, "subject", subject, "error", err)
	out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", subject, err))
}
