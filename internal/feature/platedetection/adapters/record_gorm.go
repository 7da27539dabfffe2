package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

type recordGorm struct {
	db *gorm.DB
}

var _ usecase.RecordRepository = (*recordGorm)(nil)

// NewRecordRepository は violations テーブルを扱うリポジトリを生成します。
func NewRecordRepository(db *gorm.DB) *recordGorm {
	return &recordGorm{db: db}
}

// RecordModel は violations テーブルの1行です。
type RecordModel struct {
	ID         uint      `gorm:"primaryKey"`
	CameraID   string    `gorm:"size:64;not null;index:violations_cam_ts,priority:1"`
	PlateText  string    `gorm:"size:64;not null"`
	Confidence float32   `gorm:"not null;default:0"`
	PlateURL   *string   `gorm:"size:1024"`
	SceneURL   *string   `gorm:"size:1024"`
	Timestamp  time.Time `gorm:"not null;index:violations_cam_ts,priority:2"`
	Status     string    `gorm:"size:16;not null;default:new"`
}

func (RecordModel) TableName() string {
	return "violations"
}

func toRecordModel(e *entity.PlateRecord) RecordModel {
	return RecordModel{
		CameraID:   e.CameraID,
		PlateText:  e.PlateText,
		Confidence: e.Confidence,
		PlateURL:   e.PlateURL,
		SceneURL:   e.SceneURL,
		Timestamp:  e.Timestamp.UTC(),
		Status:     e.Status,
	}
}

func toRecordEntity(m RecordModel) entity.PlateRecord {
	return entity.PlateRecord{
		ID:         m.ID,
		CameraID:   m.CameraID,
		PlateText:  m.PlateText,
		Confidence: m.Confidence,
		PlateURL:   m.PlateURL,
		SceneURL:   m.SceneURL,
		Timestamp:  m.Timestamp.UTC(),
		Status:     m.Status,
	}
}

// Insert はレコードを1件追加し、採番されたIDをrecに書き戻します。
func (r *recordGorm) Insert(ctx context.Context, rec *entity.PlateRecord) error {
	m := toRecordModel(rec)
	if m.Status == "" {
		m.Status = entity.StatusNew
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	rec.ID = m.ID
	return nil
}

// ListRecent は新しい順にlimit件を返します。cameraIDが空なら全カメラが対象です。
func (r *recordGorm) ListRecent(ctx context.Context, cameraID string, limit int) ([]entity.PlateRecord, error) {
	var rows []RecordModel
	q := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if cameraID != "" {
		q = q.Where("camera_id = ?", cameraID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.PlateRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, toRecordEntity(m))
	}
	return out, nil
}
