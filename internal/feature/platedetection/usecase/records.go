package usecase

import (
	"context"
	"fmt"

	"parking_backend/internal/feature/platedetection/domain/entity"
)

const (
	// DefaultListLimit は一覧取得のデフォルト件数です。
	DefaultListLimit = 50
	// MaxListLimit は一覧取得の最大件数です。
	MaxListLimit = 500
)

// RecordsUsecase は保存済み検出レコードの参照を提供します。
type RecordsUsecase struct {
	repo RecordRepository
}

// NewRecordsUsecase はRecordsUsecaseの新しいインスタンスを生成します。
func NewRecordsUsecase(repo RecordRepository) *RecordsUsecase {
	return &RecordsUsecase{repo: repo}
}

// ListRecent は新しい順にレコードを返します。cameraIDが空なら全カメラが対象です。
func (u *RecordsUsecase) ListRecent(ctx context.Context, cameraID string, limit int) ([]entity.PlateRecord, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, ErrInvalidLimit
	}
	recs, err := u.repo.ListRecent(ctx, cameraID, limit)
	if err != nil {
		return nil, fmt.Errorf("list records for camera %q: %w", cameraID, err)
	}
	return recs, nil
}
