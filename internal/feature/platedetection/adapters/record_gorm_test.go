package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking_backend/internal/feature/platedetection/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	// every pooled connection to :memory: would get its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&RecordModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func seedRecord(t *testing.T, db *gorm.DB, cameraID, text string, ts time.Time) *RecordModel {
	t.Helper()

	m := &RecordModel{CameraID: cameraID, PlateText: text, Confidence: 0.8, Timestamp: ts, Status: entity.StatusNew}
	require.NoError(t, db.Create(m).Error, "failed to seed record")
	return m
}

func strPtr(s string) *string { return &s }

func TestNewRecordRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewRecordRepository(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestRecordGorm_Insert(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name     string
		rec      entity.PlateRecord
		validate func(t *testing.T, db *gorm.DB, rec entity.PlateRecord)
	}{
		{
			name: "success: plate with urls",
			rec: entity.PlateRecord{
				CameraID: "CAM1", PlateText: "AB12CD", Confidence: 0.91,
				PlateURL: strPtr("https://x/p.jpg"), SceneURL: strPtr("https://x/s.jpg"),
				Timestamp: ts, Status: entity.StatusNew,
			},
			validate: func(t *testing.T, db *gorm.DB, rec entity.PlateRecord) {
				var m RecordModel
				require.NoError(t, db.First(&m, rec.ID).Error)
				assert.Equal(t, "AB12CD", m.PlateText)
				assert.InDelta(t, 0.91, m.Confidence, 1e-6)
				require.NotNil(t, m.PlateURL)
				assert.Equal(t, "https://x/p.jpg", *m.PlateURL)
				assert.True(t, ts.Equal(m.Timestamp))
			},
		},
		{
			name: "success: no plate record with null urls and default status",
			rec:  entity.PlateRecord{CameraID: "CAM2", PlateText: entity.NoPlateText, Timestamp: ts},
			validate: func(t *testing.T, db *gorm.DB, rec entity.PlateRecord) {
				var m RecordModel
				require.NoError(t, db.First(&m, rec.ID).Error)
				assert.Nil(t, m.PlateURL)
				assert.Nil(t, m.SceneURL)
				assert.Equal(t, entity.StatusNew, m.Status)
				assert.Zero(t, m.Confidence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			repo := NewRecordRepository(db)

			rec := tt.rec
			require.NoError(t, repo.Insert(context.Background(), &rec))
			assert.NotZero(t, rec.ID, "ID should be written back")
			tt.validate(t, db, rec)
		})
	}
}

func TestRecordGorm_ListRecent(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		cameraID  string
		limit     int
		wantTexts []string
	}{
		{name: "success: all cameras newest first", cameraID: "", limit: 10, wantTexts: []string{"C3", "B2", "A1"}},
		{name: "success: filter by camera", cameraID: "CAM1", limit: 10, wantTexts: []string{"C3", "A1"}},
		{name: "success: limit applied", cameraID: "", limit: 2, wantTexts: []string{"C3", "B2"}},
		{name: "success: unknown camera", cameraID: "NOPE", limit: 10, wantTexts: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			seedRecord(t, db, "CAM1", "A1", base)
			seedRecord(t, db, "CAM2", "B2", base.Add(time.Minute))
			seedRecord(t, db, "CAM1", "C3", base.Add(2*time.Minute))

			got, err := NewRecordRepository(db).ListRecent(context.Background(), tt.cameraID, tt.limit)
			require.NoError(t, err)

			texts := make([]string, 0, len(got))
			for _, r := range got {
				texts = append(texts, r.PlateText)
			}
			assert.Equal(t, tt.wantTexts, texts)
		})
	}
}
