package entity

import "time"

// JobStatus は非同期ジョブの状態です。
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// IsTerminal はジョブが完了状態（成功・失敗）かどうかを返します。
func (s JobStatus) IsTerminal() bool {
	return s == JobDone || s == JobFailed
}

// Job は非同期で処理される取り込みジョブです。
type Job struct {
	ID        string        `json:"id"`
	CameraID  string        `json:"camera_id"`
	Status    JobStatus     `json:"status"`
	Result    *IngestResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PlateOutcome は1枚のプレートの取り込み結果です。
type PlateOutcome struct {
	File       string  `json:"file"`
	Text       string  `json:"text"`
	PlateURL   *string `json:"plate_url"`
	Confidence float32 `json:"confidence"`
}

// IngestResult は1回の取り込み（検出・OCR・保存）の結果です。
type IngestResult struct {
	CameraID string         `json:"camera_id"`
	File     string         `json:"file"`
	FileURL  *string        `json:"file_url"`
	SceneURL *string        `json:"scene_url"`
	Plates   []PlateOutcome `json:"plates"`
	Warnings []string       `json:"warnings,omitempty"`
}

// HasPlates はプレートが1つ以上検出されたかどうかを返します。
func (r *IngestResult) HasPlates() bool { return len(r.Plates) > 0 }
