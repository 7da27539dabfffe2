// Package api はHTTPエンドポイントのリクエスト・レスポンス型を定義します。
package api

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse は稼働確認用のレスポンスです。
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UploadInfoResponse は GET /upload が返すエンドポイント説明です。
type UploadInfoResponse struct {
	Endpoint       string            `json:"endpoint"`
	Method         string            `json:"method"`
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	ExpectedFields map[string]string `json:"expected_fields"`
	Example        string            `json:"example"`
}

// UploadJSONRequest はTelegramのファイルIDで画像を指定するリクエストです。
type UploadJSONRequest struct {
	TelegramFileID string `json:"telegram_file_id"`
	CameraID       string `json:"camera_id"`
}

// PlateResponse は検出された1枚のプレートです。
type PlateResponse struct {
	File       string  `json:"file"`
	Text       string  `json:"text"`
	PlateURL   *string `json:"plate_url"`
	Confidence float32 `json:"confidence"`
}

// UploadResponse は同期アップロードの結果です。
type UploadResponse struct {
	Status   string          `json:"status"` // "ok" または "no_plate_detected"
	CameraID string          `json:"camera_id"`
	File     string          `json:"file"`
	FileURL  *string         `json:"file_url"`
	SceneURL *string         `json:"scene_url"`
	Plates   []PlateResponse `json:"plates,omitempty"`
	Message  string          `json:"message"`
	Warnings []string        `json:"warnings,omitempty"`
}

// JobAcceptedResponse は非同期アップロードを受け付けたときのレスポンスです。
type JobAcceptedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse はジョブ状態の照会結果です。
type JobResponse struct {
	JobID     string          `json:"job_id"`
	CameraID  string          `json:"camera_id"`
	Status    string          `json:"status"`
	Result    *UploadResponse `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// RecordResponse は保存済み検出レコードです。
type RecordResponse struct {
	ID         uint    `json:"id"`
	CameraID   string  `json:"camera_id"`
	PlateText  string  `json:"plate_text"`
	Confidence float32 `json:"confidence"`
	PlateURL   *string `json:"plate_url"`
	SceneURL   *string `json:"scene_url"`
	Timestamp  string  `json:"timestamp"`
	Status     string  `json:"status"`
}
