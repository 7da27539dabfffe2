package entity

import (
	"image"
	"time"
)

const (
	// UnreadableText はOCR結果が得られなかった場合の表示用プレースホルダーです。
	UnreadableText = "unreadable"
	// NoPlateText はプレートが1つも検出されなかったキャプチャの記録用テキストです。
	NoPlateText = "no_plate_detected"
	// StatusNew は新規に記録された検出レコードのステータスです。
	StatusNew = "new"
)

// DetectionRecord は生き残った1つのバウンディングボックスに対する処理結果です。
// 生成後に変更されることはありません。
type DetectionRecord struct {
	Index      int         // 検出器出力におけるボックスの順序
	Crop       image.Image // 切り出したプレート画像
	Text       string      // サニタイズ済みテキスト（空なら読めなかった）
	Confidence float32     // 検出の信頼度
	Box        BoundingBox // 元のボックス（クリップ済み）
}

// HasText はOCRテキストが存在するかどうかを返します。
func (r DetectionRecord) HasText() bool { return r.Text != "" }

// DisplayText は表示用テキストを返します。読めなかった場合は "unreadable" になります。
func (r DetectionRecord) DisplayText() string {
	if r.Text == "" {
		return UnreadableText
	}
	return r.Text
}

// PipelineResult はパイプライン1回分の出力です。
type PipelineResult struct {
	Records   []DetectionRecord // 入力ボックス順の検出レコード
	Annotated image.Image       // 注釈付きのシーン全体画像
}

// PlateRecord は永続化される検出レコードです。
type PlateRecord struct {
	ID         uint
	CameraID   string
	PlateText  string
	Confidence float32
	PlateURL   *string
	SceneURL   *string
	Timestamp  time.Time
	Status     string
}
