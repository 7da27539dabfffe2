package usecase

import (
	"time"

	"parking_backend/internal/platform/env"
)

const (
	// DefaultConfidenceThreshold は検出のデフォルト信頼度しきい値です。
	DefaultConfidenceThreshold float32 = 0.5
	// DefaultStageTimeout は検出・OCRの各段階に与える最大時間です。
	DefaultStageTimeout = 30 * time.Second
	// MaxImageSize はアップロード画像の最大サイズ（16MB）です。
	MaxImageSize = 16 << 20
)

// PipelineConfig はパイプラインの固定設定です。
type PipelineConfig struct {
	ConfidenceThreshold float32
	StageTimeout        time.Duration
}

// LoadPipelineConfig は環境変数からパイプライン設定を読み込みます。
func LoadPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ConfidenceThreshold: float32(env.Float("CONFIDENCE_THRESHOLD", float64(DefaultConfidenceThreshold))),
		StageTimeout:        env.Duration("PIPELINE_STAGE_TIMEOUT", DefaultStageTimeout),
	}.withDefaults()
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = DefaultStageTimeout
	}
	return c
}
