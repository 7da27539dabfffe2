package onnx

import (
	"encoding/json"
	"fmt"
	"os"

	"parking_backend/internal/platform/env"
)

const (
	// DefaultModelPath はYOLOv8プレート検出モデルのデフォルトパスです。
	DefaultModelPath = "models/best.onnx"
	// DefaultImageSize は推論時の入力解像度（正方形の一辺）です。
	DefaultImageSize = 320
	// DefaultIoU はNMSで重複とみなすIoUしきい値です。
	DefaultIoU float32 = 0.7
)

// Metadata はモデルの入出力形状とクラス名です。
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Config はONNX検出器の設定です。
type Config struct {
	ModelPath    string
	MetadataPath string // 空ならプレート1クラスのYOLOv8出力を仮定
	LibraryPath  string // onnxruntime共有ライブラリ。空ならデフォルト探索
	ModelURL     string // モデルが無い場合のダウンロード元
	InputName    string
	OutputName   string
	ImageSize    int
	IoU          float32
}

// LoadConfig は環境変数から検出器の設定を読み込みます。
func LoadConfig() Config {
	return Config{
		ModelPath:    env.String("MODEL_PATH", DefaultModelPath),
		MetadataPath: env.String("MODEL_METADATA_PATH", ""),
		LibraryPath:  env.String("ONNXRUNTIME_LIB", ""),
		ModelURL:     env.String("MODEL_URL", ""),
		InputName:    env.String("MODEL_INPUT_NAME", "images"),
		OutputName:   env.String("MODEL_OUTPUT_NAME", "output0"),
		ImageSize:    env.Int("DETECTOR_IMAGE_SIZE", DefaultImageSize),
		IoU:          float32(env.Float("DETECTOR_NMS_IOU", float64(DefaultIoU))),
	}
}

// DefaultMetadata はimageSize入力・プレート1クラスのYOLOv8モデルの形状を返します。
// 出力は [1, 4+クラス数, アンカー数] で、アンカー数はストライド8/16/32の格子点の合計です。
func DefaultMetadata(imageSize int) Metadata {
	anchors := int64(0)
	for _, stride := range []int{8, 16, 32} {
		n := int64(imageSize / stride)
		anchors += n * n
	}
	return Metadata{
		InputShape:  []int64{1, 3, int64(imageSize), int64(imageSize)},
		OutputShape: []int64{1, 5, anchors},
		Classes:     []string{"plate"},
		ImageSize:   imageSize,
	}
}

// LoadMetadata はJSONファイルからメタデータを読み込みます。
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return m, m.validate()
}

func (m Metadata) validate() error {
	if len(m.InputShape) != 4 || m.InputShape[1] != 3 || m.InputShape[2] != m.InputShape[3] {
		return fmt.Errorf("unsupported input shape %v: want [1,3,S,S]", m.InputShape)
	}
	if len(m.OutputShape) != 3 || m.OutputShape[1] != int64(4+len(m.Classes)) {
		return fmt.Errorf("output shape %v does not match %d classes", m.OutputShape, len(m.Classes))
	}
	if m.ImageSize == 0 {
		return fmt.Errorf("image_size is required")
	}
	if int64(m.ImageSize) != m.InputShape[2] {
		return fmt.Errorf("image_size %d does not match input shape %v", m.ImageSize, m.InputShape)
	}
	return nil
}
