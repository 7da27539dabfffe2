// Package rekognition はAmazon Rekognition DetectTextを使ったプレート文字認識を提供します。
package rekognition

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/imagecodec"
)

// TextDetector はRekognitionのDetectTextを呼び出すインターフェースです。
// *rekognition.Client がこれを満たします。
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Recognizer はRekognitionで検出した行のうち、最も信頼度の高いものを返します。
type Recognizer struct {
	api TextDetector
}

// RecognizerがRecognizerインターフェースを実装していることをコンパイル時に検証します。
var _ usecase.Recognizer = (*Recognizer)(nil)

// NewRecognizer はRecognizerの新しいインスタンスを生成します。
func NewRecognizer(cfg aws.Config) *Recognizer {
	return &Recognizer{api: rekognition.NewFromConfig(cfg)}
}

// NewRecognizerWithClient は任意のTextDetectorでRecognizerを生成します。
func NewRecognizerWithClient(api TextDetector) *Recognizer {
	return &Recognizer{api: api}
}

// Recognize はプレート画像から最も確からしい1行を読み取ります。
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := imagecodec.Encode(img, imagecodec.PNG)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	out, err := r.api.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: data},
	})
	if err != nil {
		return "", fmt.Errorf("rekognition DetectText: %w", err)
	}

	text := pickLine(out.TextDetections)
	slog.Debug("Rekognitionの文字検出結果", "detections", len(out.TextDetections), "text", text)
	return text, nil
}

// pickLine はLINE種別の検出から信頼度が最大のものを選び、ホワイトリストの文字だけにして返します。
func pickLine(dets []types.TextDetection) string {
	var best string
	var bestConf float32 = -1
	for _, d := range dets {
		if d.Type != types.TextTypesLine || d.DetectedText == nil {
			continue
		}
		conf := aws.ToFloat32(d.Confidence)
		if conf > bestConf {
			best = usecase.RestrictToWhitelist(*d.DetectedText)
			bestConf = conf
		}
	}
	return best
}
