// Package gemini はGoogle Gemini APIのマルチモーダル入力を使ったプレート文字認識を提供します。
package gemini

import (
	"context"
	"fmt"
	"image"
	"strings"

	"google.golang.org/genai"

	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/imagecodec"
	"parking_backend/internal/shared/ratelimiter"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"

	// noPlateReply はプレートが読めないときにモデルへ返させる語です。
	noPlateReply = "NONE"

	prompt = "This image is a cropped, binarized vehicle license plate. " +
		"Reply with the plate characters only, using uppercase letters A-Z and digits 0-9 " +
		"on a single line with no spaces. If the plate is unreadable, reply " + noPlateReply + "."
)

// PlateReader はGeminiに画像とプロンプトを渡してプレート文字列を読み取ります。
type PlateReader struct {
	client  *genai.Client
	model   string
	limiter ratelimiter.RateLimiterInterface
}

// PlateReaderがRecognizerを実装していることをコンパイル時に検証します。
var _ usecase.Recognizer = (*PlateReader)(nil)

// NewPlateReader はADCを使用してPlateReaderの新しいインスタンスを生成します。
// 環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION（またはGEMINI_API_KEY）が必要です。
func NewPlateReader(ctx context.Context, model string, limiter ratelimiter.RateLimiterInterface) (*PlateReader, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &PlateReader{client: client, model: model, limiter: limiter}, nil
}

// Recognize は画像からプレート文字列を読み取ります。
func (g *PlateReader) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := imagecodec.Encode(img, imagecodec.PNG)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, imagecodec.ContentType(imagecodec.PNG)),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}

	return parseReply(resp.Text()), nil
}

// parseReply はモデルの返答から1行目を取り出し、読めなかった旨の返答を空文字にします。
// プロンプトの指示に従わない返答もあるため、ホワイトリスト外の文字は取り除きます。
func parseReply(reply string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(reply), "\n")
	line = strings.Trim(strings.TrimSpace(line), "`\"'")
	if strings.EqualFold(line, noPlateReply) {
		return ""
	}
	return usecase.RestrictToWhitelist(line)
}
