// Package vision はGoogle Cloud Vision APIを使用したプレート検出・文字認識クライアントを提供します。
package vision

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/imagecodec"
)

// plateObjectName はObject Localizationが返すナンバープレートの名前です。
const plateObjectName = "License plate"

// Client はVision APIで検出（OBJECT_LOCALIZATION）と文字認識（TEXT_DETECTION）を行います。
type Client struct {
	api *gvision.ImageAnnotatorClient
}

// ClientがDetectorとRecognizerを実装していることをコンパイル時に検証します。
var (
	_ usecase.Detector   = (*Client)(nil)
	_ usecase.Recognizer = (*Client)(nil)
)

// NewClient はADCを使用してClientの新しいインスタンスを生成します。
func NewClient(ctx context.Context) (*Client, error) {
	api, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &Client{api: api}, nil
}

// Close はVision APIクライアントを解放します。
func (c *Client) Close() error {
	return c.api.Close()
}

// Detect は画像内のナンバープレートを検出します。ラベルは "plate" に正規化されます。
func (c *Client) Detect(ctx context.Context, img image.Image, threshold float32) ([]entity.BoundingBox, error) {
	res, err := c.annotate(ctx, img, visionpb.Feature_OBJECT_LOCALIZATION)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	boxes := boxesFromObjects(res.GetLocalizedObjectAnnotations(), b.Dx(), b.Dy())
	return usecase.KeepConfident(boxes, threshold), nil
}

// Recognize は前処理済みのプレート画像から最初の1行のテキストを読み取ります。
func (c *Client) Recognize(ctx context.Context, img image.Image) (string, error) {
	res, err := c.annotate(ctx, img, visionpb.Feature_TEXT_DETECTION)
	if err != nil {
		return "", err
	}
	return textFromAnnotations(res.GetTextAnnotations()), nil
}

func (c *Client) annotate(ctx context.Context, img image.Image, feature visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	data, err := imagecodec.Encode(img, imagecodec.PNG)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:    &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{{Type: feature}},
			},
		},
	}

	resp, err := c.api.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return &visionpb.AnnotateImageResponse{}, nil
	}
	if resp.Responses[0].Error != nil {
		return nil, fmt.Errorf("vision API error: %s", resp.Responses[0].Error.Message)
	}
	return resp.Responses[0], nil
}

// boxesFromObjects は正規化座標のポリゴンを画素座標の外接矩形に変換します。
func boxesFromObjects(objs []*visionpb.LocalizedObjectAnnotation, width, height int) []entity.BoundingBox {
	boxes := make([]entity.BoundingBox, 0, len(objs))
	for _, o := range objs {
		verts := o.GetBoundingPoly().GetNormalizedVertices()
		if len(verts) == 0 {
			continue
		}
		minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
		maxX, maxY := float32(-math.MaxFloat32), float32(-math.MaxFloat32)
		for _, v := range verts {
			minX, maxX = min(minX, v.GetX()), max(maxX, v.GetX())
			minY, maxY = min(minY, v.GetY()), max(maxY, v.GetY())
		}
		boxes = append(boxes, entity.BoundingBox{
			X1:         int(minX * float32(width)),
			Y1:         int(minY * float32(height)),
			X2:         int(math.Ceil(float64(maxX * float32(width)))),
			Y2:         int(math.Ceil(float64(maxY * float32(height)))),
			Label:      labelOf(o.GetName()),
			Confidence: o.GetScore(),
		})
	}
	return boxes
}

func labelOf(name string) string {
	if strings.EqualFold(name, plateObjectName) {
		return entity.PlateLabel
	}
	return strings.ToLower(name)
}

// textFromAnnotations は全文アノテーション（先頭要素）の最初の行を、ホワイトリストの文字だけにして返します。
func textFromAnnotations(anns []*visionpb.EntityAnnotation) string {
	if len(anns) == 0 {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(anns[0].GetDescription()), "\n")
	return usecase.RestrictToWhitelist(line)
}
