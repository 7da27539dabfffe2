package usecase

import (
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"parking_backend/internal/feature/platedetection/domain"
	"parking_backend/internal/feature/platedetection/domain/entity"
)

// PlateCrop はフィルタを通過したボックスと、その領域を切り出した画像の組です。
type PlateCrop struct {
	Index int                // 検出器出力におけるボックスの順序
	Box   entity.BoundingBox // 画像範囲にクリップ済みのボックス
	Image *image.NRGBA       // 切り出した領域（原点は(0,0)）
}

// FilterAndCrop はラベルが "plate" のボックスだけを選び、画像範囲にクリップして切り出します。
// 面積がゼロ以下になったボックスは捨てます。出力順は入力順を保ち、重なりの除去や統合は行いません。
func FilterAndCrop(img image.Image, boxes []entity.BoundingBox) []PlateCrop {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	crops := make([]PlateCrop, 0, len(boxes))
	for i, b := range boxes {
		if !b.IsPlate() {
			continue
		}
		clipped := b.Clip(width, height)
		if clipped.IsDegenerate() {
			slog.Debug("プレート領域をスキップ", "index", i, "reason", domain.ErrDegenerateCrop,
				"x1", b.X1, "y1", b.Y1, "x2", b.X2, "y2", b.Y2)
			continue
		}
		rect := image.Rect(clipped.X1, clipped.Y1, clipped.X2, clipped.Y2).Add(bounds.Min)
		crops = append(crops, PlateCrop{
			Index: i,
			Box:   clipped,
			Image: imaging.Crop(img, rect),
		})
	}
	return crops
}
