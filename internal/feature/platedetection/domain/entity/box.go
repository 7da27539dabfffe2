// Package entity はplatedetectionフィーチャーのドメインモデルを定義します。
package entity

import "strings"

// PlateLabel はナンバープレートを表すクラスラベルです。
const PlateLabel = "plate"

// BoundingBox は検出器が返す軸平行の矩形です。座標は元画像のピクセル単位です。
type BoundingBox struct {
	X1         int     // 左上X
	Y1         int     // 左上Y
	X2         int     // 右下X
	Y2         int     // 右下Y
	Label      string  // クラスラベル（例: "plate", "car"）
	Confidence float32 // 信頼度スコア（0.0 ~ 1.0）
}

// Width は矩形の幅を返します。
func (b BoundingBox) Width() int { return b.X2 - b.X1 }

// Height は矩形の高さを返します。
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// IsPlate はラベルがナンバープレートかどうかを大文字小文字を区別せずに判定します。
func (b BoundingBox) IsPlate() bool {
	return strings.EqualFold(b.Label, PlateLabel)
}

// Clip は矩形を [0,width]×[0,height] に収めた新しい矩形を返します。
func (b BoundingBox) Clip(width, height int) BoundingBox {
	b.X1 = clamp(b.X1, 0, width)
	b.Y1 = clamp(b.Y1, 0, height)
	b.X2 = clamp(b.X2, 0, width)
	b.Y2 = clamp(b.Y2, 0, height)
	return b
}

// IsDegenerate は面積がゼロ以下の矩形かどうかを返します。
func (b BoundingBox) IsDegenerate() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
