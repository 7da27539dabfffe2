package usecase

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	annotationThickness = 2
	labelOffsetY        = 8
)

var annotationColor = color.NRGBA{G: 255, A: 255}

// Annotate は元画像の複製に、各プレートの矩形と「ラベル 信頼度」を描画します。
// cropsが空なら元画像と同じ画素の複製を返します。
func Annotate(img image.Image, crops []PlateCrop) *image.NRGBA {
	out := imaging.Clone(img)
	for _, c := range crops {
		drawRect(out, image.Rect(c.Box.X1, c.Box.Y1, c.Box.X2, c.Box.Y2), annotationThickness)
		drawLabel(out, fmt.Sprintf("%s %.2f", c.Box.Label, c.Box.Confidence), c.Box.X1, c.Box.Y1-labelOffsetY)
	}
	return out
}

func drawRect(dst *image.NRGBA, r image.Rectangle, thickness int) {
	src := image.NewUniform(annotationColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.NRGBA, text string, x, y int) {
	// keep the label on screen when the box touches the top edge
	if y < basicfont.Face7x13.Ascent {
		y = basicfont.Face7x13.Ascent
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(annotationColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
