package onnx

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/nfnt/resize"

	"parking_backend/internal/feature/platedetection/domain/entity"
)

// padValue はレターボックスの余白の画素値です。
const padValue = 114

// letterbox は縦横比を保ったまま size×size に縮小・中央配置したときの変換です。
type letterbox struct {
	scale float64
	padX  int
	padY  int
}

func newLetterbox(w, h, size int) letterbox {
	r := math.Min(float64(size)/float64(h), float64(size)/float64(w))
	newW := int(math.Round(float64(w) * r))
	newH := int(math.Round(float64(h) * r))
	return letterbox{
		scale: r,
		padX:  int(math.Round(float64(size-newW)/2 - 0.1)),
		padY:  int(math.Round(float64(size-newH)/2 - 0.1)),
	}
}

// toSource はレターボックス座標を元画像の座標に戻します。
func (l letterbox) toSource(x, y float32) (float64, float64) {
	return (float64(x) - float64(l.padX)) / l.scale, (float64(y) - float64(l.padY)) / l.scale
}

// prepareInput は画像を size×size のレターボックスに配置し、CHW順・[0,1]正規化のRGBテンソルへ書き込みます。
// dstの長さは 3*size*size である必要があります。
func prepareInput(img image.Image, size int, dst []float32) letterbox {
	b := img.Bounds()
	lb := newLetterbox(b.Dx(), b.Dy(), size)

	plane := size * size
	pad := float32(padValue) / 255
	for i := range dst[:3*plane] {
		dst[i] = pad
	}

	newW := uint(math.Round(float64(b.Dx()) * lb.scale))
	newH := uint(math.Round(float64(b.Dy()) * lb.scale))
	resized := resize.Resize(newW, newH, img, resize.Bilinear)
	rb := resized.Bounds()

	for y := 0; y < rb.Dy(); y++ {
		ty := y + lb.padY
		if ty < 0 || ty >= size {
			continue
		}
		for x := 0; x < rb.Dx(); x++ {
			tx := x + lb.padX
			if tx < 0 || tx >= size {
				continue
			}
			c := color.NRGBAModel.Convert(resized.At(rb.Min.X+x, rb.Min.Y+y)).(color.NRGBA)
			i := ty*size + tx
			dst[i] = float32(c.R) / 255
			dst[plane+i] = float32(c.G) / 255
			dst[2*plane+i] = float32(c.B) / 255
		}
	}
	return lb
}

// decodeOutput はYOLOv8の出力 [1, 4+nc, N]（cx, cy, w, h, クラススコア…）を
// 元画像座標のボックスに変換します。スコアがthreshold以上のものだけを残し、クラスごとにNMSを行います。
func decodeOutput(out []float32, anchors int, classes []string, threshold, iou float32, lb letterbox, w, h int) []entity.BoundingBox {
	nc := len(classes)
	if anchors <= 0 || len(out) < (4+nc)*anchors {
		return nil
	}
	at := func(row, i int) float32 { return out[row*anchors+i] }

	var boxes []entity.BoundingBox
	for i := 0; i < anchors; i++ {
		best, score := -1, float32(0)
		for c := 0; c < nc; c++ {
			if s := at(4+c, i); best < 0 || s > score {
				best, score = c, s
			}
		}
		if best < 0 || score < threshold {
			continue
		}
		cx, cy, bw, bh := at(0, i), at(1, i), at(2, i), at(3, i)
		x1, y1 := lb.toSource(cx-bw/2, cy-bh/2)
		x2, y2 := lb.toSource(cx+bw/2, cy+bh/2)
		boxes = append(boxes, entity.BoundingBox{
			X1:         clampInt(x1, w),
			Y1:         clampInt(y1, h),
			X2:         clampInt(x2, w),
			Y2:         clampInt(y2, h),
			Label:      classes[best],
			Confidence: score,
		})
	}
	return nms(boxes, iou)
}

// nms は信頼度の高い順に並べ、同じラベルでIoUがしきい値を超えるボックスを除去します。
func nms(boxes []entity.BoundingBox, threshold float32) []entity.BoundingBox {
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].Confidence > boxes[j].Confidence })

	kept := make([]entity.BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		suppressed := false
		for _, k := range kept {
			if k.Label == b.Label && iouOf(k, b) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, b)
		}
	}
	return kept
}

func iouOf(a, b entity.BoundingBox) float32 {
	ix := max(0, min(a.X2, b.X2)-max(a.X1, b.X1))
	iy := max(0, min(a.Y2, b.Y2)-max(a.Y1, b.Y1))
	inter := ix * iy
	union := a.Width()*a.Height() + b.Width()*b.Height() - inter
	if union <= 0 {
		return 0
	}
	return float32(inter) / float32(union)
}

func clampInt(v float64, hi int) int {
	if v < 0 {
		return 0
	}
	if v > float64(hi) {
		return hi
	}
	return int(v)
}
