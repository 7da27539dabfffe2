package usecase

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// medianKernel はOCR前処理のメディアンフィルタのカーネルサイズです。
const medianKernel = 3

// PreprocessForOCR はOCR精度を上げるための固定フィルタチェーンを適用します。
// グレースケール化（BGR2GRAY）→ 大津の二値化 → 3×3メディアンフィルタの順で、順序とパラメータは固定です。
// 戻り値の画素は0か255のどちらかです。
func PreprocessForOCR(img image.Image) (*image.Gray, error) {
	bgr, err := toBGRMat(img)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.MedianBlur(binary, &denoised, medianKernel)

	return grayFromMat(denoised)
}

// toBGRMat はOpenCVと同じBGR順の8ビット3チャンネルMatを作ります。アルファは無視します。
func toBGRMat(img image.Image) (gocv.Mat, error) {
	src, ok := img.(*image.NRGBA)
	if !ok || src.Rect.Min != (image.Point{}) {
		src = imaging.Clone(img)
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image %dx%d", w, h)
	}

	data := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			data = append(data, row[x+2], row[x+1], row[x])
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("new mat: %w", err)
	}
	return mat, nil
}

// grayFromMat は8ビット1チャンネルのMatを*image.Grayに変換します。
func grayFromMat(m gocv.Mat) (*image.Gray, error) {
	out, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mat to image: %w", err)
	}
	gray, ok := out.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected image type %T", out)
	}
	return gray, nil
}
