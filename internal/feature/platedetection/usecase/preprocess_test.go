package usecase

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func assertBinary(t *testing.T, img *image.Gray) {
	t.Helper()
	for _, v := range img.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("non-binary pixel %d", v)
		}
	}
}

func TestPreprocessForOCR(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			c := color.NRGBA{R: 20, G: 20, B: 20, A: 255}
			if x >= 10 {
				c = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	// a speck of noise inside the dark half
	img.SetNRGBA(3, 5, color.NRGBA{R: 250, G: 250, B: 250, A: 255})

	out, err := PreprocessForOCR(img)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
	assertBinary(t, out)
	assert.Equal(t, uint8(0), out.GrayAt(3, 5).Y)
	assert.Equal(t, uint8(0), out.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(255), out.GrayAt(15, 5).Y)
}

// TestPreprocessForOCR_ChannelOrder は輝度がBT.601の重み（R>B）で計算されることを検証します。
// 赤(76)と青(29)の二値化結果が逆転していればチャンネル順が誤っています。
func TestPreprocessForOCR_ChannelOrder(t *testing.T) {
	t.Parallel()

	img := solid(12, 6, color.NRGBA{B: 255, A: 255})
	for y := 0; y < 6; y++ {
		for x := 6; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	out, err := PreprocessForOCR(img)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.GrayAt(2, 3).Y, "blue half")
	assert.Equal(t, uint8(255), out.GrayAt(9, 3).Y, "red half")
}

func TestPreprocessForOCR_Uniform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    color.NRGBA
		want uint8
	}{
		// Otsu yields 0 on a single-valued histogram, so anything brighter than black turns white
		{name: "gray", c: color.NRGBA{R: 90, G: 90, B: 90, A: 255}, want: 255},
		{name: "black", c: color.NRGBA{A: 255}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := PreprocessForOCR(solid(4, 4, tt.c))
			require.NoError(t, err)
			for _, v := range out.Pix {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestPreprocessForOCR_RemovesSaltNoise(t *testing.T) {
	t.Parallel()

	img := solid(7, 7, color.NRGBA{A: 255})
	img.SetNRGBA(3, 3, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out, err := PreprocessForOCR(img)
	require.NoError(t, err)
	for _, v := range out.Pix {
		assert.Equal(t, uint8(0), v)
	}
}

func TestPreprocessForOCR_AcceptsAnyImage(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 37)
	}
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	rgba := image.NewRGBA(src.Bounds())
	copy(rgba.Pix, src.Pix)
	// offset sub-image with the same pixels
	shifted := image.NewNRGBA(image.Rect(5, 5, 21, 21))
	copy(shifted.Pix, src.Pix)

	want, err := PreprocessForOCR(src)
	require.NoError(t, err)
	for _, img := range []image.Image{rgba, shifted} {
		got, err := PreprocessForOCR(img)
		require.NoError(t, err)
		assert.Equal(t, want.Pix, got.Pix)
		assert.Equal(t, image.Rect(0, 0, 16, 16), got.Bounds())
	}
}

func TestPreprocessForOCR_Deterministic(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 37)
	}
	a, err := PreprocessForOCR(img)
	require.NoError(t, err)
	b, err := PreprocessForOCR(img)
	require.NoError(t, err)
	assertBinary(t, a)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestPreprocessForOCR_EmptyImage(t *testing.T) {
	t.Parallel()

	_, err := PreprocessForOCR(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}
