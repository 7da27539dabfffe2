package imagecodec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient は決定的なテスト画像を生成します。
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{name: "success: png", data: encodePNG(t, gradient(8, 6))},
		{name: "error: empty", data: nil, wantErr: true},
		{name: "error: not an image", data: []byte("definitely not an image"), wantErr: true},
		{name: "error: truncated png", data: encodePNG(t, gradient(8, 6))[:20], wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			img, err := Decode(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, img)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
		})
	}
}

func TestDecode_EmptyIsErrEmpty(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte{})
	assert.ErrorIs(t, err, ErrEmpty)
}

// withPNGDimensions はPNGのIHDRに記録された幅と高さを書き換え、CRCを付け直します。
func withPNGDimensions(data []byte, w, h uint32) []byte {
	out := bytes.Clone(data)
	// signature(8) + length(4) + "IHDR"(4), then width, height
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecode_RejectsOversizedDimensions(t *testing.T) {
	t.Parallel()

	data := withPNGDimensions(encodePNG(t, gradient(8, 6)), 100000, 100000)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err, "header must stay valid")
	require.Equal(t, 100000, cfg.Width)

	img, err := Decode(data)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Nil(t, img)
}

// TestRoundTrip_JPEG はdecode(encode(decode(b)))が許容誤差内でdecode(b)と一致することを検証します。
func TestRoundTrip_JPEG(t *testing.T) {
	t.Parallel()

	orig, err := Decode(encodePNG(t, gradient(32, 32)))
	require.NoError(t, err)

	encoded, err := Encode(orig, JPEG)
	require.NoError(t, err)

	again, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, orig.Bounds(), again.Bounds())

	const tolerance = 24
	for i := range orig.Pix {
		diff := int(orig.Pix[i]) - int(again.Pix[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			t.Fatalf("pixel byte %d differs by %d (> %d)", i, diff, tolerance)
		}
	}
}

func TestRoundTrip_PNGIsLossless(t *testing.T) {
	t.Parallel()

	orig, err := Decode(encodePNG(t, gradient(16, 16)))
	require.NoError(t, err)

	encoded, err := Encode(orig, PNG)
	require.NoError(t, err)

	again, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, orig.Pix, again.Pix)
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	img := gradient(20, 10)
	a, err := Encode(img, JPEG)
	require.NoError(t, err)
	b, err := Encode(img, JPEG)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/jpeg", ContentType(JPEG))
	assert.Equal(t, "image/png", ContentType(PNG))
}

func TestSniff(t *testing.T) {
	t.Parallel()

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, gradient(4, 4), nil))

	tests := []struct {
		name    string
		data    []byte
		wantExt string
		wantCT  string
	}{
		{name: "png", data: encodePNG(t, gradient(4, 4)), wantExt: ".png", wantCT: "image/png"},
		{name: "jpeg", data: jpg.Bytes(), wantExt: ".jpg", wantCT: "image/jpeg"},
		{name: "unknown falls back to jpeg", data: []byte("raw"), wantExt: ".jpg", wantCT: "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ext, ct := Sniff(tt.data)
			assert.Equal(t, tt.wantExt, ext)
			assert.Equal(t, tt.wantCT, ct)
		})
	}
}
