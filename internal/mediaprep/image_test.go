package mediaprep

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyImage produces an image that compresses poorly, so the quality
// loop actually has work to do.
func noisyImage(w, h int) image.Image {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func TestCompressImageAlreadyUnderBudget(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, noisyImage(32, 32), nil))
	small := buf.Bytes()

	got, err := CompressImage(small, DefaultBudget)
	require.NoError(t, err)
	assert.Equal(t, small, got, "bytes under budget pass through untouched")
}

func TestCompressImageReducesUnderBudget(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, noisyImage(900, 900), &jpeg.Options{Quality: 100}))
	large := buf.Bytes()

	budget := 256 * 1024
	require.Greater(t, len(large), budget)

	got, err := CompressImage(large, budget)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), budget)

	// Output must still decode as an image.
	_, _, err = image.Decode(bytes.NewReader(got))
	assert.NoError(t, err)
}

func TestCompressImagePNGInput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, noisyImage(600, 600)))

	got, err := CompressImage(buf.Bytes(), 200*1024)
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format, "output is re-encoded as JPEG")
}

func TestCompressImageGarbageInput(t *testing.T) {
	_, err := CompressImage(bytes.Repeat([]byte{0xAB}, 2<<20), DefaultBudget)
	assert.Error(t, err)
}

func TestResizeToFit(t *testing.T) {
	img := noisyImage(4000, 2000)

	resized := resizeToFit(img, fallbackMaxDim)
	bounds := resized.Bounds()
	assert.Equal(t, fallbackMaxDim, bounds.Dx())
	assert.Equal(t, fallbackMaxDim/2, bounds.Dy())

	// Portrait orientation bounds the height instead.
	portrait := resizeToFit(noisyImage(1000, 3000), fallbackMaxDim)
	assert.Equal(t, fallbackMaxDim, portrait.Bounds().Dy())

	// Already-small images come back unchanged.
	small := noisyImage(100, 100)
	assert.Equal(t, small, resizeToFit(small, fallbackMaxDim))
}

func TestResizeToFitExtremeAspectRatio(t *testing.T) {
	// A banner so wide that the scaled height rounds to zero must still
	// produce a drawable image.
	banner := resizeToFit(noisyImage(4000, 1), fallbackMaxDim)
	assert.Equal(t, fallbackMaxDim, banner.Bounds().Dx())
	assert.Equal(t, 1, banner.Bounds().Dy())

	column := resizeToFit(noisyImage(1, 4000), fallbackMaxDim)
	assert.Equal(t, 1, column.Bounds().Dx())
	assert.Equal(t, fallbackMaxDim, column.Bounds().Dy())
}
