package mediaprep

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	// DefaultBudget is the upload size budget for a prepared image.
	DefaultBudget = 1 << 20

	startQuality = 90
	minQuality   = 30
	qualityStep  = 10

	// fallbackMaxDim bounds the longer edge when quality reduction alone
	// cannot meet the budget.
	fallbackMaxDim = 1280
)

// CompressImage re-encodes an image as JPEG under the given byte budget.
// Quality is reduced iteratively first; if even the lowest quality is too
// large the image is resized to a fixed maximum dimension and re-encoded.
func CompressImage(data []byte, budget int) ([]byte, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if len(data) <= budget {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	for quality := startQuality; quality >= minQuality; quality -= qualityStep {
		encoded, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= budget {
			return encoded, nil
		}
	}

	resized := resizeToFit(img, fallbackMaxDim)
	encoded, err := encodeJPEG(resized, startQuality-qualityStep)
	if err != nil {
		return nil, err
	}
	if len(encoded) > budget {
		return nil, fmt.Errorf("image still %d bytes after resize, budget is %d", len(encoded), budget)
	}
	return encoded, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeToFit scales the image down so its longer edge is at most maxDim.
// Images already within bounds are returned unchanged.
func resizeToFit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	nw, nh := maxDim, h*maxDim/w
	if h > w {
		nw, nh = w*maxDim/h, maxDim
	}
	// Extreme aspect ratios can round a dimension down to zero.
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
