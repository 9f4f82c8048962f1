package identity

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// DefaultCropSize is the side length faces are resized to before flattening.
const DefaultCropSize = 100

// Template is one enrolled face sample.
type Template struct {
	ID        string    `json:"id" msgpack:"id"`
	Label     string    `json:"label" msgpack:"label"`
	Features  []float64 `json:"features" msgpack:"features"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// NewTemplate builds a template with a fresh ID.
func NewTemplate(label string, features []float64) (Template, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Template{}, ErrEmptyLabel
	}
	if len(features) == 0 {
		return Template{}, fmt.Errorf("%w: empty vector", ErrFeatureLength)
	}
	return Template{
		ID:        uuid.New().String(),
		Label:     label,
		Features:  features,
		CreatedAt: time.Now(),
	}, nil
}

// Features resizes a grayscale face crop to size x size and flattens it
// row-major into intensities in [0, 255].
func Features(crop *image.Gray, size int) ([]float64, error) {
	if crop == nil || crop.Bounds().Empty() {
		return nil, ErrNoCrop
	}
	if size <= 0 {
		size = DefaultCropSize
	}

	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), crop, crop.Bounds(), draw.Src, nil)

	out := make([]float64, 0, size*size)
	for y := 0; y < size; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+size]
		for _, p := range row {
			out = append(out, float64(p))
		}
	}
	return out, nil
}

// checkLengths verifies every template shares one vector length and returns it.
func checkLengths(templates []Template) (int, error) {
	if len(templates) == 0 {
		return 0, nil
	}
	n := len(templates[0].Features)
	for i, t := range templates[1:] {
		if len(t.Features) != n {
			return 0, fmt.Errorf("%w: template %d has %d values, want %d", ErrFeatureLength, i+1, len(t.Features), n)
		}
	}
	return n, nil
}
