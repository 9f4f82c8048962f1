package detection

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// DecodeGray decodes a JPEG frame into a grayscale image.
func DecodeGray(frame []byte) (*image.Gray, error) {
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray, nil
}

// Crop attaches a grayscale crop to every detection. Boxes are clipped to
// the frame; detections entirely outside it are dropped.
func Crop(frame []byte, dets []Detection) ([]Face, error) {
	if len(dets) == 0 {
		return nil, nil
	}

	gray, err := DecodeGray(frame)
	if err != nil {
		return nil, err
	}
	return CropGray(gray, dets), nil
}

// CropGray is Crop over an already decoded frame.
func CropGray(gray *image.Gray, dets []Detection) []Face {
	faces := make([]Face, 0, len(dets))
	for _, d := range dets {
		box := d.Box.Intersect(gray.Bounds())
		if box.Empty() {
			continue
		}

		crop := image.NewGray(image.Rect(0, 0, box.Dx(), box.Dy()))
		draw.Draw(crop, crop.Bounds(), gray, box.Min, draw.Src)
		d.Box = box
		faces = append(faces, Face{Detection: d, Crop: crop})
	}
	return faces
}
