// Package detection provides face detection results and the helpers that
// turn them into grayscale face crops.
package detection

import (
	"image"
)

// Detection represents a detected face in pixel coordinates.
type Detection struct {
	Box        image.Rectangle
	Confidence float64 // Detection confidence (0-1), 1 for detectors without scores
}

// Center returns the center point of the detection
func (d Detection) Center() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
}

// Area returns the area of the bounding box
func (d Detection) Area() int {
	return d.Box.Dx() * d.Box.Dy()
}

// LargerThan reports whether both sides of the box exceed min pixels.
func (d Detection) LargerThan(min int) bool {
	return d.Box.Dx() > min && d.Box.Dy() > min
}

// Face is a detection with its grayscale crop.
type Face struct {
	Detection
	Crop *image.Gray
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in the image and returns their positions
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	Backend          string  // "haar" or "yunet"
	CascadePath      string  // Haar cascade XML
	ModelPath        string  // YuNet ONNX model
	ConfidenceThresh float64 // Minimum confidence (YuNet)
	InputWidth       int     // Model input width (YuNet)
	InputHeight      int     // Model input height (YuNet)
}

// DefaultConfig returns the Haar cascade defaults.
func DefaultConfig() Config {
	return Config{
		Backend:          "haar",
		CascadePath:      "models/haarcascade_frontalface_default.xml",
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// SelectLargestFace returns the face with the largest box area. The first
// candidate is the starting best, so a non-empty list always yields a
// result; equal areas keep the earlier face.
func SelectLargestFace(faces []Face) (Face, bool) {
	if len(faces) == 0 {
		return Face{}, false
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > best.Area() {
			best = f
		}
	}
	return best, true
}
