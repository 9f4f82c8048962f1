// Package facescan captures a frame and returns the grayscale faces in it.
package facescan

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"github.com/teslashibe/go-driverwatch/pkg/debug"
	"github.com/teslashibe/go-driverwatch/pkg/detection"
)

// Scanner pairs a frame grabber with a face detector.
type Scanner struct {
	grabber  camera.Grabber
	detector detection.Detector
}

// New returns a scanner reading from grabber.
func New(grabber camera.Grabber, detector detection.Detector) *Scanner {
	return &Scanner{grabber: grabber, detector: detector}
}

// Scan grabs one frame and returns every detected face with its crop.
// Camera errors are returned as they are so callers can tell them apart
// from detector failures.
func (s *Scanner) Scan(ctx context.Context) ([]detection.Face, error) {
	frame, err := s.grabber.Grab(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dets, err := s.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	debug.TrackLog("facescan: %d face(s) in %v\n", len(dets), time.Since(start))

	faces, err := detection.Crop(frame, dets)
	if err != nil {
		return nil, fmt.Errorf("crop faces: %w", err)
	}
	return faces, nil
}
