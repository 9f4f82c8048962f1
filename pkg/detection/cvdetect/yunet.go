// Package cvdetect implements detection.Detector on top of OpenCV.
package cvdetect

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-driverwatch/pkg/debug"
	"github.com/teslashibe/go-driverwatch/pkg/detection"
	"gocv.io/x/gocv"
)

// YuNet uses OpenCV's FaceDetectorYN for face detection
type YuNet struct {
	detector gocv.FaceDetectorYN
	config   detection.Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg detection.Config) (*YuNet, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	// Input size is updated per image
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNet{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in the JPEG image
func (d *YuNet) Detect(jpeg []byte) ([]detection.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	var detections []detection.Detection
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		x := int(faces.GetFloatAt(r, 0))
		y := int(faces.GetFloatAt(r, 1))
		w := int(faces.GetFloatAt(r, 2))
		h := int(faces.GetFloatAt(r, 3))
		score := float64(faces.GetFloatAt(r, 14))

		detections = append(detections, detection.Detection{
			Box:        image.Rect(x, y, x+w, y+h),
			Confidence: score,
		})
	}

	if len(detections) > 0 {
		debug.TrackLog("YuNet found %d face(s)\n", len(detections))
	}

	return detections, nil
}

// Close releases the detector resources
func (d *YuNet) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
