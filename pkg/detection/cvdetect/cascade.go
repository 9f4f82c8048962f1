package cvdetect

import (
	"fmt"
	"os"
	"sync"

	"github.com/teslashibe/go-driverwatch/pkg/debug"
	"github.com/teslashibe/go-driverwatch/pkg/detection"
	"gocv.io/x/gocv"
)

// Cascade detects faces with a Haar cascade classifier on the grayscale frame.
type Cascade struct {
	classifier gocv.CascadeClassifier
	mu         sync.Mutex
}

// NewCascade loads the cascade XML at path.
func NewCascade(path string) (*Cascade, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("cascade file not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("error reading cascade file: %s", path)
	}
	return &Cascade{classifier: classifier}, nil
}

// Detect finds faces in the JPEG image.
func (c *Cascade) Detect(jpeg []byte) ([]detection.Detection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	rects := c.classifier.DetectMultiScale(img)
	detections := make([]detection.Detection, 0, len(rects))
	for _, r := range rects {
		detections = append(detections, detection.Detection{Box: r, Confidence: 1})
	}

	if len(detections) > 0 {
		debug.TrackLog("Cascade found %d face(s)\n", len(detections))
	}
	return detections, nil
}

// Close releases the classifier.
func (c *Cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classifier.Close()
}

// New builds the backend named in cfg.
func New(cfg detection.Config) (detection.Detector, error) {
	switch cfg.Backend {
	case "", "haar":
		return NewCascade(cfg.CascadePath)
	case "yunet":
		return NewYuNet(cfg)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

var (
	_ detection.Detector = (*Cascade)(nil)
	_ detection.Detector = (*YuNet)(nil)
)
