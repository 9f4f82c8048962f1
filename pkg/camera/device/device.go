package device

import (
	"fmt"

	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"gocv.io/x/gocv"
)

// Open returns the source named by cfg.Backend.
func Open(cfg camera.Config) (camera.Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}

	switch cfg.Backend {
	case "", "opencv":
		return OpenOpenCV(cfg)
	case "v4l2":
		return OpenV4L2(cfg)
	default:
		return nil, fmt.Errorf("unknown camera backend %q", cfg.Backend)
	}
}

// Probe returns the first capture index below max that opens.
func Probe(max int) (int, error) {
	for i := 0; i < max; i++ {
		if Available(i) {
			return i, nil
		}
	}
	return -1, camera.ErrNoDevice
}

// Available reports whether capture index i opens and yields a frame.
func Available(i int) bool {
	vc, err := gocv.OpenVideoCapture(i)
	if err != nil {
		return false
	}
	defer vc.Close()

	if !vc.IsOpened() {
		return false
	}

	mat := gocv.NewMat()
	defer mat.Close()
	return vc.Read(&mat) && !mat.Empty()
}

var (
	_ camera.Source = (*OpenCV)(nil)
	_ camera.Source = (*V4L2)(nil)
)
