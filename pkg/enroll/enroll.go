// Package enroll registers a driver by collecting face samples from the
// camera and appending them to the gallery.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"github.com/teslashibe/go-driverwatch/pkg/detection"
	"github.com/teslashibe/go-driverwatch/pkg/identity"
)

var (
	// ErrAborted is returned when enrollment stops before every sample was
	// collected. Nothing is written in that case.
	ErrAborted = errors.New("enroll: aborted before completion")

	// ErrBusy is returned when another enrollment is already running.
	ErrBusy = errors.New("enroll: enrollment already in progress")

	// ErrTooManyFailures is returned after MaxFailures scans in a row failed.
	ErrTooManyFailures = errors.New("enroll: too many failed scans")
)

// Config tunes sample collection.
type Config struct {
	Samples     int // Accepted samples per enrollment
	MinFaceSize int // Face box width and height must both exceed this
	CropSize    int // Side length samples are resized to
	MaxFailures int // Consecutive scan errors tolerated (0 = unlimited)
}

// DefaultConfig returns 50 samples of faces larger than 100 px.
func DefaultConfig() Config {
	return Config{
		Samples:     50,
		MinFaceSize: 100,
		CropSize:    identity.DefaultCropSize,
		MaxFailures: 100,
	}
}

// Progress is called after each accepted sample.
type Progress func(accepted, total int)

// Report summarises a finished enrollment.
type Report struct {
	Label    string        `json:"label"`
	Samples  int           `json:"samples"`
	Scanned  int           `json:"scanned"` // Frames looked at, accepted or not
	Skipped  int           `json:"skipped"` // Frames with no face, several faces or a small face
	Duration time.Duration `json:"duration"`
}

// Enroller runs one enrollment at a time.
type Enroller struct {
	source identity.FaceSource
	store  identity.Store
	config Config

	// OnProgress, if set, is called after each accepted sample.
	OnProgress Progress

	mu sync.Mutex
}

// New returns an enroller that scans source and writes to store.
func New(source identity.FaceSource, store identity.Store, cfg Config) *Enroller {
	def := DefaultConfig()
	if cfg.Samples <= 0 {
		cfg.Samples = def.Samples
	}
	if cfg.CropSize <= 0 {
		cfg.CropSize = def.CropSize
	}
	if cfg.MinFaceSize < 0 {
		cfg.MinFaceSize = 0
	}
	return &Enroller{source: source, store: store, config: cfg}
}

// Config returns the enroller's settings.
func (e *Enroller) Config() Config {
	return e.config
}

// Enroll collects Samples single-face samples for label and appends them to
// the gallery in one write.
//
// Frames with zero or several faces, or a face not larger than MinFaceSize
// in both dimensions, are skipped. If ctx ends or the camera fails first,
// nothing is persisted.
func (e *Enroller) Enroll(ctx context.Context, label string) (Report, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Report{}, identity.ErrEmptyLabel
	}

	if !e.mu.TryLock() {
		return Report{}, ErrBusy
	}
	defer e.mu.Unlock()

	logger := log.With("component", "enroll", "label", label)
	logger.Info("enrollment started", "samples", e.config.Samples, "min_face", e.config.MinFaceSize)

	start := time.Now()
	report := Report{Label: label}
	templates := make([]identity.Template, 0, e.config.Samples)
	failures := 0

	for len(templates) < e.config.Samples {
		if err := ctx.Err(); err != nil {
			logger.Warn("enrollment aborted", "accepted", len(templates))
			return report, fmt.Errorf("%w after %d of %d samples: %w", ErrAborted, len(templates), e.config.Samples, err)
		}

		faces, err := e.source.Scan(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			continue
		case err != nil && camera.IsDeviceError(err):
			logger.Error("camera failed during enrollment", "error", err)
			return report, fmt.Errorf("enroll %s: %w", label, err)
		case err != nil:
			failures++
			logger.Debug("scan failed", "error", err, "consecutive", failures)
			if e.config.MaxFailures > 0 && failures >= e.config.MaxFailures {
				return report, fmt.Errorf("%w: last error: %w", ErrTooManyFailures, err)
			}
			continue
		}
		failures = 0
		report.Scanned++

		face, ok := e.accept(faces)
		if !ok {
			report.Skipped++
			continue
		}

		features, err := identity.Features(face.Crop, e.config.CropSize)
		if err != nil {
			report.Skipped++
			continue
		}
		t, err := identity.NewTemplate(label, features)
		if err != nil {
			return report, err
		}
		templates = append(templates, t)

		if e.OnProgress != nil {
			e.OnProgress(len(templates), e.config.Samples)
		}
	}

	if err := e.store.Append(templates...); err != nil {
		return report, fmt.Errorf("save gallery: %w", err)
	}

	report.Samples = len(templates)
	report.Duration = time.Since(start)
	logger.Info("enrollment complete", "samples", report.Samples, "scanned", report.Scanned, "duration", report.Duration)
	return report, nil
}

// accept returns the face if the frame holds exactly one large-enough face.
func (e *Enroller) accept(faces []detection.Face) (detection.Face, bool) {
	if len(faces) != 1 {
		return detection.Face{}, false
	}
	if !faces[0].LargerThan(e.config.MinFaceSize) {
		return detection.Face{}, false
	}
	return faces[0], true
}
