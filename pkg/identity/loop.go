package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"github.com/teslashibe/go-driverwatch/pkg/detection"
)

// FaceSource captures one frame and returns the faces in it.
type FaceSource interface {
	Scan(ctx context.Context) ([]detection.Face, error)
}

// LoopConfig tunes the identification cycle.
type LoopConfig struct {
	Interval time.Duration // Pause between cycles (0 = back to back)
	CropSize int           // Side length faces are resized to
}

// DefaultLoopConfig runs cycles back to back on 100x100 crops.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Interval: 0,
		CropSize: DefaultCropSize,
	}
}

// Loop is the free-running identification cycle. It is the only writer of
// its Cell.
type Loop struct {
	source  FaceSource
	store   Store
	matcher *Matcher
	cell    *Cell
	config  LoopConfig

	// OnChange is called after the cell takes a new value.
	OnChange func(id Identity, m Match)
}

// NewLoop wires a loop. cell must not be written by anyone else.
func NewLoop(source FaceSource, store Store, matcher *Matcher, cell *Cell, cfg LoopConfig) *Loop {
	if cfg.CropSize <= 0 {
		cfg.CropSize = DefaultCropSize
	}
	return &Loop{
		source:  source,
		store:   store,
		matcher: matcher,
		cell:    cell,
		config:  cfg,
	}
}

// Cycle runs one identification without touching the cell.
//
// Only the largest face in the frame is used. No face, or an empty gallery,
// yields NoFace.
func (l *Loop) Cycle(ctx context.Context) (Match, error) {
	faces, err := l.source.Scan(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("scan: %w", err)
	}

	face, ok := detection.SelectLargestFace(faces)
	if !ok {
		return Match{Identity: NoFace()}, nil
	}

	gallery, err := l.store.Templates()
	if err != nil {
		return Match{}, fmt.Errorf("load gallery: %w", err)
	}
	if len(gallery) == 0 {
		return Match{Identity: NoFace()}, nil
	}

	features, err := Features(face.Crop, l.config.CropSize)
	if err != nil {
		return Match{}, err
	}

	m, err := l.matcher.Identify(features, gallery)
	if errors.Is(err, ErrEmptyGallery) {
		return Match{Identity: NoFace()}, nil
	}
	return m, err
}

// Run cycles until ctx is cancelled or the camera fails.
//
// A failed cycle never clears the cell: the previous identity stays visible.
// Camera errors end the loop since nothing upstream can recover them; any
// other failure is logged and the next cycle runs.
func (l *Loop) Run(ctx context.Context) error {
	logger := log.With("component", "identity")
	logger.Info("identification loop started", "interval", l.config.Interval, "threshold", l.matcher.Threshold)

	for {
		if ctx.Err() != nil {
			return nil
		}

		m, err := l.Cycle(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil && camera.IsDeviceError(err):
			logger.Error("camera failed, stopping identification", "error", err)
			return err
		case err != nil:
			logger.Warn("identification cycle failed", "error", err)
		default:
			if l.cell.Update(m.Identity) {
				logger.Info("driver changed", "driver", m.Identity.String(), "distance", m.Distance)
				if l.OnChange != nil {
					l.OnChange(m.Identity, m)
				}
			}
		}

		if l.config.Interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.config.Interval):
			}
		}
	}
}
