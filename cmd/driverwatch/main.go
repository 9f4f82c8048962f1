// driverwatch monitors a driver through a webcam: it classifies attention
// (proper, distracted, asleep) from facial landmarks, identifies the driver
// against an enrolled gallery and serves both on a web dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/teslashibe/go-driverwatch/internal/config"
	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/attention"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"github.com/teslashibe/go-driverwatch/pkg/camera/device"
	"github.com/teslashibe/go-driverwatch/pkg/debug"
	"github.com/teslashibe/go-driverwatch/pkg/detection/cvdetect"
	"github.com/teslashibe/go-driverwatch/pkg/enroll"
	"github.com/teslashibe/go-driverwatch/pkg/facescan"
	"github.com/teslashibe/go-driverwatch/pkg/identity"
	"github.com/teslashibe/go-driverwatch/pkg/landmarks"
	"github.com/teslashibe/go-driverwatch/pkg/monitor"
	"github.com/teslashibe/go-driverwatch/pkg/monitor/overlay"
	"github.com/teslashibe/go-driverwatch/pkg/web"
)

func main() {
	cfg := parseFlags()
	log.Init(cfg.LogLevel)
	debug.Enabled = cfg.Verbose
	debug.Tracking = cfg.DebugTracking

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error("driverwatch stopped", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags on top of the environment.
func parseFlags() config.Config {
	cfg := config.Load()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if cfg.Verbose {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%s: %s\n", f.Name, f.Value)
		})
	}
	return cfg
}

func run(ctx context.Context, cfg config.Config) error {
	thresholds, err := cfg.Thresholds()
	if err != nil {
		return err
	}
	scorer, err := attention.NewScorer(thresholds)
	if err != nil {
		return err
	}

	src, err := device.Open(cfg.CameraConfig())
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	tee := camera.NewTee(src)
	defer tee.Close()

	detector, err := cvdetect.New(cfg.DetectorConfig())
	if err != nil {
		return fmt.Errorf("face detector: %w", err)
	}
	defer detector.Close()
	scanner := facescan.New(tee, detector)

	store, err := identity.NewFileStore(cfg.Gallery)
	if err != nil {
		return fmt.Errorf("open gallery: %w", err)
	}
	defer store.Close()
	log.Info("gallery loaded", "path", store.Path(), "templates", store.Count(), "drivers", len(store.Labels()))

	driver := &identity.Cell{}
	loopCfg := identity.DefaultLoopConfig()
	loopCfg.Interval = cfg.IdentityInterval
	idLoop := identity.NewLoop(scanner, store, identity.NewMatcher(thresholds.IdentityDistance), driver, loopCfg)

	lmCfg := landmarks.DefaultConfig()
	lmCfg.URL = cfg.Landmarks
	sidecar := landmarks.NewClient(lmCfg)
	defer sidecar.Close()

	stream := monitor.NewStream(tee, sidecar, scorer)
	stream.Annotator = overlay.NewTextAnnotator(camera.DefaultConfig().Quality)
	stream.Display.Set(monitor.Display{
		ShowFPS:      cfg.ShowFPS,
		ShowProcTime: cfg.ShowProcTime,
		ShowAxis:     cfg.ShowAxis,
		ShowScores:   cfg.Verbose,
		ShowDriver:   true,
	})
	stream.Driver = func() string {
		if name := driver.Name(); name != nil {
			return *name
		}
		return ""
	}
	mon := monitor.New(stream)

	enroller := enroll.New(scanner, store, enroll.DefaultConfig())
	enroller.OnProgress = func(accepted, total int) {
		log.Debug("enrollment progress", "accepted", accepted, "total", total)
	}

	webCfg := web.DefaultConfig()
	webCfg.Port = cfg.Port
	webCfg.StaticDir = cfg.StaticDir
	webCfg.AccessLog = cfg.Verbose
	server := web.NewServer(webCfg, mon, driver, enroller, store)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 3)
	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn(ctx)
			if err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
			}
			// Any component ending takes the others down with it.
			cancel()
		}()
	}

	start("monitor", mon.Run)
	start("identity", idLoop.Run)
	start("web", server.Run)

	log.Info("driverwatch running",
		"port", cfg.Port,
		"camera", cfg.Camera,
		"detector", cfg.Detector,
		"landmarks", cfg.Landmarks,
	)
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("systemd notify failed", "error", err)
	} else if ok {
		log.Debug("systemd notified")
	}

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}
