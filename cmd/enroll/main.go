// enroll registers a driver from the command line: it captures face samples
// from the camera and appends them to the gallery.
//
// Usage: enroll [flags] <name>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-driverwatch/internal/config"
	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/camera"
	"github.com/teslashibe/go-driverwatch/pkg/camera/device"
	"github.com/teslashibe/go-driverwatch/pkg/debug"
	"github.com/teslashibe/go-driverwatch/pkg/detection/cvdetect"
	"github.com/teslashibe/go-driverwatch/pkg/enroll"
	"github.com/teslashibe/go-driverwatch/pkg/facescan"
	"github.com/teslashibe/go-driverwatch/pkg/identity"
)

func main() {
	cfg := config.Load()
	cfg.RegisterFlags(flag.CommandLine)
	samples := flag.Int("samples", enroll.DefaultConfig().Samples, "Number of face samples to collect")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <name>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	log.Init(cfg.LogLevel)
	debug.Tracking = cfg.DebugTracking

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := run(ctx, cfg, flag.Arg(0), *samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Enrollment failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Enrolled %s: %d samples (%d frames scanned, %d skipped) in %s\n",
		report.Label, report.Samples, report.Scanned, report.Skipped, report.Duration.Round(time.Millisecond))
}

func run(ctx context.Context, cfg config.Config, name string, samples int) (enroll.Report, error) {
	src, err := device.Open(cfg.CameraConfig())
	if err != nil {
		return enroll.Report{}, err
	}
	// Nothing else reads the camera, so Direct grabs frames on demand.
	defer src.Close()

	detector, err := cvdetect.New(cfg.DetectorConfig())
	if err != nil {
		return enroll.Report{}, err
	}
	defer detector.Close()

	store, err := identity.NewFileStore(cfg.Gallery)
	if err != nil {
		return enroll.Report{}, err
	}
	defer store.Close()

	ecfg := enroll.DefaultConfig()
	ecfg.Samples = samples
	e := enroll.New(facescan.New(camera.Direct(src), detector), store, ecfg)
	e.OnProgress = func(accepted, _ int) {
		fmt.Printf("Loaded images: %d\n", accepted)
	}

	fmt.Printf("📷 Look at the camera, collecting %d samples for %q\n", e.Config().Samples, name)
	return e.Enroll(ctx, name)
}
