// Package web serves the driver dashboard: the annotated video feed, the
// state event stream, the current driver and driver registration.
package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/attention"
	"github.com/teslashibe/go-driverwatch/pkg/enroll"
	"github.com/teslashibe/go-driverwatch/pkg/hub"
	"github.com/teslashibe/go-driverwatch/pkg/identity"
	"github.com/teslashibe/go-driverwatch/pkg/monitor"
)

// Feed is the monitoring loop as seen by the dashboard.
type Feed interface {
	Subscribe() (<-chan monitor.Frame, func())
	SubscribeStates() (<-chan attention.Result, func())
	Latest() (monitor.Frame, bool)
	LastDescription() string
	Display() *monitor.Settings
	Running() bool
}

// Registrar enrolls a new driver.
type Registrar interface {
	Enroll(ctx context.Context, label string) (enroll.Report, error)
}

// Gallery reports who is enrolled.
type Gallery interface {
	Labels() []string
	Count() int
}

// Config configures the dashboard server.
type Config struct {
	Port          string        // Listen port (default "5000")
	StaticDir     string        // Dashboard assets served at /
	EnrollTimeout time.Duration // Upper bound for one registration
	AccessLog     bool          // Log every request
}

// DefaultConfig serves ./web on port 5000.
func DefaultConfig() Config {
	return Config{
		Port:          "5000",
		StaticDir:     "./web",
		EnrollTimeout: 2 * time.Minute,
	}
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	config Config

	feed      Feed
	driver    *identity.Cell
	registrar Registrar
	gallery   Gallery

	// Hubs for websocket broadcast
	stateHub  *hub.Hub
	cameraHub *hub.Hub

	started time.Time
}

// NewServer wires the routes. registrar and gallery may be nil, in which
// case registration is reported as unavailable.
func NewServer(cfg Config, feed Feed, driver *identity.Cell, registrar Registrar, gallery Gallery) *Server {
	if cfg.Port == "" {
		cfg.Port = DefaultConfig().Port
	}
	if cfg.EnrollTimeout <= 0 {
		cfg.EnrollTimeout = DefaultConfig().EnrollTimeout
	}

	s := &Server{
		config:    cfg,
		feed:      feed,
		driver:    driver,
		registrar: registrar,
		gallery:   gallery,
		stateHub:  hub.New("state"),
		cameraHub: hub.New("camera"),
		started:   time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "driverwatch",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// Routes the dashboard script uses
	app.Get("/video_feed_act", s.handleVideoFeed)
	app.Get("/state_feed", s.handleStateFeed)
	app.Get("/get_driver_name", s.handleDriverName)
	app.Post("/register_driver", s.handleRegister)
	app.Get("/health", s.handleHealth)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/display", s.handleGetDisplay)
	api.Put("/display", s.handleSetDisplay)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hubs and relays, then serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.stateHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	go s.relayFrames(ctx)
	go s.relayStates(ctx)

	errc := make(chan error, 1)
	go func() {
		log.Info("web dashboard listening", "url", "http://localhost:"+s.config.Port)
		errc <- s.app.Listen(":" + s.config.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Warn("web shutdown", "error", err)
		}
		return nil
	}
}

// relayFrames copies monitor frames to camera websocket clients.
func (s *Server) relayFrames(ctx context.Context) {
	frames, cancel := s.feed.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if s.cameraHub.ClientCount() > 0 {
				s.cameraHub.BroadcastBinary(f.JPEG)
			}
		}
	}
}

// relayStates copies state changes to state websocket clients.
func (s *Server) relayStates(ctx context.Context) {
	states, cancel := s.feed.SubscribeStates()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-states:
			if !ok {
				return
			}
			if err := s.stateHub.BroadcastJSON(s.stateMessage(r)); err != nil {
				log.Warn("encode state message", "error", err)
			}
		}
	}
}

// StateMessage is pushed to /ws/state on every state change.
type StateMessage struct {
	Time        string  `json:"time"`
	State       string  `json:"state"`
	Description string  `json:"description"`
	Driver      *string `json:"driver"`
}

func (s *Server) stateMessage(r attention.Result) StateMessage {
	return StateMessage{
		Time:        time.Now().Format("15:04:05"),
		State:       r.State.String(),
		Description: r.Description,
		Driver:      s.driver.Name(),
	}
}
