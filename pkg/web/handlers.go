package web

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/attention"
	"github.com/teslashibe/go-driverwatch/pkg/enroll"
	"github.com/teslashibe/go-driverwatch/pkg/hub"
	"github.com/teslashibe/go-driverwatch/pkg/identity"
	"github.com/teslashibe/go-driverwatch/pkg/monitor"
)

// sseKeepAlive is how often an idle state stream sends a comment, which is
// how a dropped client is noticed.
const sseKeepAlive = 15 * time.Second

// handleVideoFeed streams annotated frames as MJPEG.
func (s *Server) handleVideoFeed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	frames, cancel := s.feed.Subscribe()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for f := range frames {
			if err := writeMJPEGPart(w, f.JPEG); err != nil {
				return
			}
		}
	})
	return nil
}

func writeMJPEGPart(w *bufio.Writer, jpeg []byte) error {
	if _, err := w.WriteString("--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// handleStateFeed streams state descriptions as server-sent events, one
// event per change.
func (s *Server) handleStateFeed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	states, cancel := s.feed.SubscribeStates()
	current := s.feed.LastDescription()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		last := ""
		if current != "" {
			if err := writeEvent(w, current); err != nil {
				return
			}
			last = current
		}

		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case r, ok := <-states:
				if !ok {
					return
				}
				if r.Description == "" || r.Description == last {
					continue
				}
				if err := writeEvent(w, r.Description); err != nil {
					return
				}
				last = r.Description
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, data string) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// handleDriverName returns the current driver, or null before the first
// identification.
func (s *Server) handleDriverName(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"driverName": s.driver.Name(),
	})
}

// RegisterRequest is the request body for registering a driver
type RegisterRequest struct {
	Name string `json:"name"`
}

// RegisterResponse reports the outcome of a registration.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Samples int    `json:"samples,omitempty"`
}

// handleRegister runs an enrollment for the posted name. It blocks until
// every sample has been collected.
func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(RegisterResponse{Error: "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(RegisterResponse{Error: "name is required"})
	}

	if s.registrar == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(RegisterResponse{Error: "registration not configured"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.EnrollTimeout)
	defer cancel()

	report, err := s.registrar.Enroll(ctx, req.Name)
	switch {
	case errors.Is(err, enroll.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(RegisterResponse{Error: err.Error()})
	case errors.Is(err, identity.ErrEmptyLabel):
		return c.Status(fiber.StatusBadRequest).JSON(RegisterResponse{Error: err.Error()})
	case err != nil:
		log.Error("register driver failed", "name", req.Name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(RegisterResponse{Error: err.Error()})
	}

	log.Info("driver registered", "name", req.Name, "samples", report.Samples)
	return c.JSON(RegisterResponse{Success: true, Samples: report.Samples})
}

// Status is the dashboard's snapshot of the system.
type Status struct {
	Monitoring  bool             `json:"monitoring"`
	Frame       int              `json:"frame"`
	State       string           `json:"state"`
	Description string           `json:"description"`
	FPS         float64          `json:"fps"`
	Scores      attention.Scores `json:"scores"`
	Driver      *string          `json:"driver"`
	Drivers     []string         `json:"drivers"`
	Templates   int              `json:"templates"`
	Uptime      string           `json:"uptime"`
}

// handleStatus returns the latest frame's classification and the gallery.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := Status{
		Monitoring:  s.feed.Running(),
		Description: s.feed.LastDescription(),
		Driver:      s.driver.Name(),
		Drivers:     []string{},
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	}
	if f, ok := s.feed.Latest(); ok {
		st.Frame = f.Index
		st.State = f.Result.State.String()
		st.FPS = f.Result.FPS
		st.Scores = f.Result.Scores
	}
	if s.gallery != nil {
		if labels := s.gallery.Labels(); labels != nil {
			st.Drivers = labels
		}
		st.Templates = s.gallery.Count()
	}
	return c.JSON(st)
}

// handleGetDisplay returns the overlay toggles.
func (s *Server) handleGetDisplay(c *fiber.Ctx) error {
	return c.JSON(s.feed.Display().Get())
}

// handleSetDisplay replaces the overlay toggles.
func (s *Server) handleSetDisplay(c *fiber.Ctx) error {
	var d monitor.Display
	if err := c.BodyParser(&d); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid display settings",
		})
	}
	s.feed.Display().Set(d)
	log.Info("display updated", "fps", d.ShowFPS, "proc_time", d.ShowProcTime, "axis", d.ShowAxis, "scores", d.ShowScores)
	return c.JSON(d)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"monitoring": s.feed.Running(),
	})
}

// handleStateWS pushes state changes to the client.
func (s *Server) handleStateWS(c *websocket.Conn) {
	hub.NewClient(s.stateHub, c).Run()
}

// handleCameraWS pushes annotated JPEG frames to the client.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
