package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/teslashibe/go-driverwatch/internal/log"
	"github.com/teslashibe/go-driverwatch/pkg/attention"
)

// Monitor drives a Stream and publishes its output.
type Monitor struct {
	stream   *Stream
	notifier *attention.Notifier

	frames *fanout[Frame]
	states *fanout[attention.Result]

	mu        sync.RWMutex
	latest    Frame
	hasLatest bool
	running   bool
}

// New wraps stream.
func New(stream *Stream) *Monitor {
	m := &Monitor{
		stream: stream,
		frames: newFanout[Frame](1),
		states: newFanout[attention.Result](16),
	}
	m.notifier = attention.NewNotifier(m.stateChanged)
	return m
}

func (m *Monitor) stateChanged(r attention.Result) {
	log.Info("driver state", "state", r.State.String(), "description", r.Description)
	m.states.publish(r)
}

// Display returns the stream's runtime display settings.
func (m *Monitor) Display() *Settings {
	return m.stream.Display
}

// Subscribe returns a channel carrying the most recent frames. Frames are
// dropped for readers that fall behind. Call cancel when done.
func (m *Monitor) Subscribe() (<-chan Frame, func()) {
	return m.frames.subscribe()
}

// SubscribeStates returns a channel of edge-triggered state changes: one
// value per change of description.
func (m *Monitor) SubscribeStates() (<-chan attention.Result, func()) {
	return m.states.subscribe()
}

// Latest returns the most recent frame, if any.
func (m *Monitor) Latest() (Frame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.hasLatest
}

// LastDescription returns the last state description that was published.
func (m *Monitor) LastDescription() string {
	return m.notifier.Last()
}

// Running reports whether Run is active.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Run pulls frames until ctx is cancelled (returns nil) or the stream ends
// (returns the stream error). Subscriptions are closed on return.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		m.frames.close()
		m.states.close()
	}()

	log.Info("monitoring started")
	for {
		frame, err := m.stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("monitoring stopped")
				return nil
			}
			if errors.Is(err, ErrStreamEnded) {
				log.Error("monitoring ended", "error", err)
			}
			return err
		}

		m.mu.Lock()
		m.latest = frame
		m.hasLatest = true
		m.mu.Unlock()

		m.notifier.Observe(frame.Result)
		m.frames.publish(frame)
	}
}
