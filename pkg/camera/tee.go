package camera

import (
	"context"
	"sync"
)

// Tee shares one Source between the monitoring loop, which drives capture
// through CaptureJPEG, and any number of secondary readers, which receive a
// copy of the next frame the driver captures via Grab.
type Tee struct {
	src Source

	mu     sync.Mutex
	next   chan struct{} // closed when a frame is published
	frame  []byte
	err    error // sticky device error
	closed bool
}

// NewTee wraps src. The Tee owns src from now on.
func NewTee(src Source) *Tee {
	return &Tee{
		src:  src,
		next: make(chan struct{}),
	}
}

// CaptureJPEG captures from the underlying source and publishes the frame to
// waiting readers. Only one goroutine should call it.
func (t *Tee) CaptureJPEG() ([]byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()

	frame, err := t.src.CaptureJPEG()

	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return nil, ErrClosed
	case err == nil:
		t.frame = append(t.frame[:0:0], frame...)
	case IsDeviceError(err):
		t.err = err
	default:
		// Transient failure, readers keep waiting.
		t.mu.Unlock()
		return nil, err
	}
	ch := t.next
	t.next = make(chan struct{})
	t.mu.Unlock()

	close(ch)
	return frame, err
}

// Grab blocks until the next frame is captured and returns a copy of it.
func (t *Tee) Grab(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	if t.err != nil {
		err := t.err
		t.mu.Unlock()
		return nil, err
	}
	ch := t.next
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ch:
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	if t.closed && t.frame == nil {
		return nil, ErrClosed
	}
	out := make([]byte, len(t.frame))
	copy(out, t.frame)
	return out, nil
}

// Close wakes every waiting reader with ErrClosed and closes the source.
func (t *Tee) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.frame = nil
	ch := t.next
	t.mu.Unlock()

	close(ch)
	return t.src.Close()
}

var (
	_ Source  = (*Tee)(nil)
	_ Grabber = (*Tee)(nil)
)
