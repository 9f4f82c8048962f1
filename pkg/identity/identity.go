// Package identity resolves who is driving. It matches a face vector
// against a gallery of enrolled templates with an open-set nearest-neighbour
// rule, and publishes the latest answer through a single-slot Cell.
package identity

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Kind classifies an identification outcome.
type Kind int

const (
	// KindNoFace means no face was available to compare (no face in the
	// frame, or nothing enrolled yet).
	KindNoFace Kind = iota
	// KindUnknown means a face was seen but no enrolled driver is close enough.
	KindUnknown
	// KindKnown means the face matched an enrolled label.
	KindKnown
)

// Display strings used by the dashboard.
const (
	UnknownDriver = "Unknown Driver"
	NoFaceLabel   = "No Face"
)

func (k Kind) String() string {
	switch k {
	case KindNoFace:
		return "no_face"
	case KindUnknown:
		return "unknown"
	case KindKnown:
		return "known"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Identity is the result of one identification cycle.
type Identity struct {
	Kind  Kind
	Label string // set only for KindKnown
}

// Known returns an identity for an enrolled label.
func Known(label string) Identity { return Identity{Kind: KindKnown, Label: label} }

// Unknown returns the open-set rejection identity.
func Unknown() Identity { return Identity{Kind: KindUnknown} }

// NoFace returns the identity for a cycle with nothing to compare.
func NoFace() Identity { return Identity{Kind: KindNoFace} }

// String renders the identity as shown to the user.
func (i Identity) String() string {
	switch i.Kind {
	case KindKnown:
		return i.Label
	case KindUnknown:
		return UnknownDriver
	default:
		return NoFaceLabel
	}
}

// MarshalJSON renders the identity as its display string.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// Cell holds the most recent identity. It has one writer (the identification
// loop) and any number of readers; reads never block the writer.
type Cell struct {
	v atomic.Pointer[Identity]
}

// Get returns the current identity and whether one has been set yet.
func (c *Cell) Get() (Identity, bool) {
	p := c.v.Load()
	if p == nil {
		return Identity{}, false
	}
	return *p, true
}

// Set stores id unconditionally.
func (c *Cell) Set(id Identity) {
	c.v.Store(&id)
}

// Update stores id only if it differs from the current value and reports
// whether it did.
func (c *Cell) Update(id Identity) bool {
	for {
		old := c.v.Load()
		if old != nil && *old == id {
			return false
		}
		if c.v.CompareAndSwap(old, &id) {
			return true
		}
	}
}

// Name returns the display string, or nil when nothing has been resolved yet.
func (c *Cell) Name() *string {
	id, ok := c.Get()
	if !ok {
		return nil
	}
	s := id.String()
	return &s
}
