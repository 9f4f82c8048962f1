package attention

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()

	if th.EAR != 0.15 {
		t.Errorf("Expected EAR=0.15, got %v", th.EAR)
	}
	if th.EARTime != 2*time.Second {
		t.Errorf("Expected EARTime=2s, got %v", th.EARTime)
	}
	if th.PoseTime != 2500*time.Millisecond {
		t.Errorf("Expected PoseTime=2.5s, got %v", th.PoseTime)
	}
	if th.IdentityDistance != 10000 {
		t.Errorf("Expected IdentityDistance=10000, got %v", th.IdentityDistance)
	}
	if err := th.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Thresholds)
		wantErr string
	}{
		{"zero values allowed", func(th *Thresholds) { *th = Thresholds{} }, ""},
		{"negative ear", func(th *Thresholds) { th.EAR = -0.1 }, "ear must"},
		{"nan pitch", func(th *Thresholds) { th.Pitch = math.NaN() }, "pitch must"},
		{"inf identity", func(th *Thresholds) { th.IdentityDistance = math.Inf(1) }, "identity_distance must"},
		{"negative pose time", func(th *Thresholds) { th.PoseTime = -time.Second }, "pose_time must"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			err := th.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidThresholds) {
				t.Fatalf("expected ErrInvalidThresholds, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseSeconds(t *testing.T) {
	got, err := ParseSeconds(2.5)
	if err != nil || got != 2500*time.Millisecond {
		t.Errorf("ParseSeconds(2.5) = %v, %v", got, err)
	}
	if got, err := ParseSeconds(0); err != nil || got != 0 {
		t.Errorf("ParseSeconds(0) = %v, %v", got, err)
	}

	for _, s := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5, 1e10, math.MaxFloat64} {
		if _, err := ParseSeconds(s); !errors.Is(err, ErrInvalidThresholds) {
			t.Errorf("ParseSeconds(%v): expected ErrInvalidThresholds, got %v", s, err)
		}
	}
}

func TestFrameRate_FallbackOnFirstFrame(t *testing.T) {
	start := time.Unix(1000, 0)
	fr := NewFrameRate(start)

	// Frame 0 at the start instant: 0/0 is undefined.
	fps, dt := fr.Tick(0, start)
	if fps != FallbackFPS {
		t.Errorf("Expected fallback fps, got %v", fps)
	}
	if dt != 100*time.Millisecond {
		t.Errorf("Expected 100ms dt, got %v", dt)
	}

	// Frame 0 later on: rate is zero.
	fps, _ = fr.Tick(0, start.Add(time.Second))
	if fps != FallbackFPS {
		t.Errorf("Expected fallback for zero rate, got %v", fps)
	}

	// Frame 5 with a clock that went backwards.
	fps, _ = fr.Tick(5, start.Add(-time.Second))
	if fps != FallbackFPS {
		t.Errorf("Expected fallback for negative rate, got %v", fps)
	}
}

func TestFrameRate_Measured(t *testing.T) {
	start := time.Unix(1000, 0)
	fr := NewFrameRate(start)

	fps, dt := fr.Tick(40, start.Add(10*time.Second))
	if fps != 4 {
		t.Errorf("Expected 4 fps, got %v", fps)
	}
	if dt != 250*time.Millisecond {
		t.Errorf("Expected 250ms dt, got %v", dt)
	}
}

func TestStreak(t *testing.T) {
	var s Streak
	s.Update(true, time.Second)
	s.Update(true, time.Second)
	if !s.Reached(2 * time.Second) {
		t.Errorf("Expected streak of 2s, got %v", s.Duration())
	}
	s.Update(false, time.Second)
	if s.Duration() != 0 {
		t.Errorf("Expected reset, got %v", s.Duration())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateProper:       "PROPER",
		StateAsleep:       "ASLEEP",
		StateDistracted:   "DISTRACTED",
		StateNoFace:       "NO_FACE",
		StateUndetermined: "UNDETERMINED",
		State(42):         "State(42)",
	}
	for st, want := range tests {
		if st.String() != want {
			t.Errorf("%d: got %q want %q", int(st), st.String(), want)
		}
	}
}

func TestNotifier_EdgeTriggered(t *testing.T) {
	var got []string
	n := NewNotifier(func(r Result) { got = append(got, r.Description) })

	sent := []string{DescProper, DescProper, "", DescAsleep, DescAsleep, DescProper}
	for _, d := range sent {
		n.Observe(Result{Description: d})
	}

	want := []string{DescProper, DescAsleep, DescProper}
	if len(got) != len(want) {
		t.Fatalf("Expected %d notifications, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d: got %q want %q", i, got[i], want[i])
		}
	}
	if n.Last() != DescProper {
		t.Errorf("Last() = %q", n.Last())
	}
}

func TestNotifier_TwoIdenticalFramesOneEvent(t *testing.T) {
	s, err := NewScorer(DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}

	events := 0
	n := NewNotifier(func(Result) { events++ })

	for i := 0; i < 2; i++ {
		r, err := s.Evaluate(Detected(Signals{EAR: 0.3}), 100*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		n.Observe(r)
	}

	if events != 1 {
		t.Errorf("Expected exactly one notification, got %d", events)
	}
}
