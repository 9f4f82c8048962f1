package attention

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 10 fps keeps every dt an exact number of nanoseconds.
const frameDT = 100 * time.Millisecond

func attentive() Signals {
	return Signals{EAR: 0.30, Gaze: 0.0, Pitch: 2, Yaw: -3, Roll: 1}
}

func eyesClosed() Signals {
	s := attentive()
	s.EAR = 0.10
	return s
}

func lookingAway() Signals {
	s := attentive()
	s.Gaze = 0.5
	return s
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultThresholds())
	require.NoError(t, err)
	return s
}

func feed(t *testing.T, s *Scorer, sig Signals, n int) []Result {
	t.Helper()
	out := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		r, err := s.Evaluate(Detected(sig), frameDT)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestEvaluate_EyesOpenNeverAsleep(t *testing.T) {
	s := newTestScorer(t)

	for i, r := range feed(t, s, attentive(), 200) {
		assert.Equal(t, time.Duration(0), r.Scores.EyesClosed, "frame %d", i)
		assert.False(t, r.Asleep, "frame %d", i)
		assert.Equal(t, StateProper, r.State, "frame %d", i)
		assert.Equal(t, DescProper, r.Description)
	}
}

func TestEvaluate_AsleepAfterEARTime(t *testing.T) {
	s := newTestScorer(t)
	framesNeeded := int(DefaultThresholds().EARTime / frameDT) // 20

	results := feed(t, s, eyesClosed(), framesNeeded+5)

	for i := 0; i < framesNeeded-1; i++ {
		assert.False(t, results[i].Asleep, "asleep too early at frame %d (%v closed)", i, results[i].Scores.EyesClosed)
	}
	for i := framesNeeded - 1; i < len(results); i++ {
		assert.True(t, results[i].Asleep, "expected asleep at frame %d", i)
		assert.Equal(t, StateAsleep, results[i].State)
		assert.Equal(t, DescAsleep, results[i].Description)
	}
	assert.Equal(t, 2*time.Second, results[framesNeeded-1].Scores.EyesClosed)
}

func TestEvaluate_CompliantFrameResetsStreak(t *testing.T) {
	s := newTestScorer(t)
	limit := int(DefaultThresholds().GazeTime / frameDT) // 20

	// Just short of the limit.
	for _, r := range feed(t, s, lookingAway(), limit-1) {
		assert.False(t, r.Distracted)
	}

	// One compliant frame clears everything.
	r := feed(t, s, attentive(), 1)[0]
	assert.Equal(t, time.Duration(0), r.Scores.Gaze)

	// The new streak must reach the limit on its own.
	results := feed(t, s, lookingAway(), limit)
	for i := 0; i < limit-1; i++ {
		assert.False(t, results[i].Distracted, "streaks combined at frame %d", i)
	}
	assert.True(t, results[limit-1].Distracted)
	assert.Equal(t, DescDistracted, results[limit-1].Description)
}

func TestEvaluate_PoseStreakUsesPoseTime(t *testing.T) {
	s := newTestScorer(t)
	sig := attentive()
	sig.Yaw = -35

	limit := int(DefaultThresholds().PoseTime / frameDT) // 25
	results := feed(t, s, sig, limit)

	for i := 0; i < limit-1; i++ {
		// Pose is out of range, so the frame is not PROPER either.
		assert.Equal(t, StateUndetermined, results[i].State, "frame %d", i)
		assert.Empty(t, results[i].Description)
	}
	assert.Equal(t, StateDistracted, results[limit-1].State)
}

func TestEvaluate_AsleepAndDistractedExclusive(t *testing.T) {
	s := newTestScorer(t)
	sig := eyesClosed()
	sig.Gaze = 0.5
	sig.Pitch = 40

	for i, r := range feed(t, s, sig, 60) {
		assert.False(t, r.Asleep && r.Distracted, "both flags at frame %d", i)
		if r.Asleep {
			assert.Equal(t, StateAsleep, r.State)
		}
	}

	// Both streaks are past their limits; asleep wins.
	r := feed(t, s, sig, 1)[0]
	assert.Equal(t, StateAsleep, r.State)
	assert.False(t, r.Distracted)
}

func TestEvaluate_ProperOnlyWhenSoleConclusion(t *testing.T) {
	tests := []struct {
		name   string
		sig    Signals
		frames int
		want   State
	}{
		{"attentive", attentive(), 1, StateProper},
		{"pitch over", Signals{EAR: 0.3, Pitch: 21}, 1, StateUndetermined},
		{"roll over", Signals{EAR: 0.3, Roll: -21}, 1, StateUndetermined},
		{"pose exactly at limit", Signals{EAR: 0.3, Pitch: 20, Yaw: -20, Roll: 20}, 1, StateProper},
		{"gaze away briefly", lookingAway(), 3, StateProper},
		{"gaze away long", lookingAway(), 30, StateDistracted},
		{"eyes closed long", eyesClosed(), 30, StateAsleep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScorer(t)
			results := feed(t, s, tt.sig, tt.frames)
			last := results[len(results)-1]
			assert.Equal(t, tt.want, last.State)
			if last.State == StateProper {
				assert.Equal(t, DescProper, last.Description)
				assert.False(t, last.Asleep || last.Distracted)
			}
		})
	}
}

// A frame without a face freezes the accumulators: they neither advance
// nor reset.
func TestEvaluate_NoFaceFreezesAccumulators(t *testing.T) {
	s := newTestScorer(t)
	sig := eyesClosed()
	sig.Gaze = 0.5
	sig.Yaw = 30

	feed(t, s, sig, 7)
	before := s.Scores()
	require.NotZero(t, before.EyesClosed)

	r, err := s.Evaluate(NoFace(), frameDT)
	require.NoError(t, err)
	assert.Equal(t, StateNoFace, r.State)
	assert.Equal(t, DescNoFace, r.Description)
	assert.Equal(t, before, r.Scores)
	assert.Equal(t, before, s.Scores())

	// The streak continues where it left off.
	next := feed(t, s, sig, 1)[0]
	assert.Equal(t, before.EyesClosed+frameDT, next.Scores.EyesClosed)
}

func TestEvaluate_FailedInputIsErrorAndFreezes(t *testing.T) {
	s := newTestScorer(t)
	feed(t, s, eyesClosed(), 4)
	before := s.Scores()

	boom := errors.New("landmarks timed out")
	_, err := s.Evaluate(Failed(boom), frameDT)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.Scores())

	_, err = s.Evaluate(Failed(nil), frameDT)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestEvaluate_MalformedSignal(t *testing.T) {
	s := newTestScorer(t)
	feed(t, s, eyesClosed(), 3)
	before := s.Scores()

	bad := eyesClosed()
	bad.Yaw = math.NaN()
	_, err := s.Evaluate(Detected(bad), frameDT)
	assert.ErrorIs(t, err, ErrBadSignal)
	assert.Equal(t, before, s.Scores())

	bad = eyesClosed()
	bad.EAR = math.Inf(1)
	_, err = s.Evaluate(Detected(bad), frameDT)
	assert.ErrorIs(t, err, ErrBadSignal)
}

func TestEvaluate_NonPositiveDTUsesFallback(t *testing.T) {
	s := newTestScorer(t)

	r, err := s.Evaluate(Detected(eyesClosed()), 0)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, r.Scores.EyesClosed)
}

func TestScorer_Reset(t *testing.T) {
	s := newTestScorer(t)
	feed(t, s, lookingAway(), 10)
	require.NotZero(t, s.Scores().Gaze)

	s.Reset()
	assert.Equal(t, Scores{}, s.Scores())
}

func TestNewScorer_RejectsInvalidThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.Yaw = -1

	_, err := NewScorer(th)
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}
