package attention

import "fmt"

// State is the discrete driver state for one frame.
type State int

const (
	// StateUndetermined is a face-present frame that meets none of the
	// other conclusions (for example a pose over threshold that has not yet
	// lasted long enough).
	StateUndetermined State = iota
	StateProper
	StateAsleep
	StateDistracted
	StateNoFace
)

// Descriptions reported alongside each state.
const (
	DescAsleep     = "ASLEEP!"
	DescDistracted = "DISTRACTED!"
	DescProper     = "DRIVING PROPERLY!"
	DescNoFace     = "NO FACE DETECTED"
)

func (s State) String() string {
	switch s {
	case StateUndetermined:
		return "UNDETERMINED"
	case StateProper:
		return "PROPER"
	case StateAsleep:
		return "ASLEEP"
	case StateDistracted:
		return "DISTRACTED"
	case StateNoFace:
		return "NO_FACE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the classifier output for a single frame.
type Result struct {
	State       State   `json:"state"`
	Description string  `json:"description"`
	Asleep      bool    `json:"asleep"`
	Distracted  bool    `json:"distracted"`
	Scores      Scores  `json:"scores"`
	Signals     Signals `json:"signals"`
	FPS         float64 `json:"fps"`
}
