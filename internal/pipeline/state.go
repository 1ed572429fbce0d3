package pipeline

// State is a step of the ingestion and question flow.
type State int

const (
	Idle State = iota
	Fetching
	Chunking
	Indexing
	Ready
	Retrieving
	Composing
	Answered
)

var stateNames = [...]string{
	Idle:       "idle",
	Fetching:   "fetching",
	Chunking:   "chunking",
	Indexing:   "indexing",
	Ready:      "ready",
	Retrieving: "retrieving",
	Composing:  "composing",
	Answered:   "answered",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CanAsk reports whether a question may be asked in this state.
func (s State) CanAsk() bool { return s == Ready || s == Answered }
