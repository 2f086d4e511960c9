package acquire

// State is the phase of an acquisition run.
type State int32

const (
	Idle State = iota
	Starting
	Stepping
	Draining
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Stepping:
		return "stepping"
	case Draining:
		return "draining"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Stats counts what a run has received so far.
type Stats struct {
	Lines     uint64 // Every non-empty line, data or not
	Samples   uint64 // Data lines converted into samples
	Malformed uint64 // Data lines that failed to parse
}
