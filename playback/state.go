package playback

// Status is the orchestrator's coarse state, derived from the active
// driver and the loading lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RepeatMode controls what happens when a track ends or navigation runs
// off either end of the queue.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// ParseRepeatMode maps a stored string onto a repeat mode, defaulting to
// off for unknown values.
func ParseRepeatMode(s string) RepeatMode {
	switch RepeatMode(s) {
	case RepeatAll:
		return RepeatAll
	case RepeatOne:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// Cycle advances off -> all -> one -> off.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

func (m RepeatMode) String() string {
	return string(m)
}
