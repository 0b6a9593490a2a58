// Package player defines a unified abstraction layer for media playback engines.
// The architecture supports two backends over mpv's JSON-IPC interface: an
// embed driver resolving tracks through the streaming site's watch URLs, and a
// media driver playing pre-resolved direct stream URLs.
package player

// State is the raw playback state reported by a driver, using the embed
// player's integer code space.
type State int

const (
	Unstarted State = -1
	Ended     State = 0
	Playing   State = 1
	Paused    State = 2
	Buffering State = 3
	Cued      State = 5
)

// Name maps a state code to its semantic name.
func (s State) Name() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Ended:
		return "ended"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Buffering:
		return "buffering"
	case Cued:
		return "cued"
	default:
		return "unknown"
	}
}

func (s State) String() string {
	return s.Name()
}

// Driver encapsulates the required capabilities for a playback backend.
//
// Construction is asynchronous: a driver is unusable until it signals
// readiness. Callbacks registered via OnReady fire immediately when the
// driver is already ready.
type Driver interface {
	// Load begins playback of the given target. For the embed driver the
	// target is a track identifier; for the media driver it is a direct
	// stream URL. If the driver is not yet ready the load is deferred
	// until readiness.
	Load(target string) error

	// Play resumes playback. Calling Play while already playing is harmless.
	Play() error

	// Pause suspends playback. Calling Pause while already paused is harmless.
	Pause() error

	// Stop halts playback and clears the loaded media.
	Stop() error

	// SeekTo moves playback to an absolute position in seconds.
	SeekTo(seconds float64) error

	// SetVolume adjusts the playback volume (0-100).
	SetVolume(volume int) error

	// Mute silences playback without changing the stored volume.
	Mute() error

	// Unmute restores playback at the stored volume.
	Unmute() error

	// CurrentTime reports the playback position in seconds.
	CurrentTime() float64

	// Duration reports the loaded media's length in seconds, 0 if unknown.
	Duration() float64

	// Volume reports the playback volume (0-100).
	Volume() int

	// Muted reports whether playback is muted.
	Muted() bool

	// State reports the raw playback state.
	State() State

	// IsPlaying reports whether the driver is actively playing.
	IsPlaying() bool

	// IsPaused reports whether the driver is paused.
	IsPaused() bool

	// OnReady registers a callback fired when the driver becomes usable.
	// Fires immediately if the driver is already ready.
	OnReady(func())

	// OnStateChange registers a callback for raw state transitions. The
	// second argument is the target the state refers to.
	OnStateChange(func(state State, target string))

	// OnError registers a callback for playback errors.
	OnError(func(code ErrorCode, target string))

	// Close terminates the playback engine and releases its resources.
	Close() error
}
