package player

import "strings"

// ErrorCode is a numeric playback error reported by a driver, using the
// embed player's error code space.
type ErrorCode int

const (
	// ErrInvalidParam signals a malformed target identifier.
	ErrInvalidParam ErrorCode = 2

	// ErrPlayerFailure signals an internal engine failure.
	ErrPlayerFailure ErrorCode = 5

	// ErrNotFound signals a target that does not exist or was removed.
	ErrNotFound ErrorCode = 100

	// ErrEmbedDisabled signals a track whose owner forbids embedded playback.
	ErrEmbedDisabled ErrorCode = 101

	// ErrEmbedRestricted is ErrEmbedDisabled in disguise, reported by some
	// targets instead of 101.
	ErrEmbedRestricted ErrorCode = 150
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidParam:    "invalid track identifier",
	ErrPlayerFailure:   "playback engine failure",
	ErrNotFound:        "track not found or removed",
	ErrEmbedDisabled:   "embedded playback not allowed for this track",
	ErrEmbedRestricted: "embedded playback restricted for this track",
}

// Message returns a human-readable description of the error code.
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "unknown playback error"
}

func (c ErrorCode) String() string {
	return c.Message()
}

// IsFatalForVideo reports whether playback of this particular track can
// never succeed on the embed path. The orchestrator responds by switching
// to the media driver; every other code is handled as a skip.
func (c ErrorCode) IsFatalForVideo() bool {
	return c == ErrEmbedDisabled || c == ErrEmbedRestricted
}

// classifyLoadError maps an engine-level failure onto the error code
// space. The engine reports failures as free-form strings, so the mapping
// is necessarily heuristic.
func classifyLoadError(err error) ErrorCode {
	if err == nil {
		return ErrPlayerFailure
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "embed"):
		return ErrEmbedDisabled
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found") || strings.Contains(msg, "unavailable"):
		return ErrNotFound
	case strings.Contains(msg, "invalid"):
		return ErrInvalidParam
	default:
		return ErrPlayerFailure
	}
}
