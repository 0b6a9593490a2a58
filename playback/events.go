package playback

// TrackChange announces that the published track was replaced, either by
// a new load or by late-arriving metadata for the current track.
type TrackChange struct {
	Track Track
}

// StateChange announces a coarse status transition.
type StateChange struct {
	Status        Status
	UsingFallback bool
}

// Progress carries the periodic position sample for the loaded track.
type Progress struct {
	CurrentTime float64
	Duration    float64
}

// ModeChange announces a playback modifier update.
type ModeChange struct {
	RepeatMode RepeatMode
	Shuffle    bool
	Volume     int
	Muted      bool
}

// NoticeLevel grades user-facing notices.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// Notice is a transient user-facing message ("please wait", "unable to
// play, skipping"). Expected failures surface here instead of as errors
// returned to callers.
type Notice struct {
	Level   NoticeLevel
	Message string
}
