package player

// Media is the fallback playback driver. It plays pre-resolved direct
// stream URLs and has no embed restrictions: any failure here is terminal
// for the track, so every engine error maps to the generic failure code.
type Media struct {
	*engine
}

// NewMedia builds the fallback driver.
func NewMedia() *Media {
	return &Media{
		engine: newEngine(
			"media",
			func(streamURL string) string {
				return streamURL
			},
			func(error) ErrorCode {
				return ErrPlayerFailure
			},
		),
	}
}
