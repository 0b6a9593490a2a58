package player

import (
	"fmt"

	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/spf13/viper"
)

// Embed is the primary playback driver. It resolves track identifiers
// through the streaming site's watch URLs, which the playback engine
// dereferences itself. Tracks whose owners forbid embedded playback fail
// here with a fatal-for-this-track error code and are handed over to the
// Media driver by the orchestrator.
type Embed struct {
	*engine
}

// NewEmbed builds the primary driver using the configured watch URL
// template.
func NewEmbed() *Embed {
	template := viper.GetString(key.PlayerWatchURL)

	return &Embed{
		engine: newEngine(
			"embed",
			func(trackID string) string {
				return fmt.Sprintf(template, trackID)
			},
			classifyLoadError,
		),
	}
}
