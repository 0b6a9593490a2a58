// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/soundpulse-cli/soundpulse/color"
	"github.com/soundpulse-cli/soundpulse/constant"
	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/soundpulse-cli/soundpulse/style"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.SoundPulse + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.APIBaseURL, constant.DefaultAPIBaseURL, "Base URL of the SoundPulse backend API")
	register(key.APICacheTTL, 15, "Lifetime of cached API responses, in minutes")
	register(key.APIRetries, 2, "Number of times a failed API request is retried before giving up")
	register(key.SearchLimit, 20, "Limit of search results to show")
	register(key.SearchFilter, "songs", "Default search filter.\nAvailable options are: songs, artists, albums, playlists")
	register(key.ChartsCountry, "BR", "Country code used for the charts endpoint")
	register(key.RelatedLimit, 25, "Limit of related songs to fetch for a track")
	register(key.WatchQueueLimit, 50, "Number of tracks to request when building a radio queue from a song")
	register(key.PlayerBinary, "mpv", "Media player binary driving both playback backends")
	register(key.PlayerPrefetch, true, "Speculatively resolve a direct stream URL while the primary player is loading")
	register(key.PlayerWatchURL, "https://music.youtube.com/watch?v=%s", "Watch URL template handed to the primary (embed) driver")
	register(key.HistorySaveOnPlay, true, "Record played tracks in the recent-tracks history")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, plain, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":  style.Faint,
	"bold":   style.Bold,
	"purple": style.Fg(color.Purple),
	"blue":   style.Fg(color.Blue),
	"cyan":   style.Fg(color.Cyan),
	"value":  func(k string) any { return viper.Get(k) },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case int:
			return style.Fg(color.Yellow)(strconv.Itoa(value))
		case string:
			return style.Fg(color.Cyan)(value)
		default:
			return style.Fg(color.Cyan)(fmt.Sprintf("%v", v))
		}
	},
}).Parse(`{{ purple .Key }} {{ faint "=" }} {{ hl (value .Key) }}
{{ faint .Description }}
{{ faint "Env:" }} {{ cyan .Env }}`))
