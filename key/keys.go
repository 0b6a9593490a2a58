// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Backend API - these keys configure communication with the SoundPulse metadata service.
const (
	APIBaseURL      = "api.base_url"
	APICacheTTL     = "api.cache_ttl_minutes"
	APIRetries      = "api.retries"
	SearchLimit     = "search.limit"
	SearchFilter    = "search.filter"
	ChartsCountry   = "charts.country"
	RelatedLimit    = "related.limit"
	WatchQueueLimit = "watch.queue_limit"
)

// Media Playback - these keys maintain the configuration for the playback drivers.
const (
	PlayerBinary   = "player.binary"
	PlayerPrefetch = "player.prefetch_stream"
	PlayerWatchURL = "player.watch_url"
)

// History Tracking - these keys configure the persistence of listening state.
const (
	HistorySaveOnPlay = "history.save_on_play"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
