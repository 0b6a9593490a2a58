// Package storage provides the durable key-value state layer for playback and library data.
//
// All state lives in a single JSON document on disk, persisted through
// the virtualized filesystem so tests can run fully in memory.
package storage

import (
	"fmt"
	"time"

	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/soundpulse-cli/soundpulse/filesystem"
	"github.com/soundpulse-cli/soundpulse/util"
	"github.com/soundpulse-cli/soundpulse/where"
)

// recentTracksCap bounds the listening history.
const recentTracksCap = 100

// UserPlaylist is a locally-created playlist of track identifiers.
type UserPlaylist struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TrackIDs    []string  `json:"trackIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// state is the full persisted document.
type state struct {
	Queue           []string       `json:"queue"`
	CurrentTrack    string         `json:"currentTrack"`
	Volume          *int           `json:"volume"`
	RepeatMode      string         `json:"repeatMode"`
	Shuffle         bool           `json:"shuffle"`
	RecentTracks    []string       `json:"recentTracks"`
	LikedTracks     []string       `json:"likedTracks"`
	LikedAlbums     []string       `json:"likedAlbums"`
	FollowedArtists []string       `json:"followedArtists"`
	UserPlaylists   []UserPlaylist `json:"userPlaylists"`
}

// cacher provides an abstracted, disk-backed registry for the application state document.
var cacher = gache.New[*state](
	&gache.Options{
		Path:       where.State(),
		FileSystem: &filesystem.GacheFs{},
	},
)

func load() (*state, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return &state{}, nil
	}
	return cached, nil
}

func save(s *state) error {
	return cacher.Set(s)
}

// Queue returns the persisted playback queue.
func Queue() ([]string, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}
	return s.Queue, nil
}

// SetQueue replaces the persisted playback queue.
func SetQueue(trackIDs []string) error {
	s, err := load()
	if err != nil {
		return err
	}

	s.Queue = trackIDs
	return save(s)
}

// CurrentTrack returns the last played track identifier, empty if none.
func CurrentTrack() (string, error) {
	s, err := load()
	if err != nil {
		return "", err
	}
	return s.CurrentTrack, nil
}

// SetCurrentTrack records the last played track identifier.
func SetCurrentTrack(trackID string) error {
	s, err := load()
	if err != nil {
		return err
	}

	s.CurrentTrack = trackID
	return save(s)
}

// Volume returns the persisted volume, defaulting to 100.
func Volume() (int, error) {
	s, err := load()
	if err != nil {
		return 0, err
	}
	if s.Volume == nil {
		return 100, nil
	}
	return *s.Volume, nil
}

// SetVolume persists the volume, clamped to [0, 100].
func SetVolume(volume int) error {
	s, err := load()
	if err != nil {
		return err
	}

	s.Volume = lo.ToPtr(util.Clamp(volume, 0, 100))
	return save(s)
}

// RepeatMode returns the persisted repeat mode, defaulting to "off".
func RepeatMode() (string, error) {
	s, err := load()
	if err != nil {
		return "", err
	}
	if s.RepeatMode == "" {
		return "off", nil
	}
	return s.RepeatMode, nil
}

// SetRepeatMode persists the repeat mode. Unknown modes are rejected.
func SetRepeatMode(mode string) error {
	if !lo.Contains([]string{"off", "all", "one"}, mode) {
		return fmt.Errorf("unknown repeat mode %q", mode)
	}

	s, err := load()
	if err != nil {
		return err
	}

	s.RepeatMode = mode
	return save(s)
}

// Shuffle returns the persisted shuffle flag.
func Shuffle() (bool, error) {
	s, err := load()
	if err != nil {
		return false, err
	}
	return s.Shuffle, nil
}

// SetShuffle persists the shuffle flag.
func SetShuffle(enabled bool) error {
	s, err := load()
	if err != nil {
		return err
	}

	s.Shuffle = enabled
	return save(s)
}

// RecentTracks returns the listening history, most recent first.
func RecentTracks() ([]string, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}
	return s.RecentTracks, nil
}

// AddRecentTrack records a track at the front of the listening history.
// An already-present identifier is promoted rather than duplicated, and
// the history is truncated to its cap.
func AddRecentTrack(trackID string) error {
	s, err := load()
	if err != nil {
		return err
	}

	recent := lo.Without(s.RecentTracks, trackID)
	recent = append([]string{trackID}, recent...)
	if len(recent) > recentTracksCap {
		recent = recent[:recentTracksCap]
	}

	s.RecentTracks = recent
	return save(s)
}

// ClearRecentTracks wipes the listening history.
func ClearRecentTracks() error {
	s, err := load()
	if err != nil {
		return err
	}

	s.RecentTracks = nil
	return save(s)
}
