// Package playback implements the playback continuity core: the queue with
// its repeat/shuffle modifiers, the orchestrator state machine driving the
// primary and fallback drivers, and the stream prefetcher.
package playback

import (
	"github.com/soundpulse-cli/soundpulse/api"
)

// placeholderTitle is published for a track whose metadata has not arrived
// yet, so observers always have something to render.
const placeholderTitle = "loading"

// Track is the metadata snapshot published to observers. Only the
// identifier is guaranteed; the remaining fields fill in as metadata
// arrives. A track is superseded by a new value, never mutated in place.
type Track struct {
	ID              string
	Title           string
	ArtistName      string
	ArtistID        string
	AlbumName       string
	AlbumID         string
	ArtworkURL      string
	DurationSeconds int
}

// placeholderTrack synthesizes the immediately-publishable track for an
// identifier.
func placeholderTrack(id string) Track {
	return Track{
		ID:    id,
		Title: placeholderTitle,
	}
}

// mergeSong fills a track from fetched metadata, keeping the identifier.
func mergeSong(track Track, song *api.Song) Track {
	merged := track
	merged.Title = song.Title
	merged.DurationSeconds = song.Seconds()
	merged.ArtworkURL = api.BestThumbnail(song.Thumbnails)

	if artist, ok := song.PrimaryArtist(); ok {
		merged.ArtistName = artist.Name
		merged.ArtistID = artist.ID
	}

	if song.Album != nil {
		merged.AlbumName = song.Album.Name
		merged.AlbumID = song.Album.ID
	}

	if merged.Title == "" {
		merged.Title = placeholderTitle
	}

	return merged
}

// Request names what to load: either a bare identifier or a
// partially-known track carrying its own metadata.
type Request struct {
	id    string
	track *Track
}

// ByID requests playback of a bare identifier; metadata is fetched
// asynchronously.
func ByID(id string) Request {
	return Request{id: id}
}

// ByTrack requests playback of a partially-known track; no metadata fetch
// is issued.
func ByTrack(track Track) Request {
	return Request{id: track.ID, track: &track}
}

// TrackID returns the identifier the request names, empty for a zero
// request.
func (r Request) TrackID() string {
	return r.id
}

// knownTrack returns the carried track, if any.
func (r Request) knownTrack() (Track, bool) {
	if r.track == nil {
		return Track{}, false
	}
	return *r.track, true
}
