package api

import (
	"encoding/json"
	"regexp"

	"github.com/soundpulse-cli/soundpulse/util"
)

// Duration holds a track length in whole seconds. The backend returns
// lengths either as a number or as a clock string ("3:45", "1:02:03"),
// so unmarshalling accepts both.
type Duration int

func (d *Duration) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*d = Duration(util.ParseClock(s))
	return nil
}

func (d Duration) Seconds() int {
	return int(d)
}

// ArtistRef is a minimal artist reference attached to songs and albums.
type ArtistRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// AlbumRef is a minimal album reference attached to songs.
type AlbumRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Thumbnail is a single artwork rendition.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var thumbnailSizeRegex = regexp.MustCompile(`=w\d+-h\d+`)

// BestThumbnail picks the highest-quality rendition (the backend orders
// thumbnails smallest first) and pins its size parameters to 250x250.
func BestThumbnail(thumbnails []Thumbnail) string {
	if len(thumbnails) == 0 {
		return ""
	}

	url := thumbnails[len(thumbnails)-1].URL
	return thumbnailSizeRegex.ReplaceAllString(url, "=w250-h250")
}

// Song is the backend's track metadata payload.
type Song struct {
	VideoID         string      `json:"videoId"`
	Title           string      `json:"title"`
	Artists         []ArtistRef `json:"artists"`
	Album           *AlbumRef   `json:"album"`
	Thumbnails      []Thumbnail `json:"thumbnails"`
	Duration        Duration    `json:"duration"`
	DurationSeconds int         `json:"duration_seconds"`
}

// Seconds resolves the track length, preferring the explicit seconds
// field over the clock-form duration.
func (s *Song) Seconds() int {
	if s.DurationSeconds > 0 {
		return s.DurationSeconds
	}
	return s.Duration.Seconds()
}

// PrimaryArtist returns the first credited artist name, if any.
func (s *Song) PrimaryArtist() (ArtistRef, bool) {
	if len(s.Artists) == 0 {
		return ArtistRef{}, false
	}
	return s.Artists[0], true
}

// SearchResult is one entry of a search response.
type SearchResult struct {
	VideoID    string      `json:"videoId"`
	BrowseID   string      `json:"browseId"`
	Title      string      `json:"title"`
	Artists    []ArtistRef `json:"artists"`
	Album      *AlbumRef   `json:"album"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Duration   Duration    `json:"duration"`
	Category   string      `json:"category"`
	ResultType string      `json:"resultType"`
}

// SearchResponse is the backend's search payload.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SuggestionsResponse holds autocomplete entries for a partial query.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// StreamURLResponse is the stream-resolution payload used by the
// fallback playback path.
type StreamURLResponse struct {
	StreamURL string `json:"streamUrl"`
}

// RelatedResponse holds tracks related to a seed track.
type RelatedResponse struct {
	Related []SearchResult `json:"related"`
	Count   int            `json:"count"`
}

// LyricsResponse is the backend's lyrics payload.
type LyricsResponse struct {
	Lyrics string `json:"lyrics"`
	Source string `json:"source"`
}

// Artist is the backend's artist profile payload.
type Artist struct {
	Name        string      `json:"name"`
	BrowseID    string      `json:"browseId"`
	ChannelID   string      `json:"channelId"`
	Subscribers string      `json:"subscribers"`
	Description string      `json:"description"`
	Thumbnails  []Thumbnail `json:"thumbnails"`
	Songs       struct {
		Results []SearchResult `json:"results"`
	} `json:"songs"`
	Albums struct {
		Results []Album `json:"results"`
	} `json:"albums"`
}

// Album is the backend's album payload, with its tracklist when fetched
// directly.
type Album struct {
	Title      string      `json:"title"`
	BrowseID   string      `json:"browseId"`
	Year       string      `json:"year"`
	TrackCount int         `json:"trackCount"`
	Artists    []ArtistRef `json:"artists"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Tracks     []Song      `json:"tracks"`
}

// Playlist is the backend's playlist payload.
type Playlist struct {
	Title      string      `json:"title"`
	ID         string      `json:"id"`
	TrackCount int         `json:"trackCount"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Tracks     []Song      `json:"tracks"`
}

// WatchPlaylist is an auto-generated radio queue seeded by a track.
type WatchPlaylist struct {
	Tracks []Song `json:"tracks"`
}

// Charts holds top tracks for a country.
type Charts struct {
	Country string `json:"country"`
	Songs   struct {
		Items []SearchResult `json:"items"`
	} `json:"songs"`
}

// HomeSection is one shelf of the home feed.
type HomeSection struct {
	Title    string            `json:"title"`
	Contents []json.RawMessage `json:"contents"`
}

// MoodCategory is a mood/genre browse entry.
type MoodCategory struct {
	Title  string `json:"title"`
	Params string `json:"params"`
}

// MoodPlaylist is one playlist under a mood category.
type MoodPlaylist struct {
	Title      string      `json:"title"`
	PlaylistID string      `json:"playlistId"`
	Thumbnails []Thumbnail `json:"thumbnails"`
}
