// Package api implements the client for the SoundPulse backend HTTP API.
//
// Responses are cached in-memory with a TTL and transient failures are
// retried with a short constant delay. Stream-URL resolution is never
// cached since the backend signs those URLs with a short expiry.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/soundpulse-cli/soundpulse/constant"
	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/soundpulse-cli/soundpulse/log"
	"github.com/soundpulse-cli/soundpulse/network"
	"github.com/soundpulse-cli/soundpulse/util"
	"github.com/spf13/viper"
)

// Client talks to the SoundPulse backend.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *responseCache
	ttl     time.Duration
	retries uint64
}

// New builds a Client from the global configuration.
func New() *Client {
	return &Client{
		baseURL: viper.GetString(key.APIBaseURL),
		http:    network.Client,
		cache:   newResponseCache(),
		ttl:     time.Duration(viper.GetInt(key.APICacheTTL)) * time.Minute,
		retries: uint64(viper.GetInt(key.APIRetries)),
	}
}

// ClearCache drops all cached responses.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// fetch performs a GET against the backend with retries, bypassing the
// response cache.
func (c *Client) fetch(path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", constant.UserAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			log.Warnf("api: %s: %v", path, err)
			return err
		}

		defer util.Ignore(resp.Body.Close)

		if resp.StatusCode != http.StatusOK {
			log.Warnf("api: %s: HTTP %d", path, resp.StatusCode)
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), c.retries))
	if err != nil {
		return nil, err
	}

	return body, nil
}

// get performs a cached GET and decodes the response into out.
func (c *Client) get(path string, query url.Values, out any) error {
	cacheKey := path
	if len(query) > 0 {
		cacheKey += "?" + query.Encode()
	}

	item, err := c.cache.Fetch(cacheKey, c.ttl, func() ([]byte, error) {
		return c.fetch(path, query)
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(item.Value(), out)
}

// Song fetches full metadata for a track.
func (c *Client) Song(videoID string) (*Song, error) {
	var song Song
	if err := c.get("/api/song/"+url.PathEscape(videoID), nil, &song); err != nil {
		return nil, err
	}

	if song.VideoID == "" {
		song.VideoID = videoID
	}
	return &song, nil
}

// StreamURL resolves a directly playable media URL for a track. Results
// are intentionally uncached.
func (c *Client) StreamURL(videoID string) (string, error) {
	body, err := c.fetch("/api/stream/"+url.PathEscape(videoID), nil)
	if err != nil {
		return "", err
	}

	var resolved StreamURLResponse
	if err = json.Unmarshal(body, &resolved); err != nil {
		return "", err
	}

	if resolved.StreamURL == "" {
		return "", fmt.Errorf("no stream url for %s", videoID)
	}
	return resolved.StreamURL, nil
}

// Search queries the backend catalog.
func (c *Client) Search(query, filter string, limit int) (*SearchResponse, error) {
	if query == "" {
		return &SearchResponse{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", filter)
	params.Set("limit", strconv.Itoa(limit))

	var response SearchResponse
	if err := c.get("/api/search", params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SearchSuggestions fetches autocomplete entries for a partial query.
// Queries shorter than two characters yield no suggestions.
func (c *Client) SearchSuggestions(query string) (*SuggestionsResponse, error) {
	if len(query) < 2 {
		return &SuggestionsResponse{}, nil
	}

	params := url.Values{}
	params.Set("q", query)

	var response SuggestionsResponse
	if err := c.get("/api/search/suggestions", params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// RelatedSongs fetches tracks similar to a seed track.
func (c *Client) RelatedSongs(videoID string) (*RelatedResponse, error) {
	var response RelatedResponse
	if err := c.get("/api/song/"+url.PathEscape(videoID)+"/related", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Lyrics fetches the lyrics document for a browse id.
func (c *Client) Lyrics(browseID string) (*LyricsResponse, error) {
	var response LyricsResponse
	if err := c.get("/api/lyrics/"+url.PathEscape(browseID), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Artist fetches a full artist profile.
func (c *Client) Artist(browseID string) (*Artist, error) {
	var artist Artist
	if err := c.get("/api/artist/"+url.PathEscape(browseID), nil, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// ArtistAlbums fetches an artist's discography. A channel id can be
// supplied for better precision.
func (c *Client) ArtistAlbums(browseID, channelID string) ([]Album, error) {
	var params url.Values
	if channelID != "" {
		params = url.Values{}
		params.Set("params", channelID)
	}

	var response struct {
		Albums []Album `json:"albums"`
	}
	if err := c.get("/api/artist/"+url.PathEscape(browseID)+"/albums", params, &response); err != nil {
		return nil, err
	}
	return response.Albums, nil
}

// Album fetches album details including the tracklist.
func (c *Client) Album(browseID string) (*Album, error) {
	var album Album
	if err := c.get("/api/album/"+url.PathEscape(browseID), nil, &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// Playlist fetches playlist details and its tracks.
func (c *Client) Playlist(browseID string, limit int) (*Playlist, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var playlist Playlist
	if err := c.get("/api/playlist/"+url.PathEscape(browseID), params, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// WatchPlaylist fetches an auto-generated radio queue seeded by a track.
func (c *Client) WatchPlaylist(videoID string, limit int) (*WatchPlaylist, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var playlist WatchPlaylist
	if err := c.get("/api/watch/"+url.PathEscape(videoID), params, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// Charts fetches top tracks for a country code.
func (c *Client) Charts(country string) (*Charts, error) {
	params := url.Values{}
	params.Set("country", country)

	var charts Charts
	if err := c.get("/api/charts", params, &charts); err != nil {
		return nil, err
	}
	return &charts, nil
}

// Home fetches the home feed sections.
func (c *Client) Home() ([]HomeSection, error) {
	var sections []HomeSection
	if err := c.get("/api/home", nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// MoodCategories fetches the mood/genre browse categories.
func (c *Client) MoodCategories() (map[string][]MoodCategory, error) {
	var categories map[string][]MoodCategory
	if err := c.get("/api/moods", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// MoodPlaylists fetches the playlists under a mood category.
func (c *Client) MoodPlaylists(params string) ([]MoodPlaylist, error) {
	var playlists []MoodPlaylist
	if err := c.get("/api/moods/"+url.PathEscape(params), nil, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// Health reports whether the backend is reachable.
func (c *Client) Health() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}

	defer util.Ignore(resp.Body.Close)
	return resp.StatusCode == http.StatusOK
}
