package storage

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// LikedTracks returns the identifiers of liked tracks.
func LikedTracks() ([]string, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}
	return s.LikedTracks, nil
}

// IsTrackLiked reports whether a track is liked.
func IsTrackLiked(trackID string) (bool, error) {
	liked, err := LikedTracks()
	if err != nil {
		return false, err
	}
	return lo.Contains(liked, trackID), nil
}

// ToggleLikedTrack flips the liked flag for a track and returns the new state.
func ToggleLikedTrack(trackID string) (bool, error) {
	s, err := load()
	if err != nil {
		return false, err
	}

	if lo.Contains(s.LikedTracks, trackID) {
		s.LikedTracks = lo.Without(s.LikedTracks, trackID)
		return false, save(s)
	}

	s.LikedTracks = append(s.LikedTracks, trackID)
	return true, save(s)
}

// LikedAlbums returns the identifiers of liked albums.
func LikedAlbums() ([]string, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}
	return s.LikedAlbums, nil
}

// ToggleLikedAlbum flips the liked flag for an album and returns the new state.
func ToggleLikedAlbum(albumID string) (bool, error) {
	s, err := load()
	if err != nil {
		return false, err
	}

	if lo.Contains(s.LikedAlbums, albumID) {
		s.LikedAlbums = lo.Without(s.LikedAlbums, albumID)
		return false, save(s)
	}

	s.LikedAlbums = append(s.LikedAlbums, albumID)
	return true, save(s)
}

// FollowedArtists returns the identifiers of followed artists.
func FollowedArtists() ([]string, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}
	return s.FollowedArtists, nil
}

// ToggleFollowedArtist flips the followed flag for an artist and returns the new state.
func ToggleFollowedArtist(artistID string) (bool, error) {
	s, err := load()
	if err != nil {
		return false, err
	}

	if lo.Contains(s.FollowedArtists, artistID) {
		s.FollowedArtists = lo.Without(s.FollowedArtists, artistID)
		return false, save(s)
	}

	s.FollowedArtists = append(s.FollowedArtists, artistID)
	return true, save(s)
}

// UserPlaylists returns all locally-created playlists.
func UserPlaylists() ([]UserPlaylist, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}
	return s.UserPlaylists, nil
}

// PlaylistByID looks up a locally-created playlist.
func PlaylistByID(playlistID string) (*UserPlaylist, error) {
	playlists, err := UserPlaylists()
	if err != nil {
		return nil, err
	}

	playlist, found := lo.Find(playlists, func(p UserPlaylist) bool {
		return p.ID == playlistID
	})
	if !found {
		return nil, fmt.Errorf("playlist %q not found", playlistID)
	}
	return &playlist, nil
}

// CreatePlaylist adds a new empty playlist and returns it.
func CreatePlaylist(title, description string) (*UserPlaylist, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	playlist := UserPlaylist{
		ID:          fmt.Sprintf("user-playlist-%d", now.UnixMilli()),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.UserPlaylists = append(s.UserPlaylists, playlist)
	if err = save(s); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// DeletePlaylist removes a locally-created playlist. Returns false if no
// playlist with the given identifier exists.
func DeletePlaylist(playlistID string) (bool, error) {
	s, err := load()
	if err != nil {
		return false, err
	}

	filtered := lo.Reject(s.UserPlaylists, func(p UserPlaylist, _ int) bool {
		return p.ID == playlistID
	})
	if len(filtered) == len(s.UserPlaylists) {
		return false, nil
	}

	s.UserPlaylists = filtered
	return true, save(s)
}

// AddTrackToPlaylist appends a track to a playlist. Adding a track that
// is already present is a no-op returning false.
func AddTrackToPlaylist(playlistID, trackID string) (bool, error) {
	s, err := load()
	if err != nil {
		return false, err
	}

	for i := range s.UserPlaylists {
		if s.UserPlaylists[i].ID != playlistID {
			continue
		}

		if lo.Contains(s.UserPlaylists[i].TrackIDs, trackID) {
			return false, nil
		}

		s.UserPlaylists[i].TrackIDs = append(s.UserPlaylists[i].TrackIDs, trackID)
		s.UserPlaylists[i].UpdatedAt = time.Now()
		return true, save(s)
	}

	return false, fmt.Errorf("playlist %q not found", playlistID)
}

// RemoveTrackFromPlaylist removes a track from a playlist. Returns false
// if the track was not present.
func RemoveTrackFromPlaylist(playlistID, trackID string) (bool, error) {
	s, err := load()
	if err != nil {
		return false, err
	}

	for i := range s.UserPlaylists {
		if s.UserPlaylists[i].ID != playlistID {
			continue
		}

		if !lo.Contains(s.UserPlaylists[i].TrackIDs, trackID) {
			return false, nil
		}

		s.UserPlaylists[i].TrackIDs = lo.Without(s.UserPlaylists[i].TrackIDs, trackID)
		s.UserPlaylists[i].UpdatedAt = time.Now()
		return true, save(s)
	}

	return false, fmt.Errorf("playlist %q not found", playlistID)
}
