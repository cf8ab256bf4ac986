package music

import (
	"context"
)

// Library is the local library index (the media server plus its files).
type Library interface {
	// FindMatching searches by title and keeps only exact identity matches.
	// Returns nil, nil when nothing matches.
	FindMatching(ctx context.Context, title, artist string) (*LocalTrack, error)
	Playlists(ctx context.Context) ([]LocalPlaylist, error)
	// GetPlaylist returns nil, nil when no playlist has that name.
	GetPlaylist(ctx context.Context, name string) (*LocalPlaylist, error)
	CreatePlaylist(ctx context.Context, name string, items []LocalTrack) error
	AddItems(ctx context.Context, playlist *LocalPlaylist, items []LocalTrack) error
	RemoveItems(ctx context.Context, playlist *LocalPlaylist, items []LocalTrack) error
	// DeleteTrack removes the library entry and the files behind it. Both are
	// attempted even when the other fails.
	DeleteTrack(ctx context.Context, track LocalTrack) error
	// RatedTracks lists the tracks of the named section whose rating satisfies keep.
	RatedTracks(ctx context.Context, section string, keep func(rating float64) bool) ([]LocalTrack, error)
	// Refresh asks the library to rescan path so new files become searchable.
	Refresh(ctx context.Context, path string) error
}

// Catalog is the remote playlist catalog.
type Catalog interface {
	Playlist(ctx context.Context, id string) (*RemotePlaylist, error)
	PlaylistTracks(ctx context.Context, id string) ([]RemoteTrack, error)
	UserPlaylists(ctx context.Context, userID string) ([]RemotePlaylist, error)
	FindPlaylistsByName(ctx context.Context, names []string) ([]RemotePlaylist, error)
	RemoveTrack(ctx context.Context, playlistID, trackID string) error
}

// FileRemover deletes library files.
type FileRemover interface {
	Remove(path string) error
}
