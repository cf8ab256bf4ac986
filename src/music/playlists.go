package music

import (
	"fmt"
	"strings"
)

// RemotePlaylist is a catalog playlist together with its change fingerprint.
type RemotePlaylist struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	OwnerID    string        `json:"ownerId"`
	SnapshotID string        `json:"snapshotId"`
	Tracks     []RemoteTrack `json:"tracks"`
}

// Validate validates the playlist fields.
func (p *RemotePlaylist) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("playlist id cannot be empty: name -> %s", p.Name)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name cannot be empty: id -> %s", p.ID)
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("playlist name cannot exceed 200 characters, got %d: name -> %s", len(p.Name), p.Name)
	}
	return nil
}

// FindTrack returns the first track of the playlist with the given identity.
func (p *RemotePlaylist) FindTrack(id TrackIdentity) (RemoteTrack, bool) {
	for _, t := range p.Tracks {
		if t.Identity().Equal(id) {
			return t, true
		}
	}
	return RemoteTrack{}, false
}

// LocalPlaylist is a named, ordered collection in the local library.
type LocalPlaylist struct {
	Key    string
	Name   string
	Tracks []LocalTrack
}

// Identities indexes the playlist tracks by identity. The first occurrence wins.
func (p *LocalPlaylist) Identities() map[TrackIdentity]LocalTrack {
	out := make(map[TrackIdentity]LocalTrack, len(p.Tracks))
	for _, t := range p.Tracks {
		id := t.Identity()
		if _, ok := out[id]; !ok {
			out[id] = t
		}
	}
	return out
}
