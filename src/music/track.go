package music

import (
	"fmt"
	"strings"
)

// RemoteTrack is a track as listed by the remote catalog.
type RemoteTrack struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	URL        string `json:"url,omitempty"` // Web locator, used by the direct download tool
	URI        string `json:"uri,omitempty"`
	ArtworkURL string `json:"artworkUrl,omitempty"`
}

// Identity returns the aggressive identity of the track.
func (t RemoteTrack) Identity() TrackIdentity {
	return IdentityOf(t.Title, t.Artist)
}

// Validate validates the track fields.
func (t *RemoteTrack) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("remote track id cannot be empty: title -> %s", t.Title)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("remote track title cannot be empty: id -> %s", t.ID)
	}
	if strings.TrimSpace(t.Artist) == "" {
		return fmt.Errorf("remote track must have an artist: title -> %s", t.Title)
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title cannot exceed 500 characters, got %d: title -> %s", len(t.Title), t.Title)
	}
	return nil
}

// LocalTrack is a playable item owned by the local library.
type LocalTrack struct {
	Key    string   // Library rating key
	Title  string
	Artist string   // Grandparent (artist) title
	Files  []string // Media part file paths
	Rating float64  // User rating on a 0-10 scale, 0 when unrated
	// PlaylistItemID is only set for tracks listed through a playlist.
	PlaylistItemID string
}

// Identity returns the aggressive identity of the track.
func (t LocalTrack) Identity() TrackIdentity {
	return IdentityOf(t.Title, t.Artist)
}

// Pretty returns a formatted string representation of the track for logging/debugging.
func (t LocalTrack) Pretty() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-10s : %s\n", "Key", t.Key))
	builder.WriteString(fmt.Sprintf("%-10s : %s\n", "Title", t.Title))
	builder.WriteString(fmt.Sprintf("%-10s : %s\n", "Artist", t.Artist))
	builder.WriteString(fmt.Sprintf("%-10s : %.1f\n", "Rating", t.Rating))
	for _, f := range t.Files {
		builder.WriteString(fmt.Sprintf("%-10s : %s\n", "File", f))
	}
	return builder.String()
}
