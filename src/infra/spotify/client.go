package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/contre95/plexify/src/infra/retry"
	"github.com/contre95/plexify/src/music"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Ensure Client implements music.Catalog
var _ music.Catalog = (*Client)(nil)

const pageSize = 50

// Credentials holds the Spotify application credentials. RefreshToken is
// optional; without it the client runs on the client credentials flow, which
// cannot see the current user's playlists or edit playlists.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Client is the Spotify implementation of music.Catalog. Every remote call
// goes through the retry policy.
type Client struct {
	api       *spotifyapi.Client
	transport *retryAfterTransport
	policy    retry.Policy
}

// NewClient authenticates against Spotify and returns a catalog client.
func NewClient(ctx context.Context, creds Credentials, policy retry.Policy) *Client {
	var httpClient *http.Client
	if creds.RefreshToken != "" {
		auth := spotifyauth.New(
			spotifyauth.WithClientID(creds.ClientID),
			spotifyauth.WithClientSecret(creds.ClientSecret),
		)
		httpClient = auth.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
		slog.Info("Spotify client using refresh token authentication")
	} else {
		cc := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		httpClient = cc.Client(ctx)
		slog.Info("Spotify client using client credentials authentication")
	}
	return newClient(httpClient, policy)
}

func newClient(httpClient *http.Client, policy retry.Policy, opts ...spotifyapi.ClientOption) *Client {
	transport := newRetryAfterTransport(httpClient.Transport)
	httpClient.Transport = transport
	c := &Client{
		api:       spotifyapi.New(httpClient, opts...),
		transport: transport,
	}
	policy.Classify = c.classify
	c.policy = policy
	return c
}

// classify maps API errors onto the retry taxonomy.
func (c *Client) classify(err error) retry.Verdict {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusTooManyRequests:
			return retry.Verdict{Kind: retry.RateLimited, After: c.transport.lastRetryAfter()}
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return retry.Verdict{Kind: retry.Permanent}
		}
	}
	return retry.DefaultClassifier(err)
}

// wrapErr attaches the music sentinels to not-found and bad-request errors.
func wrapErr(op string, err error) error {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, music.ErrNotFound, err)
		case http.StatusBadRequest:
			return fmt.Errorf("%s: %w: %w", op, music.ErrBadRequest, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Playlist fetches the playlist header (name, owner, snapshot) without tracks.
func (c *Client) Playlist(ctx context.Context, id string) (*music.RemotePlaylist, error) {
	full, err := retry.Value(ctx, c.policy, "get playlist", func(ctx context.Context) (*spotifyapi.FullPlaylist, error) {
		return c.api.GetPlaylist(ctx, spotifyapi.ID(id), spotifyapi.Fields("id,name,owner(id),snapshot_id"))
	})
	if err != nil {
		return nil, wrapErr("get playlist "+id, err)
	}
	pl := fromSimplePlaylist(full.SimplePlaylist)
	if err := pl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", music.ErrBadRequest, err)
	}
	return &pl, nil
}

// PlaylistTracks lists every track of a playlist, following pages until exhausted.
func (c *Client) PlaylistTracks(ctx context.Context, id string) ([]music.RemoteTrack, error) {
	page, err := retry.Value(ctx, c.policy, "list playlist items", func(ctx context.Context) (*spotifyapi.PlaylistItemPage, error) {
		return c.api.GetPlaylistItems(ctx, spotifyapi.ID(id), spotifyapi.Limit(pageSize))
	})
	if err != nil {
		return nil, wrapErr("list tracks of "+id, err)
	}

	var tracks []music.RemoteTrack
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil {
				slog.Debug("Skipping playlist item without a track", "playlist", id, "local", item.IsLocal)
				continue
			}
			track := fromFullTrack(item.Track.Track)
			if err := track.Validate(); err != nil {
				slog.Debug("Skipping invalid track", "playlist", id, "error", err)
				continue
			}
			tracks = append(tracks, track)
		}
		if err := c.nextPage(ctx, page); err != nil {
			if errors.Is(err, spotifyapi.ErrNoMorePages) {
				break
			}
			return nil, wrapErr("list tracks of "+id, err)
		}
	}
	slog.Debug("Retrieved playlist tracks", "playlist", id, "count", len(tracks))
	return tracks, nil
}

// UserPlaylists lists the playlists owned by userID. Followed playlists are excluded.
func (c *Client) UserPlaylists(ctx context.Context, userID string) ([]music.RemotePlaylist, error) {
	page, err := retry.Value(ctx, c.policy, "list user playlists", func(ctx context.Context) (*spotifyapi.SimplePlaylistPage, error) {
		return c.api.GetPlaylistsForUser(ctx, userID, spotifyapi.Limit(pageSize))
	})
	if err != nil {
		return nil, wrapErr("list playlists of "+userID, err)
	}
	return c.collectPlaylists(ctx, page, func(p spotifyapi.SimplePlaylist) bool {
		return p.Owner.ID == userID
	})
}

// FindPlaylistsByName looks up the current user's playlists by exact name.
func (c *Client) FindPlaylistsByName(ctx context.Context, names []string) ([]music.RemotePlaylist, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	page, err := retry.Value(ctx, c.policy, "list current user playlists", func(ctx context.Context) (*spotifyapi.SimplePlaylistPage, error) {
		return c.api.CurrentUsersPlaylists(ctx, spotifyapi.Limit(pageSize))
	})
	if err != nil {
		return nil, wrapErr("list current user playlists", err)
	}
	return c.collectPlaylists(ctx, page, func(p spotifyapi.SimplePlaylist) bool {
		return wanted[p.Name]
	})
}

// RemoveTrack removes every occurrence of a track from a playlist.
func (c *Client) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	err := c.policy.Do(ctx, "remove playlist track", func(ctx context.Context) error {
		_, err := c.api.RemoveTracksFromPlaylist(ctx, spotifyapi.ID(playlistID), spotifyapi.ID(trackID))
		return err
	})
	if err != nil {
		return wrapErr(fmt.Sprintf("remove track %s from %s", trackID, playlistID), err)
	}
	return nil
}

func (c *Client) collectPlaylists(ctx context.Context, page *spotifyapi.SimplePlaylistPage, keep func(spotifyapi.SimplePlaylist) bool) ([]music.RemotePlaylist, error) {
	var out []music.RemotePlaylist
	for {
		for _, p := range page.Playlists {
			if !keep(p) {
				continue
			}
			pl := fromSimplePlaylist(p)
			if err := pl.Validate(); err != nil {
				slog.Debug("Skipping invalid playlist", "error", err)
				continue
			}
			out = append(out, pl)
		}
		if err := c.nextPage(ctx, page); err != nil {
			if errors.Is(err, spotifyapi.ErrNoMorePages) {
				return out, nil
			}
			return nil, wrapErr("next playlist page", err)
		}
	}
}

// nextPage advances page in place. The page is restored before every attempt
// because the API client clears it before fetching.
func (c *Client) nextPage(ctx context.Context, page any) error {
	switch p := page.(type) {
	case *spotifyapi.SimplePlaylistPage:
		prev := *p
		return c.policy.Do(ctx, "next page", func(ctx context.Context) error {
			*p = prev
			return asStop(c.api.NextPage(ctx, p))
		})
	case *spotifyapi.PlaylistItemPage:
		prev := *p
		return c.policy.Do(ctx, "next page", func(ctx context.Context) error {
			*p = prev
			return asStop(c.api.NextPage(ctx, p))
		})
	}
	return fmt.Errorf("unsupported page type %T", page)
}

// asStop keeps ErrNoMorePages from being retried.
func asStop(err error) error {
	if errors.Is(err, spotifyapi.ErrNoMorePages) {
		return retry.Stop(err)
	}
	return err
}

func fromSimplePlaylist(p spotifyapi.SimplePlaylist) music.RemotePlaylist {
	return music.RemotePlaylist{
		ID:         p.ID.String(),
		Name:       p.Name,
		OwnerID:    p.Owner.ID,
		SnapshotID: p.SnapshotID,
	}
}

func fromFullTrack(t *spotifyapi.FullTrack) music.RemoteTrack {
	track := music.RemoteTrack{
		ID:    t.ID.String(),
		Title: t.Name,
		Album: t.Album.Name,
		URL:   t.ExternalURLs["spotify"],
		URI:   string(t.URI),
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		track.ArtworkURL = t.Album.Images[0].URL
	}
	return track
}
