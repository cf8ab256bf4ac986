package plex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/contre95/plexify/src/infra/files"
	"github.com/contre95/plexify/src/music"
	lru "github.com/hashicorp/golang-lru/v2"
	jsoniter "github.com/json-iterator/go"
)

// Ensure Client implements music.Library
var _ music.Library = (*Client)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	trackType          = "10"
	defaultHTTPTimeout = 30 * time.Second
	sectionCacheTTL    = 10 * time.Minute
)

// Client talks to a Plex Media Server and owns the files it indexes.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	files      music.FileRemover

	machineMu sync.Mutex
	machineID string

	sections *lru.Cache[string, cachedSections]
}

type cachedSections struct {
	at       time.Time
	sections []section
}

// NewClient creates a Plex client. File deletions go through remover, which
// refuses paths outside the library root.
func NewClient(baseURL, token string, remover music.FileRemover, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	cache, _ := lru.New[string, cachedSections](4)
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		files:      remover,
		sections:   cache,
	}
}

// FindMatching searches tracks by title and keeps the first one whose
// identity equals (title, artist).
func (c *Client) FindMatching(ctx context.Context, title, artist string) (*music.LocalTrack, error) {
	var resp container
	err := c.do(ctx, http.MethodGet, "/search", url.Values{"query": {title}, "type": {trackType}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", title, err)
	}
	want := music.IdentityOf(title, artist)
	for _, m := range resp.MediaContainer.Metadata {
		if m.Type != "" && m.Type != "track" {
			continue
		}
		if m.identity().Equal(want) || (m.OriginalTitle != "" && music.IdentityOf(m.Title, m.OriginalTitle).Equal(want)) {
			t := m.toTrack()
			return &t, nil
		}
	}
	return nil, nil
}

// Playlists lists the audio playlists, without their items.
func (c *Client) Playlists(ctx context.Context) ([]music.LocalPlaylist, error) {
	var resp container
	if err := c.do(ctx, http.MethodGet, "/playlists", url.Values{"playlistType": {"audio"}}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	out := make([]music.LocalPlaylist, 0, len(resp.MediaContainer.Metadata))
	for _, m := range resp.MediaContainer.Metadata {
		if m.Smart {
			continue
		}
		out = append(out, music.LocalPlaylist{Key: m.RatingKey, Name: m.Title})
	}
	return out, nil
}

// GetPlaylist returns the playlist titled name with its items, or nil when absent.
func (c *Client) GetPlaylist(ctx context.Context, name string) (*music.LocalPlaylist, error) {
	pls, err := c.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	for _, pl := range pls {
		if pl.Name != name {
			continue
		}
		var resp container
		if err := c.do(ctx, http.MethodGet, "/playlists/"+pl.Key+"/items", nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list items of %q: %w", name, err)
		}
		for _, m := range resp.MediaContainer.Metadata {
			pl.Tracks = append(pl.Tracks, m.toTrack())
		}
		return &pl, nil
	}
	return nil, nil
}

// CreatePlaylist creates a static audio playlist holding items.
func (c *Client) CreatePlaylist(ctx context.Context, name string, items []music.LocalTrack) error {
	if len(items) == 0 {
		return fmt.Errorf("playlist %q: %w: no items", name, music.ErrBadRequest)
	}
	uri, err := c.itemsURI(ctx, items)
	if err != nil {
		return err
	}
	q := url.Values{"type": {"audio"}, "title": {name}, "smart": {"0"}, "uri": {uri}}
	if err := c.do(ctx, http.MethodPost, "/playlists", q, nil); err != nil {
		return fmt.Errorf("failed to create playlist %q: %w", name, err)
	}
	slog.Info("Created library playlist", "playlist", name, "tracks", len(items))
	return nil
}

// AddItems appends items to the playlist.
func (c *Client) AddItems(ctx context.Context, pl *music.LocalPlaylist, items []music.LocalTrack) error {
	if len(items) == 0 {
		return nil
	}
	uri, err := c.itemsURI(ctx, items)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPut, "/playlists/"+pl.Key+"/items", url.Values{"uri": {uri}}, nil); err != nil {
		return fmt.Errorf("failed to add %d items to %q: %w", len(items), pl.Name, err)
	}
	return nil
}

// RemoveItems removes items from the playlist. Items must come from the
// playlist listing so their playlist item id is known.
func (c *Client) RemoveItems(ctx context.Context, pl *music.LocalPlaylist, items []music.LocalTrack) error {
	var errs []error
	for _, it := range items {
		if it.PlaylistItemID == "" {
			errs = append(errs, fmt.Errorf("track %s: %w: missing playlist item id", it.Key, music.ErrBadRequest))
			continue
		}
		if err := c.do(ctx, http.MethodDelete, "/playlists/"+pl.Key+"/items/"+it.PlaylistItemID, nil, nil); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %q from %q: %w", it.Title, pl.Name, err))
		}
	}
	return errors.Join(errs...)
}

// DeleteTrack deletes the library entry and every media file of the track.
// Each step runs even when another fails.
func (c *Client) DeleteTrack(ctx context.Context, track music.LocalTrack) error {
	var errs []error
	if err := c.do(ctx, http.MethodDelete, "/library/metadata/"+track.Key, nil, nil); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete library entry %s: %w", track.Key, err))
	}
	if c.files != nil {
		for _, f := range track.Files {
			if err := c.files.Remove(f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RatedTracks lists the tracks of the music section named section whose user rating satisfies keep.
func (c *Client) RatedTracks(ctx context.Context, sectionName string, keep func(float64) bool) ([]music.LocalTrack, error) {
	sections, err := c.listSections(ctx)
	if err != nil {
		return nil, err
	}
	var sec *section
	for i := range sections {
		if sections[i].Title == sectionName {
			sec = &sections[i]
			break
		}
	}
	if sec == nil {
		return nil, fmt.Errorf("section %q: %w", sectionName, music.ErrNotFound)
	}

	var resp container
	if err := c.do(ctx, http.MethodGet, "/library/sections/"+sec.Key+"/all", url.Values{"type": {trackType}}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list tracks of section %q: %w", sectionName, err)
	}
	var out []music.LocalTrack
	for _, m := range resp.MediaContainer.Metadata {
		if keep == nil || keep(m.UserRating) {
			out = append(out, m.toTrack())
		}
	}
	return out, nil
}

// Refresh asks every music section containing path to rescan it.
func (c *Client) Refresh(ctx context.Context, path string) error {
	sections, err := c.listSections(ctx)
	if err != nil {
		return err
	}
	refreshed := 0
	var errs []error
	for _, s := range sections {
		if s.Type != "artist" || !s.contains(path) {
			continue
		}
		if err := c.do(ctx, http.MethodGet, "/library/sections/"+s.Key+"/refresh", url.Values{"path": {path}}, nil); err != nil {
			errs = append(errs, fmt.Errorf("failed to refresh section %q: %w", s.Title, err))
			continue
		}
		refreshed++
		slog.Debug("Requested library rescan", "section", s.Title, "path", path)
	}
	if refreshed == 0 && len(errs) == 0 {
		slog.Warn("No music section contains path, nothing refreshed", "path", path)
	}
	return errors.Join(errs...)
}

func (c *Client) listSections(ctx context.Context) ([]section, error) {
	if cached, ok := c.sections.Get("sections"); ok && time.Since(cached.at) < sectionCacheTTL {
		return cached.sections, nil
	}
	var resp container
	if err := c.do(ctx, http.MethodGet, "/library/sections", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	c.sections.Add("sections", cachedSections{at: time.Now(), sections: resp.MediaContainer.Directory})
	return resp.MediaContainer.Directory, nil
}

func (c *Client) machineIdentifier(ctx context.Context) (string, error) {
	c.machineMu.Lock()
	defer c.machineMu.Unlock()
	if c.machineID != "" {
		return c.machineID, nil
	}
	var resp container
	if err := c.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get server info: %w", err)
	}
	if resp.MediaContainer.MachineIdentifier == "" {
		return "", fmt.Errorf("server info response does not contain machine identifier")
	}
	c.machineID = resp.MediaContainer.MachineIdentifier
	return c.machineID, nil
}

func (c *Client) itemsURI(ctx context.Context, items []music.LocalTrack) (string, error) {
	machine, err := c.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s", machine, strings.Join(keys, ",")), nil
}

// do sends a request and decodes the JSON body into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Product", "plexify")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, music.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%s %s: %w", method, path, music.ErrBadRequest)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: plex returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

type container struct {
	MediaContainer struct {
		MachineIdentifier string     `json:"machineIdentifier"`
		Metadata          []metadata `json:"Metadata"`
		Directory         []section  `json:"Directory"`
	} `json:"MediaContainer"`
}

type metadata struct {
	RatingKey        string     `json:"ratingKey"`
	Type             string     `json:"type"`
	Title            string     `json:"title"`
	GrandparentTitle string     `json:"grandparentTitle"`
	OriginalTitle    string     `json:"originalTitle"`
	UserRating       float64    `json:"userRating"`
	Smart            bool       `json:"smart"`
	PlaylistItemID   flexString `json:"playlistItemID"`
	Media            []struct {
		Part []struct {
			File string `json:"file"`
		} `json:"Part"`
	} `json:"Media"`
}

func (m metadata) identity() music.TrackIdentity {
	return music.IdentityOf(m.Title, m.GrandparentTitle)
}

func (m metadata) toTrack() music.LocalTrack {
	t := music.LocalTrack{
		Key:            m.RatingKey,
		Title:          m.Title,
		Artist:         m.GrandparentTitle,
		Rating:         m.UserRating,
		PlaylistItemID: string(m.PlaylistItemID),
	}
	for _, media := range m.Media {
		for _, part := range media.Part {
			if part.File != "" {
				t.Files = append(t.Files, part.File)
			}
		}
	}
	return t
}

type section struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Location []struct {
		Path string `json:"path"`
	} `json:"Location"`
}

func (s section) contains(path string) bool {
	for _, l := range s.Location {
		if l.Path == path || files.Within(l.Path, path) {
			return true
		}
	}
	return false
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil && s != "" && b[0] != '"' {
		return fmt.Errorf("invalid id %s", b)
	}
	*f = flexString(s)
	return nil
}
