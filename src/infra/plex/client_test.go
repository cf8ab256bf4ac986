package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/contre95/plexify/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]string // "METHOD path" -> JSON body
	status   map[string]int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	f.requests = append(f.requests, recorded{r.Method, r.URL.Path, q})
	f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if r.Header.Get("X-Plex-Token") != "tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if code, ok := f.status[key]; ok {
		w.WriteHeader(code)
		return
	}
	body, ok := f.routes[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (f *fakeServer) find(method, path string) *recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.requests {
		if f.requests[i].method == method && f.requests[i].path == path {
			return &f.requests[i]
		}
	}
	return nil
}

type fakeRemover struct{ removed []string }

func (f *fakeRemover) Remove(path string) error {
	if path == "/etc/passwd" {
		return music.ErrOutsideLibrary
	}
	f.removed = append(f.removed, path)
	return nil
}

func newTestClient(t *testing.T, fs *fakeServer) (*Client, *fakeRemover) {
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	rm := &fakeRemover{}
	return NewClient(srv.URL+"/", "tok", rm, srv.Client()), rm
}

func TestFindMatching_FiltersByIdentity(t *testing.T) {
	fs := &fakeServer{routes: map[string]string{
		"GET /search": `{"MediaContainer":{"Metadata":[
			{"ratingKey":"1","type":"track","title":"Song A","grandparentTitle":"Someone Else"},
			{"ratingKey":"2","type":"track","title":"Song A","grandparentTitle":"Artist-X","Media":[{"Part":[{"file":"/music/a.mp3"}]}]}
		]}}`,
	}}
	c, _ := newTestClient(t, fs)

	got, err := c.FindMatching(context.Background(), "Song A", "Artist X")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2", got.Key)
	assert.Equal(t, []string{"/music/a.mp3"}, got.Files)

	req := fs.find("GET", "/search")
	assert.Equal(t, "Song A", req.query["query"])
	assert.Equal(t, "10", req.query["type"])

	none, err := c.FindMatching(context.Background(), "Song A", "Nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGetPlaylist_LoadsItems(t *testing.T) {
	fs := &fakeServer{routes: map[string]string{
		"GET /playlists": `{"MediaContainer":{"Metadata":[{"ratingKey":"10","title":"Road Trip"},{"ratingKey":"11","title":"Smart","smart":true}]}}`,
		"GET /playlists/10/items": `{"MediaContainer":{"Metadata":[
			{"ratingKey":"2","title":"Song A","grandparentTitle":"Artist X","playlistItemID":77}
		]}}`,
	}}
	c, _ := newTestClient(t, fs)

	pl, err := c.GetPlaylist(context.Background(), "Road Trip")
	require.NoError(t, err)
	require.NotNil(t, pl)
	assert.Equal(t, "10", pl.Key)
	require.Len(t, pl.Tracks, 1)
	assert.Equal(t, "77", pl.Tracks[0].PlaylistItemID)

	missing, err := c.GetPlaylist(context.Background(), "Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreatePlaylist_BuildsServerURI(t *testing.T) {
	fs := &fakeServer{routes: map[string]string{
		"GET /":           `{"MediaContainer":{"machineIdentifier":"abc"}}`,
		"POST /playlists": `{}`,
	}}
	c, _ := newTestClient(t, fs)

	err := c.CreatePlaylist(context.Background(), "Road Trip", []music.LocalTrack{{Key: "1"}, {Key: "2"}})
	require.NoError(t, err)

	req := fs.find("POST", "/playlists")
	require.NotNil(t, req)
	assert.Equal(t, "Road Trip", req.query["title"])
	assert.Equal(t, "audio", req.query["type"])
	assert.Equal(t, "server://abc/com.plexapp.plugins.library/library/metadata/1,2", req.query["uri"])

	assert.ErrorIs(t, c.CreatePlaylist(context.Background(), "Empty", nil), music.ErrBadRequest)
}

func TestRemoveItems_UsesPlaylistItemID(t *testing.T) {
	fs := &fakeServer{routes: map[string]string{
		"DELETE /playlists/10/items/77": `{}`,
	}}
	c, _ := newTestClient(t, fs)
	pl := &music.LocalPlaylist{Key: "10", Name: "Road Trip"}

	err := c.RemoveItems(context.Background(), pl, []music.LocalTrack{{Key: "2", PlaylistItemID: "77"}, {Key: "3"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, music.ErrBadRequest)
	assert.NotNil(t, fs.find("DELETE", "/playlists/10/items/77"))
}

func TestDeleteTrack_AttemptsBothSides(t *testing.T) {
	fs := &fakeServer{routes: map[string]string{}, status: map[string]int{"DELETE /library/metadata/5": http.StatusNotFound}}
	c, rm := newTestClient(t, fs)

	err := c.DeleteTrack(context.Background(), music.LocalTrack{Key: "5", Files: []string{"/music/x.mp3", "/etc/passwd"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, music.ErrNotFound))
	assert.True(t, errors.Is(err, music.ErrOutsideLibrary))
	assert.Equal(t, []string{"/music/x.mp3"}, rm.removed)
}

func TestRatedTracks_FiltersSectionByRating(t *testing.T) {
	fs := &fakeServer{routes: map[string]string{
		"GET /library/sections": `{"MediaContainer":{"Directory":[{"key":"3","title":"Road Trip","type":"artist","Location":[{"path":"/music/Road Trip"}]}]}}`,
		"GET /library/sections/3/all": `{"MediaContainer":{"Metadata":[
			{"ratingKey":"1","title":"Song A","grandparentTitle":"Artist X","userRating":2},
			{"ratingKey":"2","title":"Song B","grandparentTitle":"Artist Y","userRating":8},
			{"ratingKey":"3","title":"Song C","grandparentTitle":"Artist Z"}
		]}}`,
	}}
	c, _ := newTestClient(t, fs)

	got, err := c.RatedTracks(context.Background(), "Road Trip", func(r float64) bool { return r > 0 && r <= 2 })
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Key)

	_, err = c.RatedTracks(context.Background(), "Unknown", nil)
	assert.ErrorIs(t, err, music.ErrNotFound)
}

func TestRefresh_TargetsContainingSection(t *testing.T) {
	fs := &fakeServer{routes: map[string]string{
		"GET /library/sections":           `{"MediaContainer":{"Directory":[{"key":"3","title":"Music","type":"artist","Location":[{"path":"/music"}]},{"key":"4","title":"Movies","type":"movie","Location":[{"path":"/music"}]}]}}`,
		"GET /library/sections/3/refresh": `{}`,
	}}
	c, _ := newTestClient(t, fs)

	require.NoError(t, c.Refresh(context.Background(), "/music/Road Trip"))
	req := fs.find("GET", "/library/sections/3/refresh")
	require.NotNil(t, req)
	assert.Equal(t, "/music/Road Trip", req.query["path"])
	assert.Nil(t, fs.find("GET", "/library/sections/4/refresh"))
}

func TestBadRequestMapsToSentinel(t *testing.T) {
	fs := &fakeServer{status: map[string]int{"PUT /playlists/10/items": http.StatusBadRequest}, routes: map[string]string{
		"GET /": `{"MediaContainer":{"machineIdentifier":"abc"}}`,
	}}
	c, _ := newTestClient(t, fs)

	err := c.AddItems(context.Background(), &music.LocalPlaylist{Key: "10"}, []music.LocalTrack{{Key: "1"}})
	assert.ErrorIs(t, err, music.ErrBadRequest)
	assert.True(t, music.IsSkippable(err))
}
