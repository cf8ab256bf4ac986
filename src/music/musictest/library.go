// Package musictest provides an in-memory music.Library for tests.
package musictest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/contre95/plexify/src/music"
)

var _ music.Library = (*Library)(nil)

// Library is an in-memory library index. Every call is recorded in Calls as
// "op" or "op:arg".
type Library struct {
	mu        sync.Mutex
	tracks    []music.LocalTrack
	playlists []*music.LocalPlaylist
	sections  map[string][]string // section name -> track keys
	aliases   map[string][]string // track key -> other artists it matches
	nextItem  int

	// Remover receives the files of deleted tracks when set.
	Remover music.FileRemover
	// OnRefresh runs on every Refresh call, outside the lock.
	OnRefresh func(path string)
	// Errors forces an operation ("find", "create", "add", ...) to fail.
	Errors map[string]error

	Calls []string
}

// NewLibrary creates a library indexing tracks.
func NewLibrary(tracks ...music.LocalTrack) *Library {
	l := &Library{
		sections: make(map[string][]string),
		aliases:  make(map[string][]string),
		Errors:   make(map[string]error),
	}
	l.Index(tracks...)
	return l
}

// Index adds tracks to the library.
func (l *Library) Index(tracks ...music.LocalTrack) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracks = append(l.tracks, tracks...)
}

// AddToSection files the tracks with the given keys under a section.
func (l *Library) AddToSection(section string, keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sections[section] = append(l.sections[section], keys...)
}

// Alias makes the track with key also match searches for artist, the way a
// compilation filed under "Various Artists" matches its original artist.
func (l *Library) Alias(key, artist string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.aliases[key] = append(l.aliases[key], artist)
}

// SetRating changes the user rating of a track.
func (l *Library) SetRating(key string, rating float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tracks {
		if l.tracks[i].Key == key {
			l.tracks[i].Rating = rating
		}
	}
}

// Seed creates a playlist holding the tracks with the given keys.
func (l *Library) Seed(name string, keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl := &music.LocalPlaylist{Key: "pl-" + strconv.Itoa(len(l.playlists)+1), Name: name}
	for _, k := range keys {
		if t, ok := l.byKey(k); ok {
			pl.Tracks = append(pl.Tracks, l.item(t))
		}
	}
	l.playlists = append(l.playlists, pl)
}

// Has reports whether a track with key is still indexed.
func (l *Library) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.byKey(key)
	return ok
}

// Keys returns the track keys of the named playlist, nil when it does not exist.
func (l *Library) Keys(name string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl := l.find(name)
	if pl == nil {
		return nil
	}
	keys := make([]string, 0, len(pl.Tracks))
	for _, t := range pl.Tracks {
		keys = append(keys, t.Key)
	}
	return keys
}

// Mutations returns the recorded calls that changed playlists or tracks.
func (l *Library) Mutations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.Calls {
		op, _, _ := strings.Cut(c, ":")
		switch op {
		case "create", "add", "remove", "delete":
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many recorded calls start with op.
func (l *Library) Count(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.Calls {
		if c == op || strings.HasPrefix(c, op+":") {
			n++
		}
	}
	return n
}

func (l *Library) FindMatching(_ context.Context, title, artist string) (*music.LocalTrack, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "find:"+title)
	if err := l.Errors["find"]; err != nil {
		return nil, err
	}
	want := music.IdentityOf(title, artist)
	for _, t := range l.tracks {
		if t.Identity().Equal(want) {
			return &t, nil
		}
		for _, a := range l.aliases[t.Key] {
			if music.IdentityOf(t.Title, a).Equal(want) {
				return &t, nil
			}
		}
	}
	return nil, nil
}

func (l *Library) Playlists(_ context.Context) ([]music.LocalPlaylist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "playlists")
	out := make([]music.LocalPlaylist, 0, len(l.playlists))
	for _, pl := range l.playlists {
		out = append(out, music.LocalPlaylist{Key: pl.Key, Name: pl.Name})
	}
	return out, nil
}

func (l *Library) GetPlaylist(_ context.Context, name string) (*music.LocalPlaylist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "get:"+name)
	if err := l.Errors["get"]; err != nil {
		return nil, err
	}
	pl := l.find(name)
	if pl == nil {
		return nil, nil
	}
	cp := *pl
	cp.Tracks = append([]music.LocalTrack(nil), pl.Tracks...)
	return &cp, nil
}

func (l *Library) CreatePlaylist(_ context.Context, name string, items []music.LocalTrack) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, fmt.Sprintf("create:%s:%d", name, len(items)))
	if err := l.Errors["create"]; err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: empty playlist", music.ErrBadRequest)
	}
	pl := &music.LocalPlaylist{Key: "pl-" + strconv.Itoa(len(l.playlists)+1), Name: name}
	for _, t := range items {
		pl.Tracks = append(pl.Tracks, l.item(t))
	}
	l.playlists = append(l.playlists, pl)
	return nil
}

func (l *Library) AddItems(_ context.Context, playlist *music.LocalPlaylist, items []music.LocalTrack) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, fmt.Sprintf("add:%s:%d", playlist.Name, len(items)))
	if err := l.Errors["add"]; err != nil {
		return err
	}
	pl := l.find(playlist.Name)
	if pl == nil {
		return fmt.Errorf("%w: playlist %s", music.ErrNotFound, playlist.Name)
	}
	for _, t := range items {
		pl.Tracks = append(pl.Tracks, l.item(t))
	}
	return nil
}

func (l *Library) RemoveItems(_ context.Context, playlist *music.LocalPlaylist, items []music.LocalTrack) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, fmt.Sprintf("remove:%s:%d", playlist.Name, len(items)))
	if err := l.Errors["remove"]; err != nil {
		return err
	}
	pl := l.find(playlist.Name)
	if pl == nil {
		return fmt.Errorf("%w: playlist %s", music.ErrNotFound, playlist.Name)
	}
	drop := make(map[string]bool, len(items))
	for _, t := range items {
		drop[t.PlaylistItemID] = true
	}
	kept := pl.Tracks[:0]
	for _, t := range pl.Tracks {
		if !drop[t.PlaylistItemID] {
			kept = append(kept, t)
		}
	}
	pl.Tracks = kept
	return nil
}

func (l *Library) DeleteTrack(_ context.Context, track music.LocalTrack) error {
	l.mu.Lock()
	l.Calls = append(l.Calls, "delete:"+track.Key)
	var errs []error
	if err := l.Errors["delete"]; err != nil {
		errs = append(errs, err)
	} else if _, ok := l.byKey(track.Key); !ok {
		errs = append(errs, fmt.Errorf("%w: track %s", music.ErrNotFound, track.Key))
	} else {
		l.unindex(track.Key)
	}
	remover := l.Remover
	l.mu.Unlock()

	if remover != nil {
		for _, f := range track.Files {
			if err := remover.Remove(f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (l *Library) RatedTracks(_ context.Context, section string, keep func(rating float64) bool) ([]music.LocalTrack, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "rated:"+section)
	keys, ok := l.sections[section]
	if !ok {
		return nil, fmt.Errorf("%w: section %s", music.ErrNotFound, section)
	}
	var out []music.LocalTrack
	for _, k := range keys {
		t, ok := l.byKey(k)
		if ok && (keep == nil || keep(t.Rating)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (l *Library) Refresh(_ context.Context, path string) error {
	l.mu.Lock()
	l.Calls = append(l.Calls, "refresh:"+path)
	fn := l.OnRefresh
	l.mu.Unlock()
	if fn != nil {
		fn(path)
	}
	return nil
}

func (l *Library) find(name string) *music.LocalPlaylist {
	for _, pl := range l.playlists {
		if pl.Name == name {
			return pl
		}
	}
	return nil
}

func (l *Library) byKey(key string) (music.LocalTrack, bool) {
	for _, t := range l.tracks {
		if t.Key == key {
			return t, true
		}
	}
	return music.LocalTrack{}, false
}

func (l *Library) item(t music.LocalTrack) music.LocalTrack {
	l.nextItem++
	t.PlaylistItemID = strconv.Itoa(l.nextItem)
	return t
}

func (l *Library) unindex(key string) {
	kept := l.tracks[:0]
	for _, t := range l.tracks {
		if t.Key != key {
			kept = append(kept, t)
		}
	}
	l.tracks = kept
	for _, pl := range l.playlists {
		items := pl.Tracks[:0]
		for _, t := range pl.Tracks {
			if t.Key != key {
				items = append(items, t)
			}
		}
		pl.Tracks = items
	}
	for name, keys := range l.sections {
		ks := keys[:0]
		for _, k := range keys {
			if k != key {
				ks = append(ks, k)
			}
		}
		l.sections[name] = ks
	}
}
