package playlists

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/contre95/plexify/src/features/acquisition"
	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/infra/files"
	"github.com/contre95/plexify/src/music"
	"github.com/contre95/plexify/src/music/musictest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcquirer pretends to download tracks. Fetched tracks become searchable
// on the next library refresh.
type fakeAcquirer struct {
	lib     *musictest.Library
	fail    bool
	calls   []string
	pending []music.LocalTrack
}

func (f *fakeAcquirer) Acquire(_ context.Context, t music.RemoteTrack, dir string) acquisition.Outcome {
	f.calls = append(f.calls, t.Title)
	if f.fail {
		return acquisition.Outcome{Kind: acquisition.Failed, Reason: "no search results", Networked: true}
	}
	path := filepath.Join(dir, t.Artist+" - "+t.Title+".mp3")
	f.pending = append(f.pending, music.LocalTrack{Key: "new-" + t.ID, Title: t.Title, Artist: t.Artist, Files: []string{path}})
	return acquisition.Outcome{Kind: acquisition.Fetched, Path: path, Networked: true}
}

func (f *fakeAcquirer) refresh(string) {
	f.lib.Index(f.pending...)
	f.pending = nil
}

var (
	songA = music.RemoteTrack{ID: "a", Title: "Song A", Artist: "Artist X"}
	songB = music.RemoteTrack{ID: "b", Title: "Song B", Artist: "Artist Y"}
	songC = music.RemoteTrack{ID: "c", Title: "Song C", Artist: "Artist Z"}

	localA = music.LocalTrack{Key: "1", Title: "Song A", Artist: "Artist X"}
	localB = music.LocalTrack{Key: "2", Title: "Song B", Artist: "Artist Y"}
)

func newTestService(t *testing.T, lib *musictest.Library) (*Service, *fakeAcquirer, string) {
	root := t.TempDir()
	acq := &fakeAcquirer{lib: lib}
	lib.OnRefresh = acq.refresh
	svc := NewService(lib, acq, files.NewFileOrganizer(root, false), config.NewManager(config.Default()))
	return svc, acq, root
}

func TestReconcile_RoadTrip(t *testing.T) {
	lib := musictest.NewLibrary(localA)
	svc, acq, root := newTestService(t, lib)
	var stats music.CycleStats

	report, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "p", Name: "Road Trip", Tracks: []music.RemoteTrack{songA, songB}}, &stats)
	require.NoError(t, err)

	assert.Equal(t, []string{"Song B"}, acq.calls)
	assert.True(t, report.Created)
	assert.Equal(t, OneWay, report.Mode)
	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, []string{"1", "new-b"}, lib.Keys("Road Trip"))
	assert.Equal(t, 1, lib.Count("refresh:"+filepath.Join(root, "Road Trip")))
	assert.Equal(t, music.CycleStats{DownloadsAttempted: 1, DownloadsSucceeded: 1}, stats)
}

func TestReconcile_OneWayIsIdempotent(t *testing.T) {
	lib := musictest.NewLibrary(localA, localB)
	lib.Seed("Road Trip", "1")
	svc, acq, _ := newTestService(t, lib)
	pl := music.RemotePlaylist{ID: "p", Name: "Road Trip", Tracks: []music.RemoteTrack{songA, songB}}

	_, err := svc.Reconcile(context.Background(), pl, &music.CycleStats{})
	require.NoError(t, err)
	assert.Equal(t, []string{"add:Road Trip:1"}, lib.Mutations())

	lib.Calls = nil
	report, err := svc.Reconcile(context.Background(), pl, &music.CycleStats{})
	require.NoError(t, err)
	assert.Empty(t, lib.Mutations())
	assert.Zero(t, report.Added)
	assert.Empty(t, acq.calls)
}

func TestReconcile_OneWayKeepsLocalOnlyTracks(t *testing.T) {
	lib := musictest.NewLibrary(localA, localB)
	lib.Seed("Road Trip", "1", "2")
	svc, _, _ := newTestService(t, lib)

	_, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "p", Name: "Road Trip", Tracks: []music.RemoteTrack{songA}}, &music.CycleStats{})
	require.NoError(t, err)
	assert.Empty(t, lib.Mutations())
	assert.Equal(t, []string{"1", "2"}, lib.Keys("Road Trip"))
}

func TestReconcile_MirrorRemovesAndAdds(t *testing.T) {
	lib := musictest.NewLibrary()
	svc, _, root := newTestService(t, lib)
	staleFile := filepath.Join(root, "discover weekly", "Artist Z - Song C.mp3")
	require.NoError(t, os.MkdirAll(filepath.Dir(staleFile), 0o755))
	require.NoError(t, os.WriteFile(staleFile, []byte("audio"), 0o644))
	localC := music.LocalTrack{Key: "3", Title: "Song C", Artist: "Artist Z", Files: []string{staleFile}}
	lib.Index(localA, localB, localC)
	lib.Seed("discover weekly", "1", "3")
	var stats music.CycleStats

	report, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "dw", Name: "discover weekly", Tracks: []music.RemoteTrack{songA, songB}}, &stats)
	require.NoError(t, err)

	assert.Equal(t, Mirror, report.Mode)
	assert.Equal(t, []string{"remove:discover weekly:1", "add:discover weekly:1"}, lib.Mutations())
	assert.Equal(t, []string{"1", "2"}, lib.Keys("discover weekly"))
	assert.NoFileExists(t, staleFile)
	assert.True(t, lib.Has("3"), "library entry is left to the next scan")
	assert.Equal(t, 1, stats.DeletionsSucceeded)
	assert.Equal(t, 1, report.Removed)
}

func TestReconcile_MirrorKeepsTracksMatchedByOriginalArtist(t *testing.T) {
	compilation := music.LocalTrack{Key: "7", Title: "Song A", Artist: "Various Artists", Files: []string{"/music/va/Song A.mp3"}}
	lib := musictest.NewLibrary(compilation)
	lib.Alias("7", "Artist X")
	svc, acq, _ := newTestService(t, lib)
	pl := music.RemotePlaylist{ID: "dw", Name: "Discover Weekly", Tracks: []music.RemoteTrack{songA}}

	for cycle := 1; cycle <= 2; cycle++ {
		var stats music.CycleStats
		report, err := svc.Reconcile(context.Background(), pl, &stats)
		require.NoError(t, err)
		assert.Zero(t, report.Removed, "cycle %d", cycle)
		assert.Zero(t, stats.DeletionsSucceeded+stats.DeletionsFailed, "cycle %d", cycle)
	}

	assert.Equal(t, []string{"create:Discover Weekly:1"}, lib.Mutations())
	assert.Equal(t, []string{"7"}, lib.Keys("Discover Weekly"))
	assert.Empty(t, acq.calls)
}

func TestReconcile_MirrorNamesAreCaseInsensitive(t *testing.T) {
	lib := musictest.NewLibrary()
	svc, _, _ := newTestService(t, lib)
	assert.Equal(t, Mirror, svc.ModeOf("RELEASE RADAR"))
	assert.Equal(t, Mirror, svc.ModeOf("Discover Weekly"))
	assert.Equal(t, OneWay, svc.ModeOf("Discover Weekly 2"))
}

func TestReconcile_RefusesDeletingOutsideLibrary(t *testing.T) {
	stale := music.LocalTrack{Key: "9", Title: "Song C", Artist: "Artist Z", Files: []string{"/etc/passwd"}}
	lib := musictest.NewLibrary(localA, stale)
	lib.Seed("Release Radar", "1", "9")
	svc, _, _ := newTestService(t, lib)
	var stats music.CycleStats

	_, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "rr", Name: "Release Radar", Tracks: []music.RemoteTrack{songA}}, &stats)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DeletionsFailed)
	assert.Zero(t, stats.DeletionsSucceeded)
	assert.Equal(t, []string{"1"}, lib.Keys("Release Radar"))
	assert.FileExists(t, "/etc/passwd")
}

func TestReconcile_NothingResolvedCreatesNothing(t *testing.T) {
	lib := musictest.NewLibrary()
	svc, acq, _ := newTestService(t, lib)
	acq.fail = true
	var stats music.CycleStats

	report, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "p", Name: "Road Trip", Tracks: []music.RemoteTrack{songB, songC}}, &stats)
	require.NoError(t, err)

	assert.False(t, report.Created)
	assert.Len(t, report.Unresolved, 2)
	assert.Zero(t, lib.Count("create"))
	assert.Equal(t, music.CycleStats{DownloadsAttempted: 2, DownloadsFailed: 2}, stats)
}

func TestReconcile_DuplicateRemoteTracksResolveOnce(t *testing.T) {
	lib := musictest.NewLibrary(localA)
	svc, acq, _ := newTestService(t, lib)
	dup := songA
	dup.ID = "a2"
	dup.Title = "song a"

	report, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "p", Name: "Road Trip", Tracks: []music.RemoteTrack{songA, dup}}, &music.CycleStats{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)
	assert.Empty(t, acq.calls)
	assert.Equal(t, []string{"create:Road Trip:1"}, lib.Mutations())
}

func TestReconcile_SkippableLibraryErrorsAreLogged(t *testing.T) {
	lib := musictest.NewLibrary(localA, localB)
	lib.Seed("Road Trip", "1")
	lib.Errors["add"] = music.ErrBadRequest
	svc, _, _ := newTestService(t, lib)

	_, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "p", Name: "Road Trip", Tracks: []music.RemoteTrack{songA, songB}}, &music.CycleStats{})
	assert.NoError(t, err)
}

func TestReconcile_LibraryOutageFailsPlaylist(t *testing.T) {
	lib := musictest.NewLibrary(localA)
	lib.Errors["find"] = errors.New("connection refused")
	svc, acq, _ := newTestService(t, lib)

	_, err := svc.Reconcile(context.Background(), music.RemotePlaylist{ID: "p", Name: "Road Trip", Tracks: []music.RemoteTrack{songA}}, &music.CycleStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, acq.calls)
}
