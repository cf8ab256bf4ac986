package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/music"
	"github.com/contre95/plexify/src/music/musictest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	removed []string
	err     error
}

func (f *fakeRemote) RemoveTrack(_ context.Context, playlistID, trackID string) error {
	f.removed = append(f.removed, playlistID+"/"+trackID)
	return f.err
}

var roadTrip = music.RemotePlaylist{ID: "p1", Name: "Road Trip", Tracks: []music.RemoteTrack{
	{ID: "a", Title: "Song A", Artist: "Artist X"},
	{ID: "b", Title: "Song B", Artist: "Artist Y"},
}}

func newTestService(enabled bool, lib *musictest.Library, remote *fakeRemote) *Service {
	cfg := config.Default()
	cfg.Feedback.Enabled = enabled
	return NewService(lib, remote, config.NewManager(cfg))
}

func newRoadTripLibrary() *musictest.Library {
	lib := musictest.NewLibrary(
		music.LocalTrack{Key: "1", Title: "Song A", Artist: "Artist X", Rating: 2},
		music.LocalTrack{Key: "2", Title: "Song B", Artist: "Artist Y", Rating: 8},
		music.LocalTrack{Key: "3", Title: "Song C", Artist: "Artist Z"},
	)
	lib.AddToSection("Road Trip", "1", "2", "3")
	return lib
}

func TestProcess_RemovesRejectedTrackOnBothSides(t *testing.T) {
	lib := newRoadTripLibrary()
	remote := &fakeRemote{}
	var stats music.CycleStats

	report := newTestService(true, lib, remote).Process(context.Background(), []music.RemotePlaylist{roadTrip}, &stats)

	assert.Equal(t, []string{"p1/a"}, remote.removed)
	assert.Equal(t, []string{"delete:1"}, lib.Mutations())
	assert.Equal(t, 1, stats.DeletionsSucceeded)
	assert.Equal(t, Report{Rejected: 1, RemoteRemoved: 1, Deleted: 1}, report)
	assert.True(t, lib.Has("3"), "unrated tracks are kept")
}

func TestProcess_DeletesLocallyWhenRemoteRemovalFails(t *testing.T) {
	lib := newRoadTripLibrary()
	remote := &fakeRemote{err: errors.New("forbidden")}
	var stats music.CycleStats

	report := newTestService(true, lib, remote).Process(context.Background(), []music.RemotePlaylist{roadTrip}, &stats)

	assert.Equal(t, 1, report.RemoteFailed)
	assert.False(t, lib.Has("1"))
	assert.Equal(t, 1, stats.DeletionsSucceeded)
}

func TestProcess_TrackMissingRemotelyIsStillDeleted(t *testing.T) {
	lib := newRoadTripLibrary()
	lib.SetRating("3", 1)
	remote := &fakeRemote{}
	pl := roadTrip
	pl.Tracks = pl.Tracks[1:]
	var stats music.CycleStats

	report := newTestService(true, lib, remote).Process(context.Background(), []music.RemotePlaylist{pl}, &stats)

	assert.Empty(t, remote.removed)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 2, stats.DeletionsSucceeded)
}

func TestProcess_CountsFailedDeletions(t *testing.T) {
	lib := newRoadTripLibrary()
	lib.Errors["delete"] = music.ErrNotFound
	var stats music.CycleStats

	newTestService(true, lib, &fakeRemote{}).Process(context.Background(), []music.RemotePlaylist{roadTrip}, &stats)
	assert.Equal(t, 1, stats.DeletionsFailed)
	assert.Zero(t, stats.DeletionsSucceeded)
}

func TestProcess_SkipsMissingSectionsAndAnonymousPlaylists(t *testing.T) {
	lib := newRoadTripLibrary()
	remote := &fakeRemote{}
	pls := []music.RemotePlaylist{
		{ID: "p2", Name: "Gym"},
		{Name: "Road Trip"},
	}

	report := newTestService(true, lib, remote).Process(context.Background(), pls, &music.CycleStats{})
	require.Zero(t, report.Rejected)
	assert.Equal(t, 1, lib.Count("rated"))
}

func TestProcess_Disabled(t *testing.T) {
	lib := newRoadTripLibrary()
	report := newTestService(false, lib, &fakeRemote{}).Process(context.Background(), []music.RemotePlaylist{roadTrip}, &music.CycleStats{})
	assert.Zero(t, report.Rejected)
	assert.Empty(t, lib.Calls)
}
