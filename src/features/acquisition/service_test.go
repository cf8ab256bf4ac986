package acquisition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/plexify/src/infra/files"
	"github.com/contre95/plexify/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	name    string
	locator string
	err     error
	calls   int
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.locator, f.err
}

// fakeFetcher creates a file for the formats listed in produce.
type fakeFetcher struct {
	produce map[string]bool
	silent  bool // exit 0 without creating anything
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, locator, dir, stem, format string) error {
	f.calls = append(f.calls, locator+"|"+format)
	if f.produce[format] {
		return os.WriteFile(filepath.Join(dir, stem+"."+format), []byte("audio"), 0644)
	}
	if f.silent {
		return nil
	}
	return errors.New("exit status 1")
}

type fakeDirect struct {
	name  string
	calls int
}

func (f *fakeDirect) Fetch(_ context.Context, _ string, dir string) error {
	f.calls++
	if f.name == "" {
		return errors.New("timed out")
	}
	return os.WriteFile(filepath.Join(dir, f.name), []byte("audio"), 0644)
}

type fakeTagWriter struct{ tagged []string }

func (f *fakeTagWriter) WriteFileTags(_ context.Context, path string, _ music.RemoteTrack, _ string) error {
	f.tagged = append(f.tagged, path)
	return errors.New("corrupt header")
}

type fakeTagReader map[string]music.TrackIdentity

func (f fakeTagReader) ReadIdentity(_ context.Context, path string) (music.TrackIdentity, error) {
	id, ok := f[filepath.Base(path)]
	if !ok {
		return music.TrackIdentity{}, errors.New("no tags")
	}
	return id, nil
}

var songA = music.RemoteTrack{ID: "a", Title: "Song A", Artist: "Artist X", URL: "https://open.spotify.com/track/a"}

type fixture struct {
	dir       string
	primary   *fakeSearcher
	secondary *fakeSearcher
	fetcher   *fakeFetcher
	direct    *fakeDirect
	tags      *fakeTagWriter
	reader    fakeTagReader
}

func (f *fixture) service() *Service {
	return NewService(nil, files.NewFileOrganizer(filepath.Dir(f.dir), false),
		[]Searcher{f.primary, f.secondary}, f.fetcher, f.direct, f.tags, f.reader, nil)
}

func newFixture(t *testing.T) *fixture {
	dir := filepath.Join(t.TempDir(), "Road Trip")
	require.NoError(t, os.MkdirAll(dir, 0755))
	return &fixture{
		dir:       dir,
		primary:   &fakeSearcher{name: "yt-dlp"},
		secondary: &fakeSearcher{name: "youtube-api"},
		fetcher:   &fakeFetcher{},
		direct:    &fakeDirect{},
		tags:      &fakeTagWriter{},
		reader:    fakeTagReader{},
	}
}

func TestAcquire_SkipsCanonicalFile(t *testing.T) {
	f := newFixture(t)
	existing := filepath.Join(f.dir, "Artist X - Song A.mp3")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	out := f.service().Acquire(context.Background(), songA, f.dir)
	assert.Equal(t, Skipped, out.Kind)
	assert.Equal(t, existing, out.Path)
	assert.False(t, out.Networked)
	assert.Zero(t, f.primary.calls)
}

func TestAcquire_RenamesLooseStemMatch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "artist x  -  SONG A.flac"), []byte("x"), 0644))

	out := f.service().Acquire(context.Background(), songA, f.dir)
	require.Equal(t, Skipped, out.Kind)
	assert.Equal(t, filepath.Join(f.dir, "Artist X - Song A.flac"), out.Path)
	_, err := os.Stat(out.Path)
	assert.NoError(t, err)
}

func TestAcquire_MatchesByTags(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "track01.mp3"), []byte("x"), 0644))
	f.reader["track01.mp3"] = music.IdentityOf("song a", "ARTIST X")

	out := f.service().Acquire(context.Background(), songA, f.dir)
	require.Equal(t, Skipped, out.Kind)
	assert.Equal(t, filepath.Join(f.dir, "Artist X - Song A.mp3"), out.Path)
}

func TestAcquire_FallsBackThroughTiersAndFormats(t *testing.T) {
	f := newFixture(t)
	f.secondary.locator = "https://www.youtube.com/watch?v=abc"
	f.primary.err = errors.New("yt-dlp not installed")
	f.fetcher.produce = map[string]bool{"mp3": true}

	out := f.service().Acquire(context.Background(), songA, f.dir)
	require.Equal(t, Fetched, out.Kind, out.Reason)
	assert.Equal(t, filepath.Join(f.dir, "Artist X - Song A.mp3"), out.Path)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=abc|flac", "https://www.youtube.com/watch?v=abc|mp3"}, f.fetcher.calls)
	assert.Equal(t, []string{out.Path}, f.tags.tagged, "tag failures are logged, not fatal")
	assert.Zero(t, f.direct.calls)
}

func TestAcquire_PrimaryFetchSkipsSecondarySearch(t *testing.T) {
	f := newFixture(t)
	f.primary.locator = "ytsearch1:Artist X - Song A"
	f.secondary.locator = "https://www.youtube.com/watch?v=abc"
	f.fetcher.produce = map[string]bool{"flac": true}

	out := f.service().Acquire(context.Background(), songA, f.dir)
	require.Equal(t, Fetched, out.Kind, out.Reason)
	assert.Equal(t, 1, f.primary.calls)
	assert.Zero(t, f.secondary.calls)
	assert.Equal(t, []string{"ytsearch1:Artist X - Song A|flac"}, f.fetcher.calls)
}

func TestAcquire_SecondaryTierRunsAfterPrimaryFormatsFail(t *testing.T) {
	f := newFixture(t)
	f.primary.locator = "loc"
	f.secondary.locator = "https://www.youtube.com/watch?v=abc"
	f.fetcher.produce = map[string]bool{}

	out := f.service().Acquire(context.Background(), songA, f.dir)
	assert.Equal(t, Failed, out.Kind)
	assert.Equal(t, []string{
		"loc|flac", "loc|mp3",
		"https://www.youtube.com/watch?v=abc|flac", "https://www.youtube.com/watch?v=abc|mp3",
	}, f.fetcher.calls)
	assert.Equal(t, 1, f.secondary.calls)
	assert.Equal(t, 1, f.direct.calls)
}

func TestAcquire_ZeroExitWithoutFileIsFailure(t *testing.T) {
	f := newFixture(t)
	f.primary.locator = "loc"
	f.fetcher.silent = true
	f.direct.name = "Artist X - Song A (Official).mp3"

	out := f.service().Acquire(context.Background(), songA, f.dir)
	require.Equal(t, Fetched, out.Kind)
	assert.Equal(t, 1, f.direct.calls)
	assert.Equal(t, filepath.Join(f.dir, "Artist X - Song A.mp3"), out.Path)
}

func TestAcquire_AllTiersFail(t *testing.T) {
	f := newFixture(t)
	f.primary.locator = "loc"
	f.secondary.locator = "loc" // same locator is tried once

	out := f.service().Acquire(context.Background(), songA, f.dir)
	assert.Equal(t, Failed, out.Kind)
	assert.True(t, out.Networked)
	assert.Len(t, f.fetcher.calls, 2)
	assert.Contains(t, out.Reason, "direct")

	var stats music.CycleStats
	out.Record(&stats)
	skipped("x", "present").Record(&stats)
	assert.Equal(t, music.CycleStats{DownloadsAttempted: 1, DownloadsFailed: 1, DownloadsSkipped: 1}, stats)
}

type scriptedAcquirer struct {
	present map[string]bool
	fetched []string
}

func (s *scriptedAcquirer) Existing(_ context.Context, t music.RemoteTrack, _ string) (Outcome, bool) {
	if s.present[t.ID] {
		return skipped("/music/"+t.ID, "present"), true
	}
	return Outcome{}, false
}

func (s *scriptedAcquirer) Fetch(_ context.Context, t music.RemoteTrack, _ string) Outcome {
	s.fetched = append(s.fetched, t.ID)
	return Outcome{Kind: Fetched, Networked: true}
}

func TestQueue_SleepsOnlyBetweenNetworkAttempts(t *testing.T) {
	acq := &scriptedAcquirer{present: map[string]bool{"b": true}}
	delay := 3 * time.Second
	q := NewQueue(acq, func() time.Duration { return delay })
	var sleeps []time.Duration
	q.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		q.Acquire(ctx, music.RemoteTrack{ID: id}, "/music")
	}
	assert.Equal(t, []string{"a", "c"}, acq.fetched)
	assert.Equal(t, []time.Duration{3 * time.Second}, sleeps)

	q.Reset()
	q.Acquire(ctx, music.RemoteTrack{ID: "d"}, "/music")
	assert.Len(t, sleeps, 1)

	delay = time.Second
	q.Acquire(ctx, music.RemoteTrack{ID: "e"}, "/music")
	assert.Equal(t, []time.Duration{3 * time.Second, time.Second}, sleeps, "a changed delay applies to the next wait")
}

func TestQueue_CancelledDuringDelay(t *testing.T) {
	acq := &scriptedAcquirer{}
	q := NewQueue(acq, func() time.Duration { return time.Hour })
	ctx, cancel := context.WithCancel(context.Background())

	q.Acquire(ctx, music.RemoteTrack{ID: "a"}, "/music")
	cancel()
	out := q.Acquire(ctx, music.RemoteTrack{ID: "b"}, "/music")
	assert.Equal(t, Failed, out.Kind)
	assert.Equal(t, []string{"a"}, acq.fetched)
}
