package tools

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	timeout time.Duration
	name    string
	args    []string
}

type fakeRunner struct {
	calls []call
	out   string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{timeout, name, args})
	return []byte(f.out), f.err
}

func TestYtDlpSearch(t *testing.T) {
	r := &fakeRunner{out: "dQw4w9WgXcQ\n"}
	y := NewYtDlp("", time.Minute, r)

	loc, err := y.Search(context.Background(), "Artist X - Song A")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", loc)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "yt-dlp", r.calls[0].name)
	assert.Equal(t, time.Minute, r.calls[0].timeout)
	assert.Contains(t, r.calls[0].args, "ytsearch1:Artist X - Song A")
	assert.Contains(t, r.calls[0].args, "--skip-download")
}

func TestYtDlpSearch_NoResult(t *testing.T) {
	y := NewYtDlp("", time.Minute, &fakeRunner{out: "\n"})
	loc, err := y.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, loc)
}

func TestYtDlpFetch_Arguments(t *testing.T) {
	r := &fakeRunner{}
	y := NewYtDlp("/usr/bin/yt-dlp", 5*time.Minute, r)

	require.NoError(t, y.Fetch(context.Background(), "https://www.youtube.com/watch?v=x", "/music/Road Trip", "Artist X - Song A", "flac"))
	args := r.calls[0].args
	assert.Equal(t, "/usr/bin/yt-dlp", r.calls[0].name)
	assert.Contains(t, args, "/music/Road Trip/Artist X - Song A.%(ext)s")
	assert.Contains(t, args, "flac")
	assert.Contains(t, args, "--no-overwrites")
	assert.Equal(t, "https://www.youtube.com/watch?v=x", args[len(args)-1])
}

func TestSpotDLFetch_WrapsError(t *testing.T) {
	r := &fakeRunner{err: ErrTimeout}
	s := NewSpotDL("", 120*time.Second, r)

	err := s.Fetch(context.Background(), "https://open.spotify.com/track/a", "/music/Road Trip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 120*time.Second, r.calls[0].timeout)
	assert.Equal(t, "https://open.spotify.com/track/a", r.calls[0].args[len(r.calls[0].args)-1])
}

func TestExecRunner_Timeout(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), 50*time.Millisecond, "sleep", "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecRunner_TimeoutKillsChildren(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	start := time.Now()
	_, err := ExecRunner{}.Run(context.Background(), 300*time.Millisecond, "sh", "-c", "sleep 5; true")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, 2*time.Second, "a grandchild holding the pipes must not outlive the timeout")
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", WatchURL("abc"))
	assert.Equal(t, "https://youtu.be/abc", WatchURL("https://youtu.be/abc"))
}
