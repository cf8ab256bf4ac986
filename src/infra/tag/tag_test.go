package tag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/contre95/plexify/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadMP3Identity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Artist X - Song A.mp3")
	require.NoError(t, os.WriteFile(path, make([]byte, 256), 0644))

	w := NewTagWriter(nil)
	track := music.RemoteTrack{ID: "a", Title: "Song A", Artist: "Artist X", Album: "Album"}
	require.NoError(t, w.WriteFileTags(context.Background(), path, track, ""))

	r := NewTagReader(4)
	id, err := r.ReadIdentity(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, id.Equal(track.Identity()))

	// Retagging replaces the frames instead of stacking them.
	track.Title = "Song A (Remastered)"
	require.NoError(t, w.WriteFileTags(context.Background(), path, track, ""))
	id, err = r.ReadIdentity(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, id.Equal(track.Identity()))
}

func TestWriteFileTags_UnsupportedFormat(t *testing.T) {
	w := NewTagWriter(nil)
	err := w.WriteFileTags(context.Background(), "song.ogg", music.RemoteTrack{Title: "t", Artist: "a"}, "")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestReadIdentity_MissingFile(t *testing.T) {
	_, err := NewTagReader(0).ReadIdentity(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"))
	assert.Error(t, err)
}

func TestWithoutFields(t *testing.T) {
	got := withoutFields([]string{"TITLE=old", "artist=old", "GENRE=rock"}, map[string]string{"TITLE": "", "ARTIST": ""})
	assert.Equal(t, []string{"GENRE=rock"}, got)
}

func TestMimeTypeOf(t *testing.T) {
	assert.Equal(t, "image/png", mimeTypeOf([]byte("\x89PNG\r\n")))
	assert.Equal(t, "image/jpeg", mimeTypeOf([]byte{0xff, 0xd8}))
}
