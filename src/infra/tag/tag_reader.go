package tag

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/contre95/plexify/src/music"
	"github.com/dhowden/tag"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedIdentity struct {
	modTime int64
	size    int64
	id      music.TrackIdentity
}

// TagReader reads the title and artist of audio files using the dhowden/tag library.
// Results are cached per path and invalidated when the file changes.
type TagReader struct {
	cache *lru.Cache[string, cachedIdentity]
}

// NewTagReader creates a new TagReader remembering up to size files.
func NewTagReader(size int) *TagReader {
	if size <= 0 {
		size = 1024
	}
	cache, _ := lru.New[string, cachedIdentity](size)
	return &TagReader{cache: cache}
}

// ReadIdentity returns the identity stored in the file's tags. The artist falls
// back to the album artist when the track artist is empty.
func (r *TagReader) ReadIdentity(ctx context.Context, filePath string) (music.TrackIdentity, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return music.TrackIdentity{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return music.TrackIdentity{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if c, ok := r.cache.Get(filePath); ok && c.modTime == info.ModTime().UnixNano() && c.size == info.Size() {
		return c.id, nil
	}

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return music.TrackIdentity{}, fmt.Errorf("failed to read tags: %w", err)
	}

	artist := strings.TrimSpace(tags.Artist())
	if artist == "" {
		artist = strings.TrimSpace(tags.AlbumArtist())
	}
	id := music.IdentityOf(strings.TrimSpace(tags.Title()), artist)
	r.cache.Add(filePath, cachedIdentity{modTime: info.ModTime().UnixNano(), size: info.Size(), id: id})
	return id, nil
}
