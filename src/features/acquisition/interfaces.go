package acquisition

import (
	"context"

	"github.com/contre95/plexify/src/music"
)

// Searcher turns a "{artist} - {title}" query into a downloadable locator.
// An empty locator with a nil error means nothing was found.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

// Fetcher downloads the audio behind a locator into dir/stem.<format>.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dir, stem, format string) error
}

// DirectFetcher downloads a catalog track straight from its web URL.
type DirectFetcher interface {
	Fetch(ctx context.Context, trackURL, dir string) error
}

// TagWriter defines the interface for writing metadata tags to music files.
type TagWriter interface {
	WriteFileTags(ctx context.Context, filePath string, track music.RemoteTrack, artworkPath string) error
}

// TagReader reads the identity stored in a file's tags.
type TagReader interface {
	ReadIdentity(ctx context.Context, filePath string) (music.TrackIdentity, error)
}

// ArtworkService defines the interface for fetching cover images.
type ArtworkService interface {
	DownloadArtwork(ctx context.Context, url string) (string, error)
}
