package youtube

import (
	"context"
	"fmt"
	"net/http"

	"github.com/contre95/plexify/src/infra/tools"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Searcher finds videos through the YouTube Data API.
type Searcher struct {
	service *yt.Service
}

// NewSearcher creates a Searcher authenticated with an API key. Extra options
// (endpoint, HTTP client) are appended, mostly for tests.
func NewSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Searcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	return &Searcher{service: service}, nil
}

// NewSearcherWithClient builds a Searcher on top of an already authorized client.
func NewSearcherWithClient(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Searcher, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	return &Searcher{service: service}, nil
}

// Name identifies the tier in logs.
func (s *Searcher) Name() string { return "youtube-api" }

// Search returns the watch URL of the first video matching query, or "" when
// nothing was found.
func (s *Searcher) Search(ctx context.Context, query string) (string, error) {
	resp, err := s.service.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube search %q: %w", query, err)
	}
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			return tools.WatchURL(item.Id.VideoId), nil
		}
	}
	return "", nil
}
