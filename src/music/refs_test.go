package music

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalogRef(t *testing.T) {
	cases := []struct {
		in   string
		want CatalogRef
	}{
		{"spotify:user:alice", UserRef{ID: "alice"}},
		{"spotify:playlist:37i9dQZF1DX", PlaylistRef{ID: "37i9dQZF1DX"}},
		{"spotify:user:alice:playlist:abc", PlaylistRef{ID: "abc"}},
		{"user:bob", UserRef{ID: "bob"}},
		{"special:Discover Weekly", SpecialRef{Name: "Discover Weekly"}},
		{"https://open.spotify.com/playlist/abc123?si=xyz", PlaylistRef{ID: "abc123"}},
		{"https://open.spotify.com/user/carol", UserRef{ID: "carol"}},
	}
	for _, tc := range cases {
		got, err := ParseCatalogRef(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseCatalogRef_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"spotify:user",
		"spotify:user:alice:playlist",
		"spotify:album:xyz",
		"special:  ",
		"https://open.spotify.com/track/abc",
	} {
		_, err := ParseCatalogRef(in)
		assert.True(t, errors.Is(err, ErrInvalidRef), "expected ErrInvalidRef for %q, got %v", in, err)
	}
}

func TestParseCatalogRefs_StopsOnFirstError(t *testing.T) {
	_, err := ParseCatalogRefs([]string{"spotify:user:alice", "spotify:bad"})
	require.ErrorIs(t, err, ErrInvalidRef)

	refs, err := ParseCatalogRefs([]string{"spotify:user:alice", "special:Release Radar"})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, "special:Release Radar", refs[1].String())
}
