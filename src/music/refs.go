package music

import (
	"fmt"
	"net/url"
	"strings"
)

// CatalogRef points at playlists in the remote catalog. It is one of UserRef,
// PlaylistRef or SpecialRef.
type CatalogRef interface {
	fmt.Stringer
	catalogRef()
}

// UserRef selects every playlist owned by a user.
type UserRef struct{ ID string }

// PlaylistRef selects a single playlist.
type PlaylistRef struct{ ID string }

// SpecialRef selects a playlist by exact name among the current user's playlists
// (e.g. "Discover Weekly").
type SpecialRef struct{ Name string }

func (UserRef) catalogRef()     {}
func (PlaylistRef) catalogRef() {}
func (SpecialRef) catalogRef()  {}

func (r UserRef) String() string     { return "spotify:user:" + r.ID }
func (r PlaylistRef) String() string { return "spotify:playlist:" + r.ID }
func (r SpecialRef) String() string  { return "special:" + r.Name }

// ParseCatalogRef parses one configured reference. Accepted forms:
//
//	spotify:user:<id>
//	spotify:playlist:<id>
//	spotify:user:<id>:playlist:<id>
//	https://open.spotify.com/playlist/<id>
//	https://open.spotify.com/user/<id>
//	special:<playlist name>
func ParseCatalogRef(s string) (CatalogRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidRef)
	}
	if name, ok := strings.CutPrefix(s, "special:"); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: special reference without a name", ErrInvalidRef)
		}
		return SpecialRef{Name: name}, nil
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return parseCatalogURL(s)
	}

	parts := strings.Split(strings.TrimPrefix(s, "spotify:"), ":")
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of components in %q", ErrInvalidRef, s)
	}
	pairs := make(map[string]string, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		pairs[parts[i]] = parts[i+1]
	}
	if id := pairs["playlist"]; id != "" {
		return PlaylistRef{ID: id}, nil
	}
	if id := pairs["user"]; id != "" {
		return UserRef{ID: id}, nil
	}
	return nil, fmt.Errorf("%w: no user or playlist in %q", ErrInvalidRef, s)
}

func parseCatalogURL(s string) (CatalogRef, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[1] == "" {
		return nil, fmt.Errorf("%w: unsupported url %q", ErrInvalidRef, s)
	}
	switch segments[0] {
	case "playlist":
		return PlaylistRef{ID: segments[1]}, nil
	case "user":
		return UserRef{ID: segments[1]}, nil
	}
	return nil, fmt.Errorf("%w: unsupported url %q", ErrInvalidRef, s)
}

// ParseCatalogRefs parses every reference, failing on the first invalid one.
func ParseCatalogRefs(values []string) ([]CatalogRef, error) {
	refs := make([]CatalogRef, 0, len(values))
	for _, v := range values {
		ref, err := ParseCatalogRef(v)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
