package music

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// identityNoise holds the separator and punctuation characters dropped by Normalize.
const identityNoise = `/\-_.,:;()[]'"`

// TrackIdentity is the normalized (title, artist) pair used as the equality key
// for every matching decision between the catalog, the library and the disk.
type TrackIdentity struct {
	Title  string
	Artist string
}

// IdentityOf builds the aggressive identity of a track.
func IdentityOf(title, artist string) TrackIdentity {
	return TrackIdentity{Title: Normalize(title), Artist: Normalize(artist)}
}

// Equal reports whether both identities name the same track.
func (i TrackIdentity) Equal(other TrackIdentity) bool {
	return i.Title == other.Title && i.Artist == other.Artist
}

// IsZero reports whether the identity carries no information at all.
func (i TrackIdentity) IsZero() bool {
	return i.Title == "" && i.Artist == ""
}

func (i TrackIdentity) String() string {
	return i.Artist + " - " + i.Title
}

// Strict lower-cases s and collapses whitespace. Used for file name matching.
func Strict(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}

// Normalize is Strict plus removal of separators and punctuation, so "AC/DC"
// and "Ac-Dc" normalize to the same value.
func Normalize(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(identityNoise, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// StrictEqual compares two strings with the strict tier only.
func StrictEqual(a, b string) bool {
	return Strict(a) == Strict(b)
}
