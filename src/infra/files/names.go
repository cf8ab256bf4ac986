package files

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/gosimple/unidecode"
)

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// AudioExtensions lists the handled formats, lossless first.
var AudioExtensions = []string{".flac", ".mp3"}

// Sanitize creates a filesystem-safe filename
func Sanitize(filename string) string {
	sanitized := unsafeChars.ReplaceAllString(filename, " ")
	sanitized = strings.Trim(sanitized, " .")
	sanitized = spaces.ReplaceAllString(sanitized, " ")
	return sanitized
}

// CanonicalStem renders "{artist} - {title}" as a safe file name stem.
func CanonicalStem(artist, title string, ascii bool) string {
	stem := strings.TrimSpace(artist) + " - " + strings.TrimSpace(title)
	if ascii {
		stem = unidecode.Unidecode(stem)
	}
	return Sanitize(stem)
}

// IsAudio reports whether the file has one of the handled extensions.
func IsAudio(path string) bool {
	return slices.Contains(AudioExtensions, strings.ToLower(filepath.Ext(path)))
}

// Listing maps file names in a directory to their modification time in UnixNano.
type Listing map[string]int64

// List records the audio files directly inside dir. A missing dir is an empty listing.
func List(dir string) (Listing, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Listing{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(Listing, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsAudio(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[e.Name()] = info.ModTime().UnixNano()
	}
	return out, nil
}

// Created returns the audio files of after that are new or modified compared
// to before, as full paths under dir, sorted.
func Created(dir string, before, after Listing) []string {
	var out []string
	for name, mod := range after {
		if prev, ok := before[name]; ok && prev == mod {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	slices.Sort(out)
	return out
}

// ByExtension returns the paths with the given extension, in order.
func ByExtension(paths []string, ext string) []string {
	var out []string
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ext) {
			out = append(out, p)
		}
	}
	return out
}
