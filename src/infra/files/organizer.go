package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/plexify/src/music"
)

// Ensure FileOrganizer implements music.FileRemover
var _ music.FileRemover = (*FileOrganizer)(nil)

// FileOrganizer owns the files under the library root. Every destructive
// operation is refused for paths that resolve outside that root.
type FileOrganizer struct {
	libraryPath string
	ascii       bool
}

// NewFileOrganizer creates a new file organizer rooted at libraryPath. With
// ascii set, generated file names are transliterated to ASCII.
func NewFileOrganizer(libraryPath string, ascii bool) *FileOrganizer {
	return &FileOrganizer{libraryPath: libraryPath, ascii: ascii}
}

// PlaylistDir returns (and creates) the folder that receives a playlist's downloads.
func (o *FileOrganizer) PlaylistDir(playlistName string) (string, error) {
	name := Sanitize(playlistName)
	if name == "" {
		name = "Unknown"
	}
	dir := filepath.Join(o.libraryPath, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create playlist folder %s: %w", dir, err)
	}
	return dir, nil
}

// Stem returns the canonical "{artist} - {title}" file name stem.
func (o *FileOrganizer) Stem(artist, title string) string {
	return CanonicalStem(artist, title, o.ascii)
}

// Within reports whether path resolves to a location under the library root.
func (o *FileOrganizer) Within(path string) bool {
	return Within(o.libraryPath, path)
}

// Within reports whether path resolves under root. An empty root contains nothing.
func Within(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Remove deletes a library file. Paths outside the root are refused with
// music.ErrOutsideLibrary and never touched. Missing files are not an error.
func (o *FileOrganizer) Remove(path string) error {
	if !o.Within(path) {
		slog.Warn("Refusing to delete file outside the library", "path", path, "library", o.libraryPath)
		return fmt.Errorf("%w: %s", music.ErrOutsideLibrary, path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete track file: %w", err)
	}
	slog.Info("Deleted local file", "path", path)

	if err := o.removeEmptyDirectories(filepath.Dir(path)); err != nil {
		slog.Warn("Failed to clean up empty directories", "path", path, "error", err)
	}
	return nil
}

// Move renames src to dst, copying when they live on different filesystems.
// An existing dst is never overwritten.
func (o *FileOrganizer) Move(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDeviceError(err) {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove original file after copy: %w", err)
	}
	return nil
}

// isCrossDeviceError checks if an error is due to cross-device link (moving across filesystems)
func isCrossDeviceError(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return strings.Contains(linkErr.Err.Error(), "cross-device link")
	}
	return false
}

// removeEmptyDirectories removes empty directories up the path, stopping at the library root.
func (o *FileOrganizer) removeEmptyDirectories(dir string) error {
	for o.Within(dir) {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read directory %s: %w", dir, err)
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("failed to remove empty directory %s: %w", dir, err)
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

func copyFile(src, dst string) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer destination.Close()
	_, err = io.Copy(destination, source)
	return err
}
