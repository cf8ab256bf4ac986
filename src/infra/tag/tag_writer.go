package tag

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/music"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// TagWriter overwrites the canonical tags of MP3 and FLAC files.
type TagWriter struct {
	config *config.Manager
}

// NewTagWriter creates a new TagWriter. cfg may be nil, which disables artwork.
func NewTagWriter(cfg *config.Manager) *TagWriter {
	return &TagWriter{config: cfg}
}

func (t *TagWriter) artwork() config.Artwork {
	if t.config == nil {
		return config.Artwork{}
	}
	return t.config.Get().Acquisition.Artwork
}

// resizeImage resizes image data to fit within maxSize pixels, maintaining aspect ratio.
func (t *TagWriter) resizeImage(imgData []byte, maxSize, quality int) ([]byte, error) {
	if maxSize <= 0 {
		return imgData, nil
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return imgData, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxSize && height <= maxSize {
		return imgData, nil
	}

	if width > height {
		height = (height * maxSize) / width
		width = maxSize
	} else {
		width = (width * maxSize) / height
		height = maxSize
	}

	resizedImg := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	if quality <= 0 {
		quality = 85
	}
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		err = png.Encode(&buf, resizedImg)
	default:
		err = jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return imgData, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// loadArtwork reads and resizes the cover at artworkPath. Failures only disable the cover.
func (t *TagWriter) loadArtwork(filePath, artworkPath string) []byte {
	cfg := t.artwork()
	if !cfg.Enabled || artworkPath == "" {
		return nil
	}
	imgData, err := os.ReadFile(artworkPath)
	if err != nil {
		slog.Warn("Failed to read artwork file", "filePath", filePath, "artworkPath", artworkPath, "error", err)
		return nil
	}
	resized, err := t.resizeImage(imgData, cfg.Size, cfg.Quality)
	if err != nil {
		slog.Warn("Failed to resize artwork", "filePath", filePath, "error", err)
		return imgData
	}
	return resized
}

// WriteFileTags sets title, artist and album artist (plus album and cover when
// available) on the file, replacing previous values.
func (t *TagWriter) WriteFileTags(ctx context.Context, filePath string, track music.RemoteTrack, artworkPath string) error {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".mp3":
		return t.tagMP3(filePath, track, artworkPath)
	case ".flac":
		return t.tagFLAC(filePath, track, artworkPath)
	default:
		return fmt.Errorf("unsupported format: %s", ext)
	}
}

// tagMP3 handles MP3 tagging using id3v2. Existing frames are parsed so only
// the canonical ones are replaced.
func (t *TagWriter) tagMP3(filePath string, track music.RemoteTrack, artworkPath string) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file for tagging: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)
	tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, track.Artist)
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}

	if imgData := t.loadArtwork(filePath, artworkPath); len(imgData) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mimeTypeOf(imgData),
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     imgData,
		})
		slog.Debug("Embedded artwork in MP3", "filePath", filePath, "size", len(imgData))
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}

	slog.Info("Tagged MP3 file", "filePath", filePath, "title", track.Title, "artist", track.Artist)
	return nil
}

// tagFLAC handles FLAC tagging using Vorbis comments.
func (t *TagWriter) tagFLAC(filePath string, track music.RemoteTrack, artworkPath string) error {
	f, err := goflac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var vorbisComment *flacvorbis.MetaDataBlockVorbisComment
	commentIndex := -1
	hasPicture := false
	for idx, meta := range f.Meta {
		switch meta.Type {
		case goflac.VorbisComment:
			if commentIndex >= 0 {
				continue
			}
			vorbisComment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			commentIndex = idx
		case goflac.Picture:
			hasPicture = true
		}
	}
	if vorbisComment == nil {
		vorbisComment = flacvorbis.New()
	}

	replaced := map[string]string{
		flacvorbis.FIELD_TITLE:  track.Title,
		flacvorbis.FIELD_ARTIST: track.Artist,
		"ALBUMARTIST":           track.Artist,
	}
	if track.Album != "" {
		replaced[flacvorbis.FIELD_ALBUM] = track.Album
	}
	vorbisComment.Comments = withoutFields(vorbisComment.Comments, replaced)
	for _, field := range []string{flacvorbis.FIELD_TITLE, flacvorbis.FIELD_ARTIST, "ALBUMARTIST", flacvorbis.FIELD_ALBUM} {
		if value, ok := replaced[field]; ok {
			if err := vorbisComment.Add(field, value); err != nil {
				return fmt.Errorf("failed to add %s comment: %w", field, err)
			}
		}
	}

	commentMeta := vorbisComment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &commentMeta
	} else {
		f.Meta = append(f.Meta, &commentMeta)
	}

	if !hasPicture {
		if imgData := t.loadArtwork(filePath, artworkPath); len(imgData) > 0 {
			pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Cover", imgData, mimeTypeOf(imgData))
			if err != nil {
				slog.Warn("Failed to build FLAC picture block", "filePath", filePath, "error", err)
			} else {
				pictureBlock := pic.Marshal()
				f.Meta = append(f.Meta, &pictureBlock)
				slog.Debug("Embedded artwork in FLAC", "filePath", filePath, "size", len(imgData))
			}
		}
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}

	slog.Info("Tagged FLAC file", "filePath", filePath, "title", track.Title, "artist", track.Artist)
	return nil
}

// withoutFields drops the "KEY=value" comments whose key is in fields.
func withoutFields(comments []string, fields map[string]string) []string {
	out := comments[:0]
	for _, c := range comments {
		key, _, _ := strings.Cut(c, "=")
		if _, drop := fields[strings.ToUpper(key)]; drop {
			continue
		}
		out = append(out, c)
	}
	return out
}

func mimeTypeOf(imgData []byte) string {
	if len(imgData) >= 4 && string(imgData[:4]) == "\x89PNG" {
		return "image/png"
	}
	return "image/jpeg"
}
