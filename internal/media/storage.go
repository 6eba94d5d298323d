// Package media handles uploaded files on disk and the external
// audio encoder. Paths stored in the database and queue messages are
// always relative to the public directory so the serving host can
// move without rewriting rows.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Upload size caps, matching the mobile client's limits.
const (
	MaxAudioBytes = 500 << 20 // 500 MB MP3
	MaxImageBytes = 10 << 20  // 10 MB thumbnail
)

var (
	// ErrFileTooLarge is returned when an upload exceeds its cap.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = errors.New("file is empty")
	// ErrUnsupportedType is returned for any extension or content
	// type outside the allowed set for the upload kind.
	ErrUnsupportedType = errors.New("unsupported file type")
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var audioContentTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/mp3":  true,
}

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidAudioContentType reports whether a multipart Content-Type is
// an accepted MP3 type. Any parameters (charset etc.) are ignored.
func ValidAudioContentType(ct string) bool {
	return audioContentTypes[normalizeContentType(ct)]
}

// ValidImageContentType reports whether a multipart Content-Type is
// an accepted thumbnail image type.
func ValidImageContentType(ct string) bool {
	return imageContentTypes[normalizeContentType(ct)]
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Storage writes uploads under a public root directory. Audio lives
// under podcasts/{seriesId}/{seasonId}/{episodeId}/ and images under
// the matching thumbnails/ tree.
type Storage struct {
	Root string
	now  func() time.Time
}

func NewStorage(root string) *Storage {
	return &Storage{Root: root, now: time.Now}
}

// SaveEpisodeAudio validates and stores an original MP3 upload,
// returning its path relative to the public root. The stored name is
// timestamped so a re-upload never overwrites the file a worker may
// still be reading.
func (s *Storage) SaveEpisodeAudio(seriesID, seasonID, episodeID, fileName string, size int64, r io.Reader) (string, error) {
	if size <= 0 {
		return "", ErrEmptyFile
	}
	if size > MaxAudioBytes {
		return "", ErrFileTooLarge
	}
	if strings.ToLower(filepath.Ext(fileName)) != ".mp3" {
		return "", ErrUnsupportedType
	}
	rel := filepath.Join("podcasts", seriesID, seasonID, episodeID,
		fmt.Sprintf("original_%s.mp3", s.now().UTC().Format("20060102_150405")))
	if err := s.write(rel, r); err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// SaveEpisodeThumbnail validates and stores an episode image,
// returning its path relative to the public root.
func (s *Storage) SaveEpisodeThumbnail(seriesID, seasonID, episodeID, fileName string, size int64, r io.Reader) (string, error) {
	if size <= 0 {
		return "", ErrEmptyFile
	}
	if size > MaxImageBytes {
		return "", ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !imageExtensions[ext] {
		return "", ErrUnsupportedType
	}
	rel := filepath.Join("thumbnails", seriesID, seasonID, episodeID, "thumbnail"+ext)
	if err := s.write(rel, r); err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (s *Storage) write(rel string, r io.Reader) error {
	abs := filepath.Join(s.Root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(abs), err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("create %s: %w", abs, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(abs)
		return fmt.Errorf("write %s: %w", abs, err)
	}
	return nil
}

// Abs resolves a stored relative path against the public root.
func (s *Storage) Abs(rel string) string {
	return filepath.Join(s.Root, filepath.FromSlash(rel))
}

// FileSize returns the size of a stored file, or 0 when it cannot be
// stat'ed.
func (s *Storage) FileSize(rel string) int64 {
	info, err := os.Stat(s.Abs(rel))
	if err != nil {
		return 0
	}
	return info.Size()
}
