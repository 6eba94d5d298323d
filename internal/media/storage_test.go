package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage(t.TempDir())
	s.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	}
	return s
}

func TestSaveEpisodeAudioWritesTimestampedOriginal(t *testing.T) {
	s := newTestStorage(t)

	rel, err := s.SaveEpisodeAudio("ser1", "sea1", "ep1", "lesson.mp3", 1024, strings.NewReader("mp3 bytes"))
	require.NoError(t, err)
	assert.Equal(t, "podcasts/ser1/sea1/ep1/original_20250601_123045.mp3", rel)

	data, err := os.ReadFile(s.Abs(rel))
	require.NoError(t, err)
	assert.Equal(t, "mp3 bytes", string(data))
	assert.Equal(t, int64(9), s.FileSize(rel))
}

func TestSaveEpisodeAudioRejectsWrongTypeAndSize(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.SaveEpisodeAudio("ser1", "sea1", "ep1", "lesson.wav", 1024, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.SaveEpisodeAudio("ser1", "sea1", "ep1", "lesson.mp3", MaxAudioBytes+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSaveRejectsEmptyFiles(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.SaveEpisodeAudio("ser1", "sea1", "ep1", "lesson.mp3", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = s.SaveEpisodeThumbnail("ser1", "sea1", "ep1", "cover.png", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestContentTypeValidation(t *testing.T) {
	assert.True(t, ValidAudioContentType("audio/mpeg"))
	assert.True(t, ValidAudioContentType("audio/mp3"))
	assert.True(t, ValidAudioContentType("Audio/MPEG; charset=binary"))
	assert.False(t, ValidAudioContentType("application/octet-stream"))
	assert.False(t, ValidAudioContentType("audio/wav"))
	assert.False(t, ValidAudioContentType(""))

	assert.True(t, ValidImageContentType("image/jpeg"))
	assert.True(t, ValidImageContentType("image/png"))
	assert.True(t, ValidImageContentType("image/webp"))
	assert.False(t, ValidImageContentType("image/gif"))
	assert.False(t, ValidImageContentType(""))
}

func TestSaveEpisodeThumbnailKeepsExtension(t *testing.T) {
	s := newTestStorage(t)

	rel, err := s.SaveEpisodeThumbnail("ser1", "sea1", "ep1", "Cover.JPG", 512, strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "thumbnails/ser1/sea1/ep1/thumbnail.jpg", rel)

	_, err = s.SaveEpisodeThumbnail("ser1", "sea1", "ep1", "cover.gif", 512, strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFileSizeUnknownPathIsZero(t *testing.T) {
	s := newTestStorage(t)
	assert.Zero(t, s.FileSize(filepath.Join("podcasts", "missing.mp3")))
}
