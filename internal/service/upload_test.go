package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodicts/prodicts-backend/internal/media"
	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/queue"
	"github.com/prodicts/prodicts-backend/internal/repository"
)

type fakeEpisodeStore struct {
	episodes   map[string]*model.PodcastEpisode
	thumbnails map[string]string
}

func newFakeEpisodeStore(eps ...*model.PodcastEpisode) *fakeEpisodeStore {
	f := &fakeEpisodeStore{episodes: map[string]*model.PodcastEpisode{}, thumbnails: map[string]string{}}
	for _, ep := range eps {
		f.episodes[ep.ID] = ep
	}
	return f
}

func (f *fakeEpisodeStore) GetByID(ctx context.Context, id string) (*model.PodcastEpisode, error) {
	if ep, ok := f.episodes[id]; ok {
		cp := *ep
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeEpisodeStore) SetQueued(ctx context.Context, id, audioURL, audioFileName string) error {
	ep, ok := f.episodes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !ep.ProcessingStatus.CanAcceptUpload() {
		return repository.ErrConflict
	}
	ep.AudioURL = &audioURL
	ep.AudioFileName = &audioFileName
	ep.ProcessingStatus = model.StatusQueued
	return nil
}

func (f *fakeEpisodeStore) SetThumbnail(ctx context.Context, id, thumbnailURL string) error {
	f.thumbnails[id] = thumbnailURL
	return nil
}

type fakeStorage struct {
	saved []string
}

func (f *fakeStorage) SaveEpisodeAudio(seriesID, seasonID, episodeID, fileName string, size int64, r io.Reader) (string, error) {
	if size <= 0 {
		return "", media.ErrEmptyFile
	}
	if size > media.MaxAudioBytes {
		return "", media.ErrFileTooLarge
	}
	if !strings.HasSuffix(strings.ToLower(fileName), ".mp3") {
		return "", media.ErrUnsupportedType
	}
	rel := "podcasts/" + seriesID + "/" + seasonID + "/" + episodeID + "/original_20260101_000000.mp3"
	f.saved = append(f.saved, rel)
	return rel, nil
}

func (f *fakeStorage) SaveEpisodeThumbnail(seriesID, seasonID, episodeID, fileName string, size int64, r io.Reader) (string, error) {
	rel := "thumbnails/" + seriesID + "/" + seasonID + "/" + episodeID + "/thumbnail.png"
	f.saved = append(f.saved, rel)
	return rel, nil
}

type fakePublisher struct {
	published []queue.AudioProcessingMessage
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, msg queue.AudioProcessingMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func freshEpisode() *model.PodcastEpisode {
	return &model.PodcastEpisode{
		ID:       "ep-1",
		SeriesID: "sr-1",
		SeasonID: "sn-1",
	}
}

func TestUploadAudioQueuesJob(t *testing.T) {
	store := newFakeEpisodeStore(freshEpisode())
	pub := &fakePublisher{}
	svc := NewUploadService(store, &fakeStorage{}, pub)

	ep, err := svc.UploadAudio(context.Background(), "ep-1", "lesson.mp3", 1024, strings.NewReader("mp3data"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, ep.ProcessingStatus)

	require.Len(t, pub.published, 1)
	msg := pub.published[0]
	assert.Equal(t, "ep-1", msg.EpisodeID)
	assert.Equal(t, "lesson.mp3", msg.OriginalFileName)
	assert.Contains(t, msg.OriginalFilePath, "podcasts/sr-1/sn-1/ep-1/")

	require.Len(t, msg.QualityLevels, 3)
	assert.Equal(t, 64, msg.QualityLevels[0].Bitrate)
	assert.Equal(t, 128, msg.QualityLevels[1].Bitrate)
	assert.Equal(t, 256, msg.QualityLevels[2].Bitrate)
	assert.Equal(t, "podcasts/sr-1/sn-1/ep-1/audio_64k.mp3", msg.QualityLevels[0].OutputPath)

	// The row moved to Queued before the publish.
	stored, err := store.GetByID(context.Background(), "ep-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, stored.ProcessingStatus)
}

func TestUploadAudioRejectsBusyEpisode(t *testing.T) {
	ep := freshEpisode()
	ep.ProcessingStatus = model.StatusProcessing
	pub := &fakePublisher{}
	svc := NewUploadService(newFakeEpisodeStore(ep), &fakeStorage{}, pub)

	_, err := svc.UploadAudio(context.Background(), "ep-1", "lesson.mp3", 1024, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUploadNotAllowed)
	assert.Empty(t, pub.published)
}

func TestUploadAudioAllowsRetryAfterFailure(t *testing.T) {
	ep := freshEpisode()
	ep.ProcessingStatus = model.StatusFailed
	pub := &fakePublisher{}
	svc := NewUploadService(newFakeEpisodeStore(ep), &fakeStorage{}, pub)

	out, err := svc.UploadAudio(context.Background(), "ep-1", "lesson.mp3", 1024, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, out.ProcessingStatus)
	assert.Len(t, pub.published, 1)
}

func TestUploadAudioRejectsWrongType(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewUploadService(newFakeEpisodeStore(freshEpisode()), storage, &fakePublisher{})

	_, err := svc.UploadAudio(context.Background(), "ep-1", "lesson.wav", 1024, strings.NewReader("x"))
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
}

func TestUploadAudioRejectsEmptyFile(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewUploadService(newFakeEpisodeStore(freshEpisode()), &fakeStorage{}, pub)

	_, err := svc.UploadAudio(context.Background(), "ep-1", "lesson.mp3", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, media.ErrEmptyFile)
	assert.Empty(t, pub.published)
}

func TestUploadAudioPublishFailureSurfaces(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewUploadService(newFakeEpisodeStore(freshEpisode()), &fakeStorage{}, pub)

	_, err := svc.UploadAudio(context.Background(), "ep-1", "lesson.mp3", 1024, strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue transcoding job")
}

func TestUploadThumbnail(t *testing.T) {
	store := newFakeEpisodeStore(freshEpisode())
	svc := NewUploadService(store, &fakeStorage{}, &fakePublisher{})

	rel, err := svc.UploadThumbnail(context.Background(), "ep-1", "cover.png", 2048, strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "thumbnails/sr-1/sn-1/ep-1/thumbnail.png", rel)
	assert.Equal(t, rel, store.thumbnails["ep-1"])
}
