package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/queue"
	"github.com/prodicts/prodicts-backend/internal/repository"
)

// ErrUploadNotAllowed is returned when an episode is already queued
// or processing and cannot take a new original.
var ErrUploadNotAllowed = errors.New("episode is not accepting uploads in its current state")

// renditionBitrates are the encodes requested for every upload.
var renditionBitrates = []int{64, 128, 256}

// AudioStorage is the slice of media.Storage the upload flow needs.
type AudioStorage interface {
	SaveEpisodeAudio(seriesID, seasonID, episodeID, fileName string, size int64, r io.Reader) (string, error)
	SaveEpisodeThumbnail(seriesID, seasonID, episodeID, fileName string, size int64, r io.Reader) (string, error)
}

// EpisodeUploadStore is the slice of the episode repository the
// upload flow needs.
type EpisodeUploadStore interface {
	GetByID(ctx context.Context, id string) (*model.PodcastEpisode, error)
	SetQueued(ctx context.Context, id, audioURL, audioFileName string) error
	SetThumbnail(ctx context.Context, id, thumbnailURL string) error
}

// JobPublisher publishes transcoding jobs. *queue.Client satisfies
// it.
type JobPublisher interface {
	Publish(ctx context.Context, msg queue.AudioProcessingMessage) error
}

// UploadService validates episode uploads, stores them and queues
// transcoding work.
type UploadService struct {
	Episodes EpisodeUploadStore
	Storage  AudioStorage
	Jobs     JobPublisher
	now      func() time.Time
}

func NewUploadService(episodes EpisodeUploadStore, storage AudioStorage, jobs JobPublisher) *UploadService {
	return &UploadService{Episodes: episodes, Storage: storage, Jobs: jobs, now: time.Now}
}

// UploadAudio stores an original MP3 for the episode and publishes
// the transcoding job. Validation runs before any disk I/O; the
// status row moves to Queued before the publish so a consumer can
// never observe a job for an episode still marked Uploaded.
func (s *UploadService) UploadAudio(ctx context.Context, episodeID, fileName string, size int64, r io.Reader) (*model.PodcastEpisode, error) {
	ep, err := s.Episodes.GetByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if !ep.ProcessingStatus.CanAcceptUpload() {
		return nil, ErrUploadNotAllowed
	}

	rel, err := s.Storage.SaveEpisodeAudio(ep.SeriesID, ep.SeasonID, ep.ID, fileName, size, r)
	if err != nil {
		return nil, err
	}

	if err := s.Episodes.SetQueued(ctx, ep.ID, rel, fileName); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUploadNotAllowed
		}
		return nil, err
	}

	msg := queue.AudioProcessingMessage{
		EpisodeID:        ep.ID,
		OriginalFilePath: rel,
		OriginalFileName: fileName,
		QueuedAt:         s.now().UTC(),
		QualityLevels:    renditionRequests(rel),
	}
	if err := s.Jobs.Publish(ctx, msg); err != nil {
		return nil, fmt.Errorf("queue transcoding job: %w", err)
	}

	ep.AudioURL = &rel
	ep.AudioFileName = &fileName
	ep.ProcessingStatus = model.StatusQueued
	return ep, nil
}

// UploadThumbnail stores an episode image.
func (s *UploadService) UploadThumbnail(ctx context.Context, episodeID, fileName string, size int64, r io.Reader) (string, error) {
	ep, err := s.Episodes.GetByID(ctx, episodeID)
	if err != nil {
		return "", err
	}
	rel, err := s.Storage.SaveEpisodeThumbnail(ep.SeriesID, ep.SeasonID, ep.ID, fileName, size, r)
	if err != nil {
		return "", err
	}
	if err := s.Episodes.SetThumbnail(ctx, ep.ID, rel); err != nil {
		return "", err
	}
	return rel, nil
}

// renditionRequests derives the output paths for each bitrate from
// the original's directory.
func renditionRequests(originalRel string) []queue.AudioQualityRequest {
	dir := path.Dir(originalRel)
	out := make([]queue.AudioQualityRequest, 0, len(renditionBitrates))
	for _, kbps := range renditionBitrates {
		out = append(out, queue.AudioQualityRequest{
			Quality:    fmt.Sprintf("%dk", kbps),
			Bitrate:    kbps,
			OutputPath: path.Join(dir, fmt.Sprintf("audio_%dk.mp3", kbps)),
		})
	}
	return out
}
