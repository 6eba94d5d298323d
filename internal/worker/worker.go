// Package worker consumes audio processing jobs and produces the
// bitrate renditions for an episode.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/queue"
)

// Encoder transcodes and probes audio files. *media.FFmpeg satisfies
// it; tests substitute a fake.
type Encoder interface {
	Convert(ctx context.Context, inputPath, outputPath string, bitrateKbps int) error
	Probe(ctx context.Context, inputPath string) (int, error)
}

// EpisodeStore is the slice of the episode repository the worker
// drives through the pipeline states.
type EpisodeStore interface {
	SetProcessing(ctx context.Context, id string) error
	SetCompleted(ctx context.Context, id string, durationSeconds int, qualities []model.AudioQuality) error
	SetFailed(ctx context.Context, id, message string) error
}

// FileStore resolves stored relative paths and reports file sizes.
// *media.Storage satisfies it.
type FileStore interface {
	Abs(rel string) string
	FileSize(rel string) int64
}

// Worker processes one transcoding job at a time from the audio
// processing queue.
type Worker struct {
	Encoder  Encoder
	Episodes EpisodeStore
	Files    FileStore
	now      func() time.Time
}

func New(enc Encoder, episodes EpisodeStore, files FileStore) *Worker {
	return &Worker{Encoder: enc, Episodes: episodes, Files: files, now: time.Now}
}

// Run consumes deliveries until the channel closes or the context is
// cancelled. Jobs that cannot be decoded are rejected without requeue
// so a poison message never loops; jobs that fail processing are
// requeued for another attempt after the failure is recorded.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg queue.AudioProcessingMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Printf("worker: dropping undecodable job: %v", err)
		_ = d.Nack(false, false)
		return
	}
	if err := w.process(ctx, msg); err != nil {
		log.Printf("worker: episode %s failed: %v", msg.EpisodeID, err)
		if dbErr := w.Episodes.SetFailed(ctx, msg.EpisodeID, err.Error()); dbErr != nil {
			log.Printf("worker: episode %s: record failure: %v", msg.EpisodeID, dbErr)
		}
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// process transcodes one job. Rendition failures are recorded per
// quality with IsProcessed=false and never fail the episode; even
// with every rendition failing the "original" entry remains playable
// and the episode completes. Only a job that cannot run at all
// (unreadable original, store errors) errors out.
func (w *Worker) process(ctx context.Context, msg queue.AudioProcessingMessage) error {
	if err := w.Episodes.SetProcessing(ctx, msg.EpisodeID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	originalAbs := w.Files.Abs(msg.OriginalFilePath)
	duration, err := w.Encoder.Probe(ctx, originalAbs)
	if err != nil {
		return fmt.Errorf("probe original: %w", err)
	}

	qualities := []model.AudioQuality{{
		Quality:     "original",
		URL:         msg.OriginalFilePath,
		FileSize:    w.Files.FileSize(msg.OriginalFilePath),
		Bitrate:     0,
		IsProcessed: true,
		ProcessedAt: timePtr(w.now().UTC()),
	}}

	for _, req := range msg.QualityLevels {
		q := model.AudioQuality{
			Quality: req.Quality,
			URL:     req.OutputPath,
			Bitrate: req.Bitrate,
		}
		if err := w.Encoder.Convert(ctx, originalAbs, w.Files.Abs(req.OutputPath), req.Bitrate); err != nil {
			log.Printf("worker: episode %s: rendition %s failed: %v", msg.EpisodeID, req.Quality, err)
			qualities = append(qualities, q)
			continue
		}
		q.FileSize = w.Files.FileSize(req.OutputPath)
		q.IsProcessed = true
		q.ProcessedAt = timePtr(w.now().UTC())
		qualities = append(qualities, q)
	}

	if err := w.Episodes.SetCompleted(ctx, msg.EpisodeID, duration, qualities); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }
