package worker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/queue"
)

type fakeEncoder struct {
	duration int
	probeErr error
	failOn   map[int]error // bitrate -> error
	converts []int
}

func (f *fakeEncoder) Probe(ctx context.Context, in string) (int, error) {
	return f.duration, f.probeErr
}

func (f *fakeEncoder) Convert(ctx context.Context, in, out string, bitrate int) error {
	f.converts = append(f.converts, bitrate)
	return f.failOn[bitrate]
}

type fakeEpisodes struct {
	processing []string
	completed  map[string][]model.AudioQuality
	durations  map[string]int
	failed     map[string]string
}

func newFakeEpisodes() *fakeEpisodes {
	return &fakeEpisodes{
		completed: map[string][]model.AudioQuality{},
		durations: map[string]int{},
		failed:    map[string]string{},
	}
}

func (f *fakeEpisodes) SetProcessing(ctx context.Context, id string) error {
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeEpisodes) SetCompleted(ctx context.Context, id string, duration int, qualities []model.AudioQuality) error {
	f.durations[id] = duration
	f.completed[id] = qualities
	return nil
}

func (f *fakeEpisodes) SetFailed(ctx context.Context, id, message string) error {
	f.failed[id] = message
	return nil
}

type fakeFiles struct{ sizes map[string]int64 }

func (f *fakeFiles) Abs(rel string) string { return filepath.Join("/public", rel) }
func (f *fakeFiles) FileSize(rel string) int64 { return f.sizes[rel] }

type fakeAcker struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error { a.acked = true; return nil }
func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}
func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func testJob() queue.AudioProcessingMessage {
	return queue.AudioProcessingMessage{
		EpisodeID:        "ep-1",
		OriginalFilePath: "podcasts/sr/sn/ep-1/original_20260101_000000.mp3",
		OriginalFileName: "lesson.mp3",
		QueuedAt:         time.Now().UTC(),
		QualityLevels: []queue.AudioQualityRequest{
			{Quality: "64k", Bitrate: 64, OutputPath: "podcasts/sr/sn/ep-1/audio_64k.mp3"},
			{Quality: "128k", Bitrate: 128, OutputPath: "podcasts/sr/sn/ep-1/audio_128k.mp3"},
			{Quality: "256k", Bitrate: 256, OutputPath: "podcasts/sr/sn/ep-1/audio_256k.mp3"},
		},
	}
}

func TestProcessAllRenditions(t *testing.T) {
	enc := &fakeEncoder{duration: 1234}
	eps := newFakeEpisodes()
	files := &fakeFiles{sizes: map[string]int64{
		"podcasts/sr/sn/ep-1/original_20260101_000000.mp3": 9000,
		"podcasts/sr/sn/ep-1/audio_64k.mp3":                1000,
		"podcasts/sr/sn/ep-1/audio_128k.mp3":               2000,
		"podcasts/sr/sn/ep-1/audio_256k.mp3":               4000,
	}}
	w := New(enc, eps, files)

	require.NoError(t, w.process(context.Background(), testJob()))

	assert.Equal(t, []string{"ep-1"}, eps.processing)
	assert.Equal(t, 1234, eps.durations["ep-1"])
	assert.Equal(t, []int{64, 128, 256}, enc.converts)

	qualities := eps.completed["ep-1"]
	require.Len(t, qualities, 4)
	assert.Equal(t, "original", qualities[0].Quality)
	assert.Equal(t, int64(9000), qualities[0].FileSize)
	assert.Zero(t, qualities[0].Bitrate)
	for _, q := range qualities {
		assert.True(t, q.IsProcessed, q.Quality)
		assert.NotNil(t, q.ProcessedAt, q.Quality)
	}
}

func TestProcessPartialFailureStillCompletes(t *testing.T) {
	enc := &fakeEncoder{duration: 60, failOn: map[int]error{128: errors.New("encoder crashed")}}
	eps := newFakeEpisodes()
	files := &fakeFiles{sizes: map[string]int64{
		"podcasts/sr/sn/ep-1/audio_64k.mp3":  1000,
		"podcasts/sr/sn/ep-1/audio_256k.mp3": 4000,
	}}
	w := New(enc, eps, files)

	require.NoError(t, w.process(context.Background(), testJob()))

	qualities := eps.completed["ep-1"]
	require.Len(t, qualities, 4)

	byName := map[string]model.AudioQuality{}
	for _, q := range qualities {
		byName[q.Quality] = q
	}
	assert.True(t, byName["64k"].IsProcessed)
	assert.True(t, byName["256k"].IsProcessed)
	assert.False(t, byName["128k"].IsProcessed)
	assert.Zero(t, byName["128k"].FileSize)
	assert.Nil(t, byName["128k"].ProcessedAt)
	assert.Empty(t, eps.failed)
}

func TestAllRenditionsFailingStillCompletes(t *testing.T) {
	boom := errors.New("no codec")
	enc := &fakeEncoder{duration: 60, failOn: map[int]error{64: boom, 128: boom, 256: boom}}
	eps := newFakeEpisodes()
	files := &fakeFiles{sizes: map[string]int64{
		"podcasts/sr/sn/ep-1/original_20260101_000000.mp3": 9000,
	}}
	w := New(enc, eps, files)
	acker := &fakeAcker{}

	body, err := json.Marshal(testJob())
	require.NoError(t, err)
	w.handle(context.Background(), amqp.Delivery{Acknowledger: acker, Body: body})

	// Failure stays at the quality level: the episode completes with
	// the original playable and every rendition unprocessed, and the
	// job is acked rather than looping back to the queue.
	assert.True(t, acker.acked)
	assert.False(t, acker.nacked)
	assert.Empty(t, eps.failed)

	qualities := eps.completed["ep-1"]
	require.Len(t, qualities, 4)
	assert.Equal(t, "original", qualities[0].Quality)
	assert.True(t, qualities[0].IsProcessed)
	for _, q := range qualities[1:] {
		assert.False(t, q.IsProcessed, q.Quality)
		assert.Zero(t, q.FileSize, q.Quality)
	}
}

func TestProcessProbeFailure(t *testing.T) {
	enc := &fakeEncoder{probeErr: errors.New("not an mp3")}
	eps := newFakeEpisodes()
	w := New(enc, eps, &fakeFiles{})

	err := w.process(context.Background(), testJob())
	require.Error(t, err)
	assert.Empty(t, enc.converts)
}

func TestHandlePoisonMessageNotRequeued(t *testing.T) {
	w := New(&fakeEncoder{}, newFakeEpisodes(), &fakeFiles{})
	acker := &fakeAcker{}

	w.handle(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte("{not json")})

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.False(t, acker.acked)
}

func TestHandleProcessingFailureRequeuedAndRecorded(t *testing.T) {
	enc := &fakeEncoder{probeErr: errors.New("not an mp3")}
	eps := newFakeEpisodes()
	w := New(enc, eps, &fakeFiles{})
	acker := &fakeAcker{}

	body, err := json.Marshal(testJob())
	require.NoError(t, err)
	w.handle(context.Background(), amqp.Delivery{Acknowledger: acker, Body: body})

	assert.True(t, acker.nacked)
	assert.True(t, acker.requeue)
	assert.Contains(t, eps.failed["ep-1"], "probe original")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w := New(&fakeEncoder{}, newFakeEpisodes(), &fakeFiles{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx, make(chan amqp.Delivery))
	assert.ErrorIs(t, err, context.Canceled)
}
