package model

import "time"

// ProcessingStatus tracks an episode's audio through the transcoding
// pipeline. Transitions never skip a state:
//
//	Uploaded -> Queued -> Processing -> Completed
//	                      Processing -> Failed
//
// Failed is terminal; recovery is an operator re-upload, which starts
// the chain again from Queued.
type ProcessingStatus int

const (
	StatusUploaded ProcessingStatus = iota
	StatusQueued
	StatusProcessing
	StatusCompleted
	StatusFailed
)

// String returns the lowercase wire name used in API responses.
func (s ProcessingStatus) String() string {
	switch s {
	case StatusUploaded:
		return "uploaded"
	case StatusQueued:
		return "queued"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// CanAcceptUpload reports whether a new audio upload is allowed for
// an episode in this status. Only fresh and failed episodes may be
// (re-)uploaded; this guards against double-queuing a processing job.
func (s ProcessingStatus) CanAcceptUpload() bool {
	return s == StatusUploaded || s == StatusFailed
}

// PodcastSeries is a row in `podcast_series`.
type PodcastSeries struct {
	ID           string    // podcast_series.id
	Title        string    // podcast_series.title
	Description  string    // podcast_series.description
	Language     string    // podcast_series.language
	Level        string    // podcast_series.level (A1..C2)
	ThumbnailURL *string   // podcast_series.thumbnail_url (nullable)
	IsActive     bool      // podcast_series.is_active
	CreatedAt    time.Time // podcast_series.created_at
	UpdatedAt    time.Time // podcast_series.updated_at
}

// PodcastSeason is a row in `podcast_seasons`, grouping episodes
// under a series.
type PodcastSeason struct {
	ID           string    // podcast_seasons.id
	SeriesID     string    // podcast_seasons.series_id
	SeasonNumber int       // podcast_seasons.season_number
	Title        string    // podcast_seasons.title
	Description  string    // podcast_seasons.description
	IsActive     bool      // podcast_seasons.is_active
	CreatedAt    time.Time // podcast_seasons.created_at
	UpdatedAt    time.Time // podcast_seasons.updated_at
}

// PodcastEpisode is a row in `podcast_episodes`. Audio fields are
// populated progressively: AudioURL on upload, DurationSeconds and
// the rendition list when the worker finishes.
//
// Fields:
//  SeriesID, SeasonID    – parents; also key the storage layout.
//  AudioURL              – relative path of the original upload.
//  AudioFileName         – client-supplied name of the original file.
//  AudioQualities        – renditions incl. "original" (JSON column).
//  ProcessingStatus      – pipeline state machine above.
//  ProcessingStartedAt   – set when the worker picks up the job.
//  ProcessingCompletedAt – set on Completed.
//  ProcessingError       – last failure message, when Failed.
type PodcastEpisode struct {
	ID                    string           // podcast_episodes.id
	SeriesID              string           // podcast_episodes.series_id
	SeasonID              string           // podcast_episodes.season_id
	EpisodeNumber         int              // podcast_episodes.episode_number
	Title                 string           // podcast_episodes.title
	Description           string           // podcast_episodes.description
	DurationSeconds       int              // podcast_episodes.duration_seconds
	AudioURL              *string          // podcast_episodes.audio_url (nullable)
	AudioFileName         *string          // podcast_episodes.audio_file_name (nullable)
	AudioQualities        []AudioQuality   // podcast_episodes.audio_qualities (JSON)
	ThumbnailURL          *string          // podcast_episodes.thumbnail_url (nullable)
	ReleaseDate           time.Time        // podcast_episodes.release_date
	ProcessingStatus      ProcessingStatus // podcast_episodes.processing_status
	ProcessingStartedAt   *time.Time       // podcast_episodes.processing_started_at (nullable)
	ProcessingCompletedAt *time.Time       // podcast_episodes.processing_completed_at (nullable)
	ProcessingError       *string          // podcast_episodes.processing_error (nullable)
	IsActive              bool             // podcast_episodes.is_active
	CreatedAt             time.Time        // podcast_episodes.created_at
	UpdatedAt             time.Time        // podcast_episodes.updated_at
}

// AudioQuality is one encoded rendition of an episode's original
// audio, embedded in the episode's quality list. The "original"
// entry points at the uploaded file itself with a zero bitrate.
type AudioQuality struct {
	Quality     string     `json:"quality"` // "original", "64k", "128k", "256k"
	URL         string     `json:"url"`
	FileSize    int64      `json:"fileSize"`
	Bitrate     int        `json:"bitrate"` // kbps; 0 for original
	IsProcessed bool       `json:"isProcessed"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}
