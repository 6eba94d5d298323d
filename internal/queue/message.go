// Package queue manages the RabbitMQ connection and defines the
// message payloads exchanged between the API and the transcoding
// worker.
package queue

import "time"

// AudioQualityRequest names one rendition the worker must produce and
// where to write it, relative to the public directory.
type AudioQualityRequest struct {
	Quality    string `json:"quality"` // "64k", "128k", "256k"
	Bitrate    int    `json:"bitrate"` // kbps
	OutputPath string `json:"outputPath"`
}

// AudioProcessingMessage is published when an episode's original
// audio has been stored and the episode moved to Queued. It carries
// enough for the worker to transcode without querying the database
// for anything but status updates.
type AudioProcessingMessage struct {
	EpisodeID        string                `json:"episodeId"`
	OriginalFilePath string                `json:"originalFilePath"`
	OriginalFileName string                `json:"originalFileName"`
	QueuedAt         time.Time             `json:"queuedAt"`
	QualityLevels    []AudioQualityRequest `json:"qualityLevels"`
}
