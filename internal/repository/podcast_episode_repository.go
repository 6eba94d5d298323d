package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prodicts/prodicts-backend/internal/model"
)

// PodcastEpisodeRepo persists episodes in `podcast_episodes`,
// including the pipeline state the transcoding worker drives.
type PodcastEpisodeRepo struct{ DB *sql.DB }

func NewPodcastEpisodeRepo(db *sql.DB) *PodcastEpisodeRepo { return &PodcastEpisodeRepo{DB: db} }

const episodeColumns = `id,series_id,season_id,episode_number,title,description,duration_seconds,
audio_url,audio_file_name,audio_qualities,thumbnail_url,release_date,processing_status,
processing_started_at,processing_completed_at,processing_error,is_active,created_at,updated_at`

func (r *PodcastEpisodeRepo) Create(ctx context.Context, e *model.PodcastEpisode) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	e.IsActive = true
	e.ProcessingStatus = model.StatusUploaded

	qualities, err := marshalJSON(e.AudioQualities)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO podcast_episodes (`+episodeColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.SeriesID, e.SeasonID, e.EpisodeNumber, e.Title, e.Description, e.DurationSeconds,
		e.AudioURL, e.AudioFileName, qualities, e.ThumbnailURL, e.ReleaseDate, e.ProcessingStatus,
		e.ProcessingStartedAt, e.ProcessingCompletedAt, e.ProcessingError, e.IsActive, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

func (r *PodcastEpisodeRepo) scan(row *sql.Row) (*model.PodcastEpisode, error) {
	var (
		e         model.PodcastEpisode
		qualities []byte
	)
	err := row.Scan(&e.ID, &e.SeriesID, &e.SeasonID, &e.EpisodeNumber, &e.Title, &e.Description,
		&e.DurationSeconds, &e.AudioURL, &e.AudioFileName, &qualities, &e.ThumbnailURL, &e.ReleaseDate,
		&e.ProcessingStatus, &e.ProcessingStartedAt, &e.ProcessingCompletedAt, &e.ProcessingError,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(qualities, &e.AudioQualities); err != nil {
		return nil, fmt.Errorf("decode audio qualities: %w", err)
	}
	return &e, nil
}

func (r *PodcastEpisodeRepo) GetByID(ctx context.Context, id string) (*model.PodcastEpisode, error) {
	return r.scan(r.DB.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM podcast_episodes WHERE id=? LIMIT 1`, id))
}

// ListBySeason returns a season's active episodes in episode order.
func (r *PodcastEpisodeRepo) ListBySeason(ctx context.Context, seasonID string) ([]model.PodcastEpisode, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM podcast_episodes WHERE season_id=? AND is_active=1
		 ORDER BY episode_number`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PodcastEpisode
	for rows.Next() {
		var (
			e         model.PodcastEpisode
			qualities []byte
		)
		if err := rows.Scan(&e.ID, &e.SeriesID, &e.SeasonID, &e.EpisodeNumber, &e.Title, &e.Description,
			&e.DurationSeconds, &e.AudioURL, &e.AudioFileName, &qualities, &e.ThumbnailURL, &e.ReleaseDate,
			&e.ProcessingStatus, &e.ProcessingStartedAt, &e.ProcessingCompletedAt, &e.ProcessingError,
			&e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(qualities, &e.AudioQualities); err != nil {
			return nil, fmt.Errorf("decode audio qualities: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update rewrites episode metadata. Pipeline fields are written by
// the targeted helpers below, not here.
func (r *PodcastEpisodeRepo) Update(ctx context.Context, e *model.PodcastEpisode) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_episodes SET episode_number=?, title=?, description=?, thumbnail_url=?,
		 release_date=?, is_active=?, updated_at=? WHERE id=?`,
		e.EpisodeNumber, e.Title, e.Description, e.ThumbnailURL, e.ReleaseDate, e.IsActive,
		e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PodcastEpisodeRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_episodes SET is_active=0, updated_at=? WHERE id=? AND is_active=1`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQueued records the stored original and moves the episode to
// Queued. The status guard rejects a concurrent upload that already
// queued the episode.
func (r *PodcastEpisodeRepo) SetQueued(ctx context.Context, id, audioURL, audioFileName string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_episodes SET audio_url=?, audio_file_name=?, processing_status=?,
		 processing_error=NULL, updated_at=? WHERE id=? AND processing_status IN (?,?)`,
		audioURL, audioFileName, model.StatusQueued, time.Now().UTC(), id,
		model.StatusUploaded, model.StatusFailed)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// SetProcessing stamps the job pick-up.
func (r *PodcastEpisodeRepo) SetProcessing(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_episodes SET processing_status=?, processing_started_at=?, updated_at=?
		 WHERE id=?`,
		model.StatusProcessing, now, now, id)
	return err
}

// SetCompleted stores the rendition list and probed duration and
// finishes the pipeline for this upload.
func (r *PodcastEpisodeRepo) SetCompleted(ctx context.Context, id string, durationSeconds int, qualities []model.AudioQuality) error {
	encoded, err := marshalJSON(qualities)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx,
		`UPDATE podcast_episodes SET processing_status=?, duration_seconds=?, audio_qualities=?,
		 processing_completed_at=?, processing_error=NULL, updated_at=? WHERE id=?`,
		model.StatusCompleted, durationSeconds, encoded, now, now, id)
	return err
}

// SetFailed records the failure message. Failed is terminal until an
// operator re-uploads.
func (r *PodcastEpisodeRepo) SetFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_episodes SET processing_status=?, processing_error=?, updated_at=?
		 WHERE id=?`,
		model.StatusFailed, message, now, id)
	return err
}

// SetThumbnail stores the thumbnail's relative path.
func (r *PodcastEpisodeRepo) SetThumbnail(ctx context.Context, id, thumbnailURL string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_episodes SET thumbnail_url=?, updated_at=? WHERE id=?`,
		thumbnailURL, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
