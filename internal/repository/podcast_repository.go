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

// PodcastSeriesRepo persists series metadata in `podcast_series`.
type PodcastSeriesRepo struct{ DB *sql.DB }

func NewPodcastSeriesRepo(db *sql.DB) *PodcastSeriesRepo { return &PodcastSeriesRepo{DB: db} }

const seriesColumns = `id,title,description,language,level,thumbnail_url,is_active,created_at,updated_at`

func (r *PodcastSeriesRepo) Create(ctx context.Context, s *model.PodcastSeries) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	s.IsActive = true
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO podcast_series (`+seriesColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Title, s.Description, s.Language, s.Level, s.ThumbnailURL, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert series: %w", err)
	}
	return nil
}

func (r *PodcastSeriesRepo) GetByID(ctx context.Context, id string) (*model.PodcastSeries, error) {
	var s model.PodcastSeries
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+seriesColumns+` FROM podcast_series WHERE id=? LIMIT 1`, id).
		Scan(&s.ID, &s.Title, &s.Description, &s.Language, &s.Level, &s.ThumbnailURL,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListActive returns all active series ordered by title.
func (r *PodcastSeriesRepo) ListActive(ctx context.Context) ([]model.PodcastSeries, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+seriesColumns+` FROM podcast_series WHERE is_active=1 ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PodcastSeries
	for rows.Next() {
		var s model.PodcastSeries
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Language, &s.Level, &s.ThumbnailURL,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PodcastSeriesRepo) Update(ctx context.Context, s *model.PodcastSeries) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_series SET title=?, description=?, language=?, level=?, thumbnail_url=?,
		 is_active=?, updated_at=? WHERE id=?`,
		s.Title, s.Description, s.Language, s.Level, s.ThumbnailURL, s.IsActive, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PodcastSeriesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_series SET is_active=0, updated_at=? WHERE id=? AND is_active=1`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PodcastSeasonRepo persists seasons in `podcast_seasons`.
type PodcastSeasonRepo struct{ DB *sql.DB }

func NewPodcastSeasonRepo(db *sql.DB) *PodcastSeasonRepo { return &PodcastSeasonRepo{DB: db} }

const seasonColumns = `id,series_id,season_number,title,description,is_active,created_at,updated_at`

func (r *PodcastSeasonRepo) Create(ctx context.Context, s *model.PodcastSeason) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	s.IsActive = true
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO podcast_seasons (`+seasonColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.SeriesID, s.SeasonNumber, s.Title, s.Description, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert season: %w", err)
	}
	return nil
}

func (r *PodcastSeasonRepo) GetByID(ctx context.Context, id string) (*model.PodcastSeason, error) {
	var s model.PodcastSeason
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+seasonColumns+` FROM podcast_seasons WHERE id=? LIMIT 1`, id).
		Scan(&s.ID, &s.SeriesID, &s.SeasonNumber, &s.Title, &s.Description, &s.IsActive,
			&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListBySeries returns a series' active seasons in season order.
func (r *PodcastSeasonRepo) ListBySeries(ctx context.Context, seriesID string) ([]model.PodcastSeason, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+seasonColumns+` FROM podcast_seasons WHERE series_id=? AND is_active=1
		 ORDER BY season_number`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PodcastSeason
	for rows.Next() {
		var s model.PodcastSeason
		if err := rows.Scan(&s.ID, &s.SeriesID, &s.SeasonNumber, &s.Title, &s.Description,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PodcastSeasonRepo) Update(ctx context.Context, s *model.PodcastSeason) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_seasons SET season_number=?, title=?, description=?, is_active=?, updated_at=?
		 WHERE id=?`,
		s.SeasonNumber, s.Title, s.Description, s.IsActive, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PodcastSeasonRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE podcast_seasons SET is_active=0, updated_at=? WHERE id=? AND is_active=1`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
