package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/repository"
)

// PodcastHandler serves the public, read-only catalogue. These routes
// sit behind the Redis response cache.
type PodcastHandler struct {
	Series   *repository.PodcastSeriesRepo
	Seasons  *repository.PodcastSeasonRepo
	Episodes *repository.PodcastEpisodeRepo
}

func NewPodcastHandler(series *repository.PodcastSeriesRepo, seasons *repository.PodcastSeasonRepo, episodes *repository.PodcastEpisodeRepo) *PodcastHandler {
	return &PodcastHandler{Series: series, Seasons: seasons, Episodes: episodes}
}

type seriesView struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Language     string  `json:"language"`
	Level        string  `json:"level"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
}

type seasonView struct {
	ID           string `json:"id"`
	SeriesID     string `json:"seriesId"`
	SeasonNumber int    `json:"seasonNumber"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

type qualityView struct {
	Quality  string `json:"quality"`
	URL      string `json:"url"`
	FileSize int64  `json:"fileSize"`
	Bitrate  int    `json:"bitrate"`
}

type episodeView struct {
	ID              string        `json:"id"`
	SeasonID        string        `json:"seasonId"`
	EpisodeNumber   int           `json:"episodeNumber"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	DurationSeconds int           `json:"durationSeconds"`
	ThumbnailURL    *string       `json:"thumbnailUrl,omitempty"`
	ReleaseDate     time.Time     `json:"releaseDate"`
	Status          string        `json:"status"`
	AudioQualities  []qualityView `json:"audioQualities,omitempty"`
}

func viewSeries(s *model.PodcastSeries) seriesView {
	return seriesView{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		Language:     s.Language,
		Level:        s.Level,
		ThumbnailURL: s.ThumbnailURL,
	}
}

func viewSeason(s *model.PodcastSeason) seasonView {
	return seasonView{
		ID:           s.ID,
		SeriesID:     s.SeriesID,
		SeasonNumber: s.SeasonNumber,
		Title:        s.Title,
		Description:  s.Description,
	}
}

// viewEpisode exposes only finished renditions; a listener never sees
// an unprocessed quality or the original at its unthrottled bitrate.
func viewEpisode(e *model.PodcastEpisode) episodeView {
	var qualities []qualityView
	for _, q := range e.AudioQualities {
		if !q.IsProcessed || q.Quality == "original" {
			continue
		}
		qualities = append(qualities, qualityView{
			Quality:  q.Quality,
			URL:      q.URL,
			FileSize: q.FileSize,
			Bitrate:  q.Bitrate,
		})
	}
	return episodeView{
		ID:              e.ID,
		SeasonID:        e.SeasonID,
		EpisodeNumber:   e.EpisodeNumber,
		Title:           e.Title,
		Description:     e.Description,
		DurationSeconds: e.DurationSeconds,
		ThumbnailURL:    e.ThumbnailURL,
		ReleaseDate:     e.ReleaseDate,
		Status:          e.ProcessingStatus.String(),
		AudioQualities:  qualities,
	}
}

// ListSeries returns all active series.
func (h *PodcastHandler) ListSeries(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	series, err := h.Series.ListActive(ctx)
	if err != nil {
		return failFrom(c, err)
	}
	out := make([]seriesView, 0, len(series))
	for i := range series {
		out = append(out, viewSeries(&series[i]))
	}
	return ok(c, http.StatusOK, "", out)
}

// GetSeries returns one series with its seasons.
func (h *PodcastHandler) GetSeries(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Series.GetByID(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}
	seasons, err := h.Seasons.ListBySeries(ctx, s.ID)
	if err != nil {
		return failFrom(c, err)
	}
	seasonViews := make([]seasonView, 0, len(seasons))
	for i := range seasons {
		seasonViews = append(seasonViews, viewSeason(&seasons[i]))
	}
	return ok(c, http.StatusOK, "", echo.Map{
		"series":  viewSeries(s),
		"seasons": seasonViews,
	})
}

// ListEpisodes returns a season's episodes. Only episodes with
// finished audio are listed publicly.
func (h *PodcastHandler) ListEpisodes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	episodes, err := h.Episodes.ListBySeason(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}
	out := make([]episodeView, 0, len(episodes))
	for i := range episodes {
		if episodes[i].ProcessingStatus != model.StatusCompleted {
			continue
		}
		out = append(out, viewEpisode(&episodes[i]))
	}
	return ok(c, http.StatusOK, "", out)
}

// GetEpisode returns one episode's detail.
func (h *PodcastHandler) GetEpisode(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Episodes.GetByID(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}
	if !e.IsActive || e.ProcessingStatus != model.StatusCompleted {
		return fail(c, http.StatusNotFound, "not found")
	}
	return ok(c, http.StatusOK, "", viewEpisode(e))
}
