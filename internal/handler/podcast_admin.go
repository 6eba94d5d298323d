package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/media"
	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/repository"
	"github.com/prodicts/prodicts-backend/internal/service"
)

// PodcastAdminHandler manages the catalogue and feeds the transcoding
// pipeline. All routes are admin-role protected.
type PodcastAdminHandler struct {
	Series   *repository.PodcastSeriesRepo
	Seasons  *repository.PodcastSeasonRepo
	Episodes *repository.PodcastEpisodeRepo
	Uploads  *service.UploadService
}

func NewPodcastAdminHandler(series *repository.PodcastSeriesRepo, seasons *repository.PodcastSeasonRepo, episodes *repository.PodcastEpisodeRepo, uploads *service.UploadService) *PodcastAdminHandler {
	return &PodcastAdminHandler{Series: series, Seasons: seasons, Episodes: episodes, Uploads: uploads}
}

type seriesReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Level       string `json:"level"`
}

type seasonReq struct {
	SeriesID     string `json:"seriesId"`
	SeasonNumber int    `json:"seasonNumber"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

type episodeReq struct {
	SeriesID      string     `json:"seriesId"`
	SeasonID      string     `json:"seasonId"`
	EpisodeNumber int        `json:"episodeNumber"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ReleaseDate   *time.Time `json:"releaseDate"`
}

// ----- series -----

func (h *PodcastAdminHandler) CreateSeries(c echo.Context) error {
	var req seriesReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return fail(c, http.StatusBadRequest, "title is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s := &model.PodcastSeries{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Language:    req.Language,
		Level:       req.Level,
	}
	if err := h.Series.Create(ctx, s); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "series created", viewSeries(s))
}

func (h *PodcastAdminHandler) UpdateSeries(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Series.GetByID(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	var req seriesReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		s.Title = t
	}
	if req.Description != "" {
		s.Description = req.Description
	}
	if req.Language != "" {
		s.Language = req.Language
	}
	if req.Level != "" {
		s.Level = req.Level
	}
	if err := h.Series.Update(ctx, s); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "series updated", viewSeries(s))
}

func (h *PodcastAdminHandler) DeleteSeries(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Series.Delete(ctx, c.Param("id")); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "series deleted", nil)
}

// ----- seasons -----

func (h *PodcastAdminHandler) CreateSeason(c echo.Context) error {
	var req seasonReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.SeriesID == "" || req.SeasonNumber <= 0 {
		return fail(c, http.StatusBadRequest, "seriesId and a positive seasonNumber are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Series.GetByID(ctx, req.SeriesID); err != nil {
		return failFrom(c, err)
	}
	s := &model.PodcastSeason{
		SeriesID:     req.SeriesID,
		SeasonNumber: req.SeasonNumber,
		Title:        req.Title,
		Description:  req.Description,
	}
	if err := h.Seasons.Create(ctx, s); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "season created", viewSeason(s))
}

func (h *PodcastAdminHandler) UpdateSeason(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Seasons.GetByID(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	var req seasonReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.SeasonNumber > 0 {
		s.SeasonNumber = req.SeasonNumber
	}
	if req.Title != "" {
		s.Title = req.Title
	}
	if req.Description != "" {
		s.Description = req.Description
	}
	if err := h.Seasons.Update(ctx, s); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "season updated", viewSeason(s))
}

func (h *PodcastAdminHandler) DeleteSeason(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Seasons.Delete(ctx, c.Param("id")); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "season deleted", nil)
}

// ----- episodes -----

func (h *PodcastAdminHandler) CreateEpisode(c echo.Context) error {
	var req episodeReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.SeriesID == "" || req.SeasonID == "" || strings.TrimSpace(req.Title) == "" {
		return fail(c, http.StatusBadRequest, "seriesId, seasonId and title are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	season, err := h.Seasons.GetByID(ctx, req.SeasonID)
	if err != nil {
		return failFrom(c, err)
	}
	if season.SeriesID != req.SeriesID {
		return fail(c, http.StatusBadRequest, "season does not belong to the given series")
	}

	e := &model.PodcastEpisode{
		SeriesID:      req.SeriesID,
		SeasonID:      req.SeasonID,
		EpisodeNumber: req.EpisodeNumber,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
	}
	if req.ReleaseDate != nil {
		e.ReleaseDate = *req.ReleaseDate
	} else {
		e.ReleaseDate = time.Now().UTC()
	}
	if err := h.Episodes.Create(ctx, e); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "episode created", adminEpisodeView(e))
}

func (h *PodcastAdminHandler) UpdateEpisode(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Episodes.GetByID(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	var req episodeReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.EpisodeNumber > 0 {
		e.EpisodeNumber = req.EpisodeNumber
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		e.Title = t
	}
	if req.Description != "" {
		e.Description = req.Description
	}
	if req.ReleaseDate != nil {
		e.ReleaseDate = *req.ReleaseDate
	}
	if err := h.Episodes.Update(ctx, e); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "episode updated", adminEpisodeView(e))
}

func (h *PodcastAdminHandler) DeleteEpisode(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Episodes.Delete(ctx, c.Param("id")); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "episode deleted", nil)
}

// UploadAudio receives the original MP3 as multipart form data under
// "audio" and queues transcoding. The size cap is enforced from the
// multipart header before the stream is opened.
func (h *PodcastAdminHandler) UploadAudio(c echo.Context) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return fail(c, http.StatusBadRequest, "audio file is required")
	}
	if fh.Size > media.MaxAudioBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "audio file exceeds 500MB")
	}
	if !media.ValidAudioContentType(fh.Header.Get(echo.HeaderContentType)) {
		return fail(c, http.StatusBadRequest, "only MP3 uploads are accepted")
	}

	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "could not read upload")
	}
	defer src.Close()

	// No timeout here: a 500MB upload legitimately outlives one.
	ep, err := h.Uploads.UploadAudio(c.Request().Context(), c.Param("id"), fh.Filename, fh.Size, src)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			return fail(c, http.StatusBadRequest, "only MP3 uploads are accepted")
		case errors.Is(err, media.ErrEmptyFile):
			return fail(c, http.StatusBadRequest, "audio file is empty")
		case errors.Is(err, media.ErrFileTooLarge):
			return fail(c, http.StatusRequestEntityTooLarge, "audio file exceeds 500MB")
		}
		return failFrom(c, err)
	}
	return ok(c, http.StatusAccepted, "audio queued for processing", adminEpisodeView(ep))
}

// UploadThumbnail receives an episode image under "thumbnail".
func (h *PodcastAdminHandler) UploadThumbnail(c echo.Context) error {
	fh, err := c.FormFile("thumbnail")
	if err != nil {
		return fail(c, http.StatusBadRequest, "thumbnail file is required")
	}
	if fh.Size > media.MaxImageBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "thumbnail exceeds 10MB")
	}
	if !media.ValidImageContentType(fh.Header.Get(echo.HeaderContentType)) {
		return fail(c, http.StatusBadRequest, "only JPG, PNG and WEBP thumbnails are accepted")
	}

	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "could not read upload")
	}
	defer src.Close()

	ctx, cancel := reqCtx(c)
	defer cancel()

	rel, err := h.Uploads.UploadThumbnail(ctx, c.Param("id"), fh.Filename, fh.Size, src)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedType) {
			return fail(c, http.StatusBadRequest, "only JPG, PNG and WEBP thumbnails are accepted")
		}
		if errors.Is(err, media.ErrEmptyFile) {
			return fail(c, http.StatusBadRequest, "thumbnail file is empty")
		}
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "thumbnail saved", echo.Map{"thumbnailUrl": rel})
}

// Status reports where an episode is in the pipeline.
func (h *PodcastAdminHandler) Status(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Episodes.GetByID(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "", echo.Map{
		"episodeId":             e.ID,
		"status":                e.ProcessingStatus.String(),
		"processingStartedAt":   e.ProcessingStartedAt,
		"processingCompletedAt": e.ProcessingCompletedAt,
		"processingError":       e.ProcessingError,
		"audioQualities":        e.AudioQualities,
	})
}

// adminEpisodeView includes pipeline state the public view hides.
type adminEpisode struct {
	episodeView
	AudioFileName   *string              `json:"audioFileName,omitempty"`
	AllQualities    []model.AudioQuality `json:"allQualities,omitempty"`
	ProcessingError *string              `json:"processingError,omitempty"`
}

func adminEpisodeView(e *model.PodcastEpisode) adminEpisode {
	return adminEpisode{
		episodeView:     viewEpisode(e),
		AudioFileName:   e.AudioFileName,
		AllQualities:    e.AudioQualities,
		ProcessingError: e.ProcessingError,
	}
}
