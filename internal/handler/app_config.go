package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/repository"
)

// AppConfigHandler serves the mobile-client configuration document.
// Reads are public so the apps can check versions before signing in;
// writes are admin only.
type AppConfigHandler struct {
	Configs *repository.AppConfigRepo
}

func NewAppConfigHandler(configs *repository.AppConfigRepo) *AppConfigHandler {
	return &AppConfigHandler{Configs: configs}
}

type appConfigBody struct {
	AppName            string `json:"appName"`
	IOSPackageName     string `json:"iosPackageName"`
	IOSVersion         string `json:"iosVersion"`
	IOSBuildNumber     string `json:"iosBuildNumber"`
	AndroidPackageName string `json:"androidPackageName"`
	AndroidVersion     string `json:"androidVersion"`
	AndroidBuildNumber string `json:"androidBuildNumber"`
}

func (h *AppConfigHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cfg, err := h.Configs.Get(ctx)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "", appConfigBody{
		AppName:            cfg.AppName,
		IOSPackageName:     cfg.IOSPackageName,
		IOSVersion:         cfg.IOSVersion,
		IOSBuildNumber:     cfg.IOSBuildNumber,
		AndroidPackageName: cfg.AndroidPackageName,
		AndroidVersion:     cfg.AndroidVersion,
		AndroidBuildNumber: cfg.AndroidBuildNumber,
	})
}

func (h *AppConfigHandler) Update(c echo.Context) error {
	var req appConfigBody
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cfg := &model.AppConfig{
		AppName:            req.AppName,
		IOSPackageName:     req.IOSPackageName,
		IOSVersion:         req.IOSVersion,
		IOSBuildNumber:     req.IOSBuildNumber,
		AndroidPackageName: req.AndroidPackageName,
		AndroidVersion:     req.AndroidVersion,
		AndroidBuildNumber: req.AndroidBuildNumber,
	}
	if err := h.Configs.Upsert(ctx, cfg); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "configuration updated", req)
}
