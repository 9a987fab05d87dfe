package server

import (
	"cmp"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"marquee/pkg/inference"
	"marquee/pkg/schema"
	"marquee/pkg/utils"
)

// GET /api/settings
func (s *Server) handleGetSettings(c echo.Context) error {
	if !s.turnMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	}
	defer s.turnMu.Unlock()

	return c.JSON(http.StatusOK, s.Settings)
}

// PUT /api/settings. Changing the credential or model discards the current
// orchestrator and starts a fresh one; the history is kept.
func (s *Server) handlePutSettings(c echo.Context) error {
	var in schema.Settings
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	in.APIKey = strings.TrimSpace(in.APIKey)
	in.Model = cmp.Or(strings.TrimSpace(in.Model), schema.DefaultModel)

	if !s.turnMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	}
	defer s.turnMu.Unlock()

	if in != s.Settings {
		if in.APIKey != s.Settings.APIKey {
			s.models.Forget(s.Settings.APIKey)
		}
		s.Settings = in
		s.rebuildAgent()
		log.Info("settings updated", "model", in.Model)
	}
	if err := utils.Save(settingsFile, s.Settings); err != nil {
		log.Warn("failed saving settings", "error", err)
	}
	return c.JSON(http.StatusOK, s.Settings)
}

// GET /api/models lists the models available to the configured key, through a
// short-lived single-flight cache.
func (s *Server) handleGetModels(c echo.Context) error {
	if !s.turnMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	}
	key := cmp.Or(strings.TrimSpace(c.QueryParam("key")), s.Settings.APIKey)
	// Release before the listing call: the cache fill may hit the network.
	s.turnMu.Unlock()

	if strings.TrimSpace(key) == "" {
		return c.JSON(http.StatusBadRequest, utils.ErrJSON("api key is not configured"))
	}

	models, err := s.models.Get(key)
	if err != nil {
		log.Error("model listing failed", "error", err)
		if errors.Is(err, inference.ErrMissingAPIKey) {
			return c.JSON(http.StatusBadRequest, utils.ErrJSON(err.Error()))
		}
		return c.JSON(http.StatusBadGateway, utils.ErrJSON("failed listing models"))
	}
	return c.JSON(http.StatusOK, map[string]any{"models": models})
}
