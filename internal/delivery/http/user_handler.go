package http

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"libraquant/internal/delivery/http/dto"
	"libraquant/internal/domain"
	"libraquant/internal/usecase"
)

// analysisTimeout bounds a single analyst call
const analysisTimeout = 20 * time.Second

// UserHandler handles subscriber-facing requests
type UserHandler struct {
	terminal *usecase.Terminal
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(terminal *usecase.Terminal) *UserHandler {
	return &UserHandler{
		terminal: terminal,
	}
}

// GetSnapshot returns signals in display order, the market watch and the status
// GET /api/user/snapshot
func (h *UserHandler) GetSnapshot(c echo.Context) error {
	snap, err := h.terminal.Dashboard()
	if err != nil {
		return sessionErrorResponse(c, err)
	}
	engine, err := h.terminal.Engine()
	if err != nil {
		return sessionErrorResponse(c, err)
	}

	return SuccessResponse(c, map[string]interface{}{
		"signals":   snap.Signals,
		"watchlist": snap.Watchlist,
		"status":    dto.NewStatusOutput(engine.Status()),
	})
}

// GetStatus returns the connection indicator
// GET /api/user/status
func (h *UserHandler) GetStatus(c echo.Context) error {
	engine, err := h.terminal.Engine()
	if err != nil {
		return sessionErrorResponse(c, err)
	}
	return SuccessResponse(c, dto.NewStatusOutput(engine.Status()))
}

// Sync triggers an immediate sync, the banner's retry action
// POST /api/user/sync
func (h *UserHandler) Sync(c echo.Context) error {
	engine, err := h.terminal.Engine()
	if err != nil {
		return sessionErrorResponse(c, err)
	}

	// A failed sync is reported through the status banner, not the HTTP code.
	// A client hanging up must not cancel the fetch.
	_ = engine.Retry(context.WithoutCancel(c.Request().Context()))
	return SuccessResponse(c, dto.NewStatusOutput(engine.Status()))
}

// GetStats returns the desk's track record
// GET /api/user/stats
func (h *UserHandler) GetStats(c echo.Context) error {
	stats, err := h.terminal.Stats()
	if err != nil {
		return sessionErrorResponse(c, err)
	}
	return SuccessResponse(c, dto.NewStatsOutput(stats))
}

// AnalyzeSignal asks the analyst for a short read of one signal
// GET /api/user/signals/:id/analysis
func (h *UserHandler) AnalyzeSignal(c echo.Context) error {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), analysisTimeout)
	defer cancel()

	text, err := h.terminal.Analyze(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "Signal not found")
		}
		return sessionErrorResponse(c, err)
	}
	return SuccessResponse(c, dto.AnalysisOutput{SignalID: id, Analysis: text})
}

// GetAlerts returns recent signal alerts, newest first
// GET /api/user/alerts
func (h *UserHandler) GetAlerts(c echo.Context) error {
	return SuccessResponse(c, h.terminal.Alerts())
}

// GetSoundPreference returns the alert tone toggle
// GET /api/user/preferences/sound
func (h *UserHandler) GetSoundPreference(c echo.Context) error {
	enabled, err := h.terminal.SoundEnabled(c.Request().Context())
	if err != nil {
		return InternalServerErrorResponse(c, err)
	}
	return SuccessResponse(c, dto.SoundPreference{Enabled: enabled})
}

// SetSoundPreference stores the alert tone toggle
// PUT /api/user/preferences/sound
func (h *UserHandler) SetSoundPreference(c echo.Context) error {
	var req dto.SoundPreference
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if err := h.terminal.SetSoundEnabled(c.Request().Context(), req.Enabled); err != nil {
		return InternalServerErrorResponse(c, err)
	}
	return SuccessResponse(c, req)
}

// sessionErrorResponse maps terminal access errors to HTTP statuses
func sessionErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return UnauthorizedResponse(c, "Session expired. Please log in again.")
	case errors.Is(err, usecase.ErrAdminOnly):
		return ForbiddenResponse(c, "Admin access required")
	default:
		return InternalServerErrorResponse(c, err)
	}
}
