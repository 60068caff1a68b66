package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"libraquant/internal/delivery/http/dto"
	"libraquant/internal/domain"
	"libraquant/internal/usecase"
)

// AdminHandler handles the admin desk
type AdminHandler struct {
	terminal *usecase.Terminal
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(terminal *usecase.Terminal) *AdminHandler {
	return &AdminHandler{
		terminal: terminal,
	}
}

// CreateSignal publishes a new signal
// POST /api/admin/signals
func (h *AdminHandler) CreateSignal(c echo.Context) error {
	admin, err := h.terminal.Admin()
	if err != nil {
		return sessionErrorResponse(c, err)
	}

	var req dto.CreateSignalRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	signal, err := admin.AddSignal(c.Request().Context(), usecase.NewSignalInput{
		Instrument: req.Instrument,
		Symbol:     req.Symbol,
		Type:       req.Type,
		Action:     req.Action,
		EntryPrice: req.EntryPrice,
		StopLoss:   req.StopLoss,
		Targets:    req.Targets,
		Comment:    req.Comment,
	})
	if err != nil {
		return adminErrorResponse(c, err)
	}
	return CreatedResponse(c, signal)
}

// UpdateSignal edits the status and P&L of a signal
// PUT /api/admin/signals/:id
func (h *AdminHandler) UpdateSignal(c echo.Context) error {
	admin, err := h.terminal.Admin()
	if err != nil {
		return sessionErrorResponse(c, err)
	}

	var req dto.UpdateSignalRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	var status domain.SignalStatus
	if req.Status != "" {
		status = domain.ParseSignalStatus(req.Status)
	}

	signal, err := admin.UpdateSignal(c.Request().Context(), c.Param("id"), usecase.SignalUpdate{
		Status:     status,
		PnLPoints:  req.PnLPoints,
		PnLRupees:  req.PnLRupees,
		TrailingSL: req.TrailingSL,
	})
	if err != nil {
		return adminErrorResponse(c, err)
	}
	return SuccessResponse(c, signal)
}

// DeleteSignal removes a signal locally
// DELETE /api/admin/signals/:id
func (h *AdminHandler) DeleteSignal(c echo.Context) error {
	admin, err := h.terminal.Admin()
	if err != nil {
		return sessionErrorResponse(c, err)
	}
	if err := admin.DeleteSignal(c.Request().Context(), c.Param("id")); err != nil {
		return adminErrorResponse(c, err)
	}
	return SuccessMessageResponse(c, "Signal removed", nil)
}

// CreateWatchItem adds a symbol to the market watch
// POST /api/admin/watchlist
func (h *AdminHandler) CreateWatchItem(c echo.Context) error {
	admin, err := h.terminal.Admin()
	if err != nil {
		return sessionErrorResponse(c, err)
	}

	var req dto.CreateWatchItemRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	item, err := admin.AddWatchItem(c.Request().Context(), req.Symbol, req.Price, req.Change)
	if err != nil {
		return adminErrorResponse(c, err)
	}
	return CreatedResponse(c, item)
}

// DeleteWatchItem removes a symbol from the market watch
// DELETE /api/admin/watchlist/:symbol
func (h *AdminHandler) DeleteWatchItem(c echo.Context) error {
	admin, err := h.terminal.Admin()
	if err != nil {
		return sessionErrorResponse(c, err)
	}
	if err := admin.RemoveWatchItem(c.Request().Context(), c.Param("symbol")); err != nil {
		return adminErrorResponse(c, err)
	}
	return SuccessMessageResponse(c, "Symbol removed", nil)
}

// GetUsers lists subscribers without their passwords
// GET /api/admin/users
func (h *AdminHandler) GetUsers(c echo.Context) error {
	if _, err := h.terminal.Admin(); err != nil {
		return sessionErrorResponse(c, err)
	}
	engine, err := h.terminal.Engine()
	if err != nil {
		return sessionErrorResponse(c, err)
	}

	users := engine.Snapshot().Users
	out := make([]*dto.UserOutput, 0, len(users))
	for _, u := range users {
		out = append(out, dto.NewUserOutput(u))
	}
	return SuccessResponse(c, out)
}

// UpdateUser edits a subscriber
// PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	admin, err := h.terminal.Admin()
	if err != nil {
		return sessionErrorResponse(c, err)
	}

	var req dto.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	user, err := admin.UpdateUser(c.Request().Context(), c.Param("id"), usecase.UserUpdate{
		Name:       req.Name,
		ExpiryDate: req.ExpiryDate,
		IsAdmin:    req.IsAdmin,
		Password:   req.Password,
	})
	if err != nil {
		return adminErrorResponse(c, err)
	}
	return SuccessResponse(c, dto.NewUserOutput(*user))
}

// DeleteUser removes a subscriber
// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	admin, err := h.terminal.Admin()
	if err != nil {
		return sessionErrorResponse(c, err)
	}
	if err := admin.DeleteUser(c.Request().Context(), c.Param("id")); err != nil {
		return adminErrorResponse(c, err)
	}
	return SuccessMessageResponse(c, "User removed", nil)
}

// ResetDevice releases a subscriber's device lock
// DELETE /api/admin/devices/:phone
func (h *AdminHandler) ResetDevice(c echo.Context) error {
	err := h.terminal.ResetDevice(c.Request().Context(), c.Param("phone"))
	if err != nil {
		if domain.IsAuthCode(err, domain.AuthInvalidInput) {
			return BadRequestResponse(c, "Phone must be 10 digits")
		}
		return sessionErrorResponse(c, err)
	}
	return SuccessMessageResponse(c, "Device binding reset", nil)
}

// adminErrorResponse maps admin command errors to HTTP statuses
func adminErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return BadRequestResponse(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return NotFoundResponse(c, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		return ErrorResponse(c, http.StatusConflict, err.Error(), "")
	default:
		return sessionErrorResponse(c, err)
	}
}
