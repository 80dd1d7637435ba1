package notifications

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for notifications.
type Handler struct {
	svc *Service
}

// NewHandler creates a new notifications handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List returns the caller's notifications.
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Success      200 {array} DTO
// @Router       /api/notifications [get]
// @Security     bearerAuth
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unreadOnly"))
	rows, err := h.svc.List(c.Request().Context(), user.ID, unreadOnly)
	if err != nil {
		return err
	}
	dtos := make([]DTO, len(rows))
	for i, n := range rows {
		dtos[i] = n.ToDTO()
	}
	return c.JSON(http.StatusOK, dtos)
}

// MarkRead marks a single notification read.
// @Summary      Mark notification read
// @Tags         notifications
// @Param        id path string true "Notification ID"
// @Success      204
// @Router       /api/notifications/{id}/read [post]
// @Security     bearerAuth
func (h *Handler) MarkRead(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	if err := h.svc.MarkRead(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead marks every unread notification read.
// @Summary      Mark all notifications read
// @Tags         notifications
// @Success      200 {object} map[string]int64
// @Router       /api/notifications/read-all [post]
// @Security     bearerAuth
func (h *Handler) MarkAllRead(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	count, err := h.svc.MarkAllRead(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked": count})
}
