package users

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for users.
type Handler struct {
	svc *Service
}

// NewHandler creates a new users handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Me returns the authenticated caller's own profile.
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Success      200 {object} DTO
// @Failure      401 {object} apperror.Error
// @Router       /api/users/me [get]
// @Security     bearerAuth
func (h *Handler) Me(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	u, err := h.svc.GetByID(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u.ToDTO())
}

type createRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// Create registers a new human user. Restricted to admin:users.
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Success      201 {object} DTO
// @Failure      409 {object} apperror.Error
// @Router       /api/users [post]
// @Security     bearerAuth
func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	u, err := h.svc.CreateHuman(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u.ToDTO())
}

// Get returns a user by ID. Restricted to admin:users.
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} DTO
// @Router       /api/users/{id} [get]
// @Security     bearerAuth
func (h *Handler) Get(c echo.Context) error {
	u, err := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u.ToDTO())
}

// Deactivate disables a user account. Restricted to admin:users.
// @Summary      Deactivate user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      204
// @Router       /api/users/{id} [delete]
// @Security     bearerAuth
func (h *Handler) Deactivate(c echo.Context) error {
	if err := h.svc.Deactivate(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
