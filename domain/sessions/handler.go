package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for login sessions.
type Handler struct {
	svc *Service
}

// NewHandler creates a new sessions handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Login exchanges a (name, password) pair for a bearer session token.
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200 {object} loginResponse
// @Failure      401 {object} apperror.Error
// @Failure      429 {object} apperror.Error
// @Router       /api/auth/login [post]
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.Name == "" || req.Password == "" {
		return apperror.ErrBadRequest.WithMessage("name and password are required")
	}

	token, expiresAt, err := h.svc.Login(c.Request().Context(), c.RealIP(), req.Name, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(http.TimeFormat),
	})
}

// Logout revokes every session for the authenticated user.
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /api/auth/logout [post]
// @Security     bearerAuth
func (h *Handler) Logout(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	if err := h.svc.Logout(c.Request().Context(), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
