package apitoken

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for API tokens.
type Handler struct {
	svc *Service
}

// NewHandler creates a new API token handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Name      string     `json:"name" validate:"required"`
	Scopes    []string   `json:"scopes" validate:"required,min=1"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Create mints a new API token for the authenticated caller.
// @Summary      Create API token
// @Description  Creates a new API token. The raw token value is returned only in this response.
// @Tags         api-tokens
// @Accept       json
// @Produce      json
// @Success      201 {object} CreatedDTO
// @Failure      403 {object} apperror.Error
// @Router       /api/tokens [post]
// @Security     bearerAuth
func (h *Handler) Create(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	dto, err := h.svc.Create(c.Request().Context(), user.ID, req.Name, req.Scopes, req.ExpiresAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto)
}

// List returns the authenticated caller's own tokens.
// @Summary      List API tokens
// @Tags         api-tokens
// @Produce      json
// @Success      200 {array} DTO
// @Router       /api/tokens [get]
// @Security     bearerAuth
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	dtos, err := h.svc.ListByUser(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dtos)
}

// Get returns a single token owned by the caller.
// @Summary      Get API token
// @Tags         api-tokens
// @Produce      json
// @Param        tokenId path string true "Token ID"
// @Success      200 {object} DTO
// @Router       /api/tokens/{tokenId} [get]
// @Security     bearerAuth
func (h *Handler) Get(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	dto, err := h.svc.GetByID(c.Request().Context(), c.Param("tokenId"), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto)
}
