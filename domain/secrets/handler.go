package secrets

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for secrets.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type upsertRequest struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
	Scope Scope  `json:"scope" validate:"required"`
}

// Upsert creates or replaces a project-scoped secret.
// @Summary      Upsert project secret
// @Tags         secrets
// @Accept       json
// @Produce      json
// @Param        projectId path string true "Project ID (UUID)"
// @Success      200 {object} DTO
// @Router       /api/projects/{projectId}/secrets [put]
// @Security     bearerAuth
func (h *Handler) Upsert(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}

	projectID := c.Param("projectId")
	var req upsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.Name == "" || req.Value == "" || req.Scope == "" {
		return apperror.ErrBadRequest.WithMessage("name, value, and scope are required")
	}

	dto, err := h.svc.UpsertProjectSecret(c.Request().Context(), projectID, req.Name, req.Value, req.Scope, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto)
}

// List returns secret metadata (never ciphertext) for a project.
// @Summary      List project secrets
// @Tags         secrets
// @Produce      json
// @Param        projectId path string true "Project ID (UUID)"
// @Success      200 {array} DTO
// @Router       /api/projects/{projectId}/secrets [get]
// @Security     bearerAuth
func (h *Handler) List(c echo.Context) error {
	projectID := c.Param("projectId")
	dtos, err := h.svc.List(c.Request().Context(), &projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dtos)
}

// Delete removes a project secret.
// @Summary      Delete project secret
// @Tags         secrets
// @Produce      json
// @Param        projectId path string true "Project ID (UUID)"
// @Param        name path string true "Secret name"
// @Success      200 {object} map[string]bool
// @Router       /api/projects/{projectId}/secrets/{name} [delete]
// @Security     bearerAuth
func (h *Handler) Delete(c echo.Context) error {
	projectID := c.Param("projectId")
	name := c.Param("name")
	existed, err := h.svc.Delete(c.Request().Context(), &projectID, name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": existed})
}
