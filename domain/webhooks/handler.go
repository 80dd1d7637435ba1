package webhooks

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for project webhooks. Every route requires
// webhook:manage at the path's project, since there is no separate read
// scope for webhook configuration.
type Handler struct {
	svc   *Service
	perms *permissions.Service
}

func NewHandler(svc *Service, perms *permissions.Service) *Handler {
	return &Handler{svc: svc, perms: perms}
}

type createRequest struct {
	URL    string   `json:"url" validate:"required"`
	Events []string `json:"events" validate:"required"`
	Secret string   `json:"secret"`
}

// Create registers a webhook for a project.
// @Summary      Create webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      201 {object} WebhookDTO
// @Router       /api/projects/{projectId}/webhooks [post]
// @Security     bearerAuth
func (h *Handler) Create(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "webhook:manage", &projectID, false); err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	w, err := h.svc.Create(c.Request().Context(), projectID, req.URL, req.Events, req.Secret)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w.ToDTO())
}

// List returns the webhooks configured for a project.
// @Summary      List webhooks
// @Tags         webhooks
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      200 {array} WebhookDTO
// @Router       /api/projects/{projectId}/webhooks [get]
// @Security     bearerAuth
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "webhook:manage", &projectID, false); err != nil {
		return err
	}
	rows, err := h.svc.List(c.Request().Context(), projectID)
	if err != nil {
		return err
	}
	dtos := make([]WebhookDTO, len(rows))
	for i, w := range rows {
		dtos[i] = w.ToDTO()
	}
	return c.JSON(http.StatusOK, dtos)
}

// Delete removes a webhook.
// @Summary      Delete webhook
// @Tags         webhooks
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Webhook ID"
// @Success      204
// @Router       /api/projects/{projectId}/webhooks/{id} [delete]
// @Security     bearerAuth
func (h *Handler) Delete(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "webhook:manage", &projectID, false); err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Deliveries returns recent delivery attempts for a webhook.
// @Summary      List webhook deliveries
// @Tags         webhooks
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Webhook ID"
// @Success      200 {array} Delivery
// @Router       /api/projects/{projectId}/webhooks/{id}/deliveries [get]
// @Security     bearerAuth
func (h *Handler) Deliveries(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "webhook:manage", &projectID, false); err != nil {
		return err
	}
	rows, err := h.svc.Deliveries(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}
