package deployments

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for project deployments. Mutating routes
// require deploy:write; List/Get/History only require deploy:read,
// mirroring domain/agentsessions' split between spawn/stop and
// read-only routes.
type Handler struct {
	svc   *Service
	perms *permissions.Service
}

func NewHandler(svc *Service, perms *permissions.Service) *Handler {
	return &Handler{svc: svc, perms: perms}
}

type createRequest struct {
	Environment string `json:"environment" validate:"required"`
	ImageRef    string `json:"imageRef" validate:"required"`
	Branch      string `json:"branch"`
	TTLHours    *int   `json:"ttlHours"`
}

// Create registers a deployment or preview for a project.
// @Summary      Create deployment
// @Tags         deployments
// @Accept       json
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      201 {object} DTO
// @Router       /api/projects/{projectId}/deployments [post]
// @Security     bearerAuth
func (h *Handler) Create(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:write", &projectID, false); err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	d, err := h.svc.Create(c.Request().Context(), projectID, req.Environment, req.ImageRef, req.Branch, req.TTLHours)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d.ToDTO())
}

// List returns the deployments for a project.
// @Summary      List deployments
// @Tags         deployments
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      200 {array} DTO
// @Router       /api/projects/{projectId}/deployments [get]
// @Security     bearerAuth
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:read", &projectID, true); err != nil {
		return err
	}
	rows, err := h.svc.List(c.Request().Context(), projectID)
	if err != nil {
		return err
	}
	dtos := make([]DTO, len(rows))
	for i, d := range rows {
		dtos[i] = d.ToDTO()
	}
	return c.JSON(http.StatusOK, dtos)
}

// Get returns a single deployment.
// @Summary      Get deployment
// @Tags         deployments
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Deployment ID"
// @Success      200 {object} DTO
// @Router       /api/projects/{projectId}/deployments/{id} [get]
// @Security     bearerAuth
func (h *Handler) Get(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:read", &projectID, true); err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d.ToDTO())
}

// History returns the transition history for a deployment.
// @Summary      List deployment history
// @Tags         deployments
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Deployment ID"
// @Success      200 {array} DeploymentHistory
// @Router       /api/projects/{projectId}/deployments/{id}/history [get]
// @Security     bearerAuth
func (h *Handler) History(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:read", &projectID, true); err != nil {
		return err
	}
	rows, err := h.svc.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

type deployRequest struct {
	ImageRef string `json:"imageRef" validate:"required"`
}

// Deploy rewrites a deployment's image_ref.
// @Summary      Deploy image
// @Tags         deployments
// @Accept       json
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Deployment ID"
// @Success      202
// @Router       /api/projects/{projectId}/deployments/{id}/deploy [post]
// @Security     bearerAuth
func (h *Handler) Deploy(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:write", &projectID, false); err != nil {
		return err
	}
	var req deployRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if err := h.svc.Deploy(c.Request().Context(), c.Param("id"), req.ImageRef); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// Stop scales a deployment to zero.
// @Summary      Stop deployment
// @Tags         deployments
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Deployment ID"
// @Success      202
// @Router       /api/projects/{projectId}/deployments/{id}/stop [post]
// @Security     bearerAuth
func (h *Handler) Stop(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:write", &projectID, false); err != nil {
		return err
	}
	if err := h.svc.Stop(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// Resume flips a stopped deployment back to active.
// @Summary      Resume deployment
// @Tags         deployments
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Deployment ID"
// @Success      202
// @Router       /api/projects/{projectId}/deployments/{id}/resume [post]
// @Security     bearerAuth
func (h *Handler) Resume(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:write", &projectID, false); err != nil {
		return err
	}
	if err := h.svc.Resume(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// Rollback requests the reconciler revert to the last differing deploy
// image from history.
// @Summary      Rollback deployment
// @Tags         deployments
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Deployment ID"
// @Success      202
// @Router       /api/projects/{projectId}/deployments/{id}/rollback [post]
// @Security     bearerAuth
func (h *Handler) Rollback(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "deploy:write", &projectID, false); err != nil {
		return err
	}
	if err := h.svc.Rollback(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}
