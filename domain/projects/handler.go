package projects

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for projects.
type Handler struct {
	svc   *Service
	perms *permissions.Service
}

// NewHandler creates a new projects handler.
func NewHandler(svc *Service, perms *permissions.Service) *Handler {
	return &Handler{svc: svc, perms: perms}
}

type createRequest struct {
	Name       string     `json:"name" validate:"required"`
	RepoPath   string     `json:"repoPath"`
	Visibility Visibility `json:"visibility"`
}

// Create registers a project owned by the caller.
// @Summary      Create project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Success      201 {object} DTO
// @Router       /api/projects [post]
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
	if req.Visibility == "" {
		req.Visibility = VisibilityPrivate
	}
	p, err := h.svc.Create(c.Request().Context(), user.ID, req.Name, req.RepoPath, req.Visibility)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p.ToDTO())
}

// Get returns a project by ID, concealing private projects the
// caller cannot read as a 404.
// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} DTO
// @Router       /api/projects/{id} [get]
// @Security     bearerAuth
func (h *Handler) Get(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	id := c.Param("id")
	if err := h.perms.Require(c.Request().Context(), user.ID, "project:read", &id, true); err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.ToDTO())
}

// List returns projects visible to the caller.
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Success      200 {array} DTO
// @Router       /api/projects [get]
// @Security     bearerAuth
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	rows, err := h.svc.List(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	dtos := make([]DTO, len(rows))
	for i, p := range rows {
		dtos[i] = p.ToDTO()
	}
	return c.JSON(http.StatusOK, dtos)
}

type updateRequest struct {
	Name       string     `json:"name"`
	RepoPath   string     `json:"repoPath"`
	Visibility Visibility `json:"visibility"`
}

// Update modifies a project. Requires project:write at this scope.
// @Summary      Update project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} DTO
// @Router       /api/projects/{id} [patch]
// @Security     bearerAuth
func (h *Handler) Update(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	id := c.Param("id")
	if err := h.perms.Require(c.Request().Context(), user.ID, "project:write", &id, false); err != nil {
		return err
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	p, err := h.svc.Update(c.Request().Context(), id, req.Name, req.RepoPath, req.Visibility)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.ToDTO())
}

// Delete soft-deletes a project. Requires project:delete at this scope.
// @Summary      Delete project
// @Tags         projects
// @Param        id path string true "Project ID"
// @Success      204
// @Router       /api/projects/{id} [delete]
// @Security     bearerAuth
func (h *Handler) Delete(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	id := c.Param("id")
	if err := h.perms.Require(c.Request().Context(), user.ID, "project:delete", &id, false); err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
