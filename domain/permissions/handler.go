package permissions

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler exposes delegation and role-assignment endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type delegateRequest struct {
	DelegateID string    `json:"delegateId"`
	Permission string    `json:"permission"`
	ProjectID  *string   `json:"projectId,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Delegate godoc
// @Summary Grant a delegated permission
// @Tags permissions
// @Security bearerAuth
// @Router /api/permissions/delegations [post]
func (h *Handler) Delegate(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	var req delegateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	d, err := h.svc.Delegate(c.Request().Context(), user.ID, req.DelegateID, req.Permission, req.ProjectID, req.ExpiresAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d.ToDTO())
}

// Revoke godoc
// @Summary Revoke a delegation
// @Tags permissions
// @Security bearerAuth
// @Router /api/permissions/delegations/{id} [delete]
func (h *Handler) Revoke(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	if err := h.svc.RevokeDelegation(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type assignRoleRequest struct {
	UserID    string  `json:"userId"`
	RoleName  string  `json:"roleName"`
	ProjectID *string `json:"projectId,omitempty"`
}

// AssignRole godoc
// @Summary Assign a role to a user
// @Tags permissions
// @Security bearerAuth
// @Router /api/permissions/role-assignments [post]
func (h *Handler) AssignRole(c echo.Context) error {
	var req assignRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if err := h.svc.AssignRole(c.Request().Context(), req.UserID, req.RoleName, req.ProjectID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me godoc
// @Summary Return the caller's effective permissions
// @Tags permissions
// @Security bearerAuth
// @Router /api/permissions/me [get]
func (h *Handler) Me(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	var projectID *string
	if pid := c.QueryParam("projectId"); pid != "" {
		projectID = &pid
	}
	perms, err := h.svc.EffectivePermissions(c.Request().Context(), user.ID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"permissions": perms})
}
