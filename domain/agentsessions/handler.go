package agentsessions

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// Handler handles HTTP requests for agent sessions. Create and Stop
// authorize inside Service (agent:spawn / agent:stop, since Stop needs
// the session's project first); List/Get/Progress gate on project:read
// here, mirroring domain/webhooks' inline-per-route style.
type Handler struct {
	svc   *Service
	perms *permissions.Service
}

func NewHandler(svc *Service, perms *permissions.Service) *Handler {
	return &Handler{svc: svc, perms: perms}
}

type createRequest struct {
	Prompt   string   `json:"prompt" validate:"required"`
	Provider string   `json:"provider"`
	Scopes   []string `json:"scopes"`
	Branch   *string  `json:"branch"`
}

// Create spawns a new agent session.
// @Summary      Spawn agent session
// @Tags         agent-sessions
// @Accept       json
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      201 {object} DTO
// @Router       /api/projects/{projectId}/agent-sessions [post]
// @Security     bearerAuth
func (h *Handler) Create(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	session, err := h.svc.Create(c.Request().Context(), user.ID, projectID, req.Prompt, req.Provider, req.Scopes, req.Branch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session.ToDTO())
}

// List returns the agent sessions spawned for a project.
// @Summary      List agent sessions
// @Tags         agent-sessions
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      200 {array} DTO
// @Router       /api/projects/{projectId}/agent-sessions [get]
// @Security     bearerAuth
func (h *Handler) List(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "project:read", &projectID, true); err != nil {
		return err
	}
	rows, err := h.svc.ListByProject(c.Request().Context(), projectID)
	if err != nil {
		return err
	}
	dtos := make([]DTO, len(rows))
	for i, row := range rows {
		dtos[i] = row.ToDTO()
	}
	return c.JSON(http.StatusOK, dtos)
}

// Get returns a single agent session.
// @Summary      Get agent session
// @Tags         agent-sessions
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Session ID"
// @Success      200 {object} DTO
// @Router       /api/projects/{projectId}/agent-sessions/{id} [get]
// @Security     bearerAuth
func (h *Handler) Get(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "project:read", &projectID, true); err != nil {
		return err
	}
	session, err := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.ToDTO())
}

// Stop requests early termination of an agent session.
// @Summary      Stop agent session
// @Tags         agent-sessions
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Session ID"
// @Success      202
// @Router       /api/projects/{projectId}/agent-sessions/{id}/stop [post]
// @Security     bearerAuth
func (h *Handler) Stop(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	if err := h.svc.Stop(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// Progress streams an agent session's progress events as SSE until the
// client disconnects.
// @Summary      Stream agent session progress
// @Tags         agent-sessions
// @Produce      text/event-stream
// @Param        projectId path string true "Project ID"
// @Param        id path string true "Session ID"
// @Success      200
// @Router       /api/projects/{projectId}/agent-sessions/{id}/progress [get]
// @Security     bearerAuth
func (h *Handler) Progress(c echo.Context) error {
	user := auth.GetUser(c)
	if user == nil {
		return apperror.ErrUnauthenticated
	}
	projectID := c.Param("projectId")
	if err := h.perms.Require(c.Request().Context(), user.ID, "project:read", &projectID, true); err != nil {
		return err
	}
	sessionID := c.Param("id")
	if _, err := h.svc.GetByID(c.Request().Context(), sessionID); err != nil {
		return err
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return apperror.ErrInternal.WithMessage("streaming not supported")
	}

	events, unsubscribe := h.svc.Subscribe(sessionID)
	defer unsubscribe()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, open := <-events:
			if !open {
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
