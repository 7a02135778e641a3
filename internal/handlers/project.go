package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bugtrack/internal/repository"
)

// ListProjects отображает список проектов с формой создания
func (h *Handler) ListProjects(c echo.Context) error {
	projects, err := h.store.ListProjects(c.Request().Context())
	if err != nil {
		h.logger.Error("ListProjects: ошибка получения проектов", zap.Error(err))
		return h.redirectWithFlash(c, "/dashboard", "error", "An error occurred while loading projects.")
	}

	return h.render(c, http.StatusOK, "projects.html", map[string]any{
		"Projects": projects,
	})
}

// CreateProject создает новый проект
func (h *Handler) CreateProject(c echo.Context) error {
	name := c.FormValue("name")
	description := c.FormValue("description")

	h.logger.Info("CreateProject: создание проекта", zap.String("name", name))

	if name == "" {
		projects, _ := h.store.ListProjects(c.Request().Context())
		return h.render(c, http.StatusOK, "projects.html", map[string]any{
			"FlashLevel":   "error",
			"FlashMessage": "Project name is required.",
			"Projects":     projects,
		})
	}

	if _, err := h.store.CreateProject(c.Request().Context(), name, description); err != nil {
		h.logger.Error("CreateProject: ошибка создания проекта", zap.Error(err), zap.String("name", name))
		return h.redirectWithFlash(c, "/", "error", "An error occurred while creating the project.")
	}

	return h.redirectWithFlash(c, "/", "success", "Project created successfully.")
}

// CreateTeam создает команду для проекта и привязывает участников
func (h *Handler) CreateTeam(c echo.Context) error {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		return h.redirectWithFlash(c, "/", "error", "Project not found.")
	}

	name := c.FormValue("name")
	h.logger.Info("CreateTeam: создание команды", zap.Int64("project_id", projectID), zap.String("name", name))

	if name == "" {
		return h.redirectWithFlash(c, "/", "error", "Team name is required.")
	}

	params, err := c.FormParams()
	if err != nil {
		return h.redirectWithFlash(c, "/", "error", "An error occurred while creating the team.")
	}

	var memberIDs []int64
	for _, raw := range params["member_ids"] {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return h.redirectWithFlash(c, "/", "error", "Invalid team member id.")
		}
		memberIDs = append(memberIDs, userID)
	}

	if _, err := h.store.CreateTeam(c.Request().Context(), projectID, name, memberIDs); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return h.redirectWithFlash(c, "/", "error", "Project not found.")
		}
		h.logger.Error("CreateTeam: ошибка создания команды", zap.Error(err), zap.Int64("project_id", projectID))
		return h.redirectWithFlash(c, "/", "error", "An error occurred while creating the team.")
	}

	return h.redirectWithFlash(c, "/", "success", "Team created successfully.")
}
