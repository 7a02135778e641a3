package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Dashboard показывает последние баги по времени создания
func (h *Handler) Dashboard(c echo.Context) error {
	bugs, err := h.store.ListRecentBugs(c.Request().Context(), recentBugsLimit)
	if err != nil {
		h.logger.Error("Dashboard: ошибка получения багов", zap.Error(err))
		return h.redirectWithFlash(c, "/login", "error", "An error occurred while loading the dashboard.")
	}

	return h.render(c, http.StatusOK, "dashboard.html", map[string]any{
		"Bugs": bugs,
	})
}
