package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bugtrack/internal/ai"
	"bugtrack/internal/models"
	"bugtrack/internal/repository"
)

// recentBugsLimit задает размер выборки для дашборда
const recentBugsLimit = 20

// parseBugID извлекает числовой ID бага из пути
func parseBugID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("bug_id"), 10, 64)
}

// bugURL возвращает путь страницы бага
func bugURL(bugID int64) string {
	return fmt.Sprintf("/%d", bugID)
}

// analyzeForReport запускает классификатор и патчер для нового бага.
// Паника внутри движка не должна мешать сохранению бага, поэтому она
// перехватывается, а вызывающий получает ok=false и сохраняет баг без
// AI-полей.
func analyzeForReport(description, code string) (res ai.Result, fixedCode, notes string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	res = ai.Classify(description)
	if code != "" {
		fixedCode, notes = ai.Patch(description, code)
	}
	ok = true
	return res, fixedCode, notes, ok
}

// ReportBugPage отображает форму создания бага со списком проектов
func (h *Handler) ReportBugPage(c echo.Context) error {
	projects, err := h.store.ListProjects(c.Request().Context())
	if err != nil {
		h.logger.Error("ReportBugPage: ошибка получения проектов", zap.Error(err))
		return h.redirectWithFlash(c, "/dashboard", "error", "An error occurred while loading the report form.")
	}

	return h.render(c, http.StatusOK, "report_bug.html", map[string]any{
		"Projects": projects,
	})
}

// ReportBug создает новый баг. Если приложен код, классификатор и патчер
// запускаются сразу, и их результат сохраняется вместе с багом в одной
// транзакции.
func (h *Handler) ReportBug(c echo.Context) error {
	user := currentUser(c)

	title := c.FormValue("title")
	description := c.FormValue("description")
	code := c.FormValue("code")

	h.logger.Info("ReportBug: создание бага", zap.String("title", title), zap.Int64("user_id", user.ID))

	if title == "" || description == "" {
		projects, _ := h.store.ListProjects(c.Request().Context())
		return h.render(c, http.StatusOK, "report_bug.html", map[string]any{
			"FlashLevel":   "error",
			"FlashMessage": "Title and description are required.",
			"Projects":     projects,
		})
	}

	bug := models.Bug{
		Title:        title,
		Description:  description,
		Severity:     models.SeverityMedium,
		Category:     "General",
		Status:       models.StatusOpen,
		OriginalCode: code,
		CreatedBy:    &user.ID,
	}

	if raw := c.FormValue("project_id"); raw != "" {
		if projectID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			bug.ProjectID = &projectID
		}
	}

	var logEntry *models.AnalysisLog
	res, fixedCode, notes, ok := analyzeForReport(description, code)
	if ok {
		bug.Severity = res.Severity
		bug.Category = res.Category
		bug.FixedCode = fixedCode
		bug.AINotes = notes
		logEntry = &models.AnalysisLog{
			Description: description,
			Severity:    res.Severity,
			Category:    res.Category,
			Notes:       notes,
		}
	} else {
		// Баг сохраняется и без результатов анализа
		h.logger.Error("ReportBug: сбой AI-анализа, баг будет сохранен без AI-полей",
			zap.String("title", title))
	}

	created, err := h.store.CreateBug(c.Request().Context(), bug, logEntry)
	if err != nil {
		h.logger.Error("ReportBug: ошибка сохранения бага", zap.Error(err), zap.String("title", title))
		return h.redirectWithFlash(c, "/dashboard", "error", "An error occurred while reporting the bug.")
	}

	h.logger.Info("ReportBug: баг создан",
		zap.Int64("bug_id", created.ID),
		zap.String("severity", created.Severity),
		zap.String("category", created.Category))
	return h.redirectWithFlash(c, bugURL(created.ID), "success", "Bug reported successfully.")
}

// BugDetail отображает страницу бага с комментариями и журналом статусов
func (h *Handler) BugDetail(c echo.Context) error {
	user := currentUser(c)

	bugID, err := parseBugID(c)
	if err != nil {
		return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
	}

	bug, err := h.store.GetBugForUser(c.Request().Context(), bugID, user)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
		case errors.Is(err, repository.ErrPermissionDenied):
			h.logger.Warn("BugDetail: доступ запрещен", zap.Int64("bug_id", bugID), zap.Int64("user_id", user.ID))
			return h.redirectWithFlash(c, "/list", "error", "You don't have permission to view this bug.")
		}
		h.logger.Error("BugDetail: ошибка получения бага", zap.Error(err), zap.Int64("bug_id", bugID))
		return h.redirectWithFlash(c, "/list", "error", "An error occurred while loading the bug details.")
	}

	comments, err := h.store.ListComments(c.Request().Context(), bugID)
	if err != nil {
		h.logger.Error("BugDetail: ошибка получения комментариев", zap.Error(err), zap.Int64("bug_id", bugID))
	}
	history, err := h.store.ListHistory(c.Request().Context(), bugID)
	if err != nil {
		h.logger.Error("BugDetail: ошибка получения журнала статусов", zap.Error(err), zap.Int64("bug_id", bugID))
	}

	return h.render(c, http.StatusOK, "bug_detail.html", map[string]any{
		"Bug":      bug,
		"Comments": comments,
		"History":  history,
	})
}

// ListBugs показывает все баги администратору и только собственные остальным
func (h *Handler) ListBugs(c echo.Context) error {
	user := currentUser(c)

	bugs, err := h.store.ListBugs(c.Request().Context(), user)
	if err != nil {
		h.logger.Error("ListBugs: ошибка получения багов", zap.Error(err), zap.Int64("user_id", user.ID))
		return h.redirectWithFlash(c, "/dashboard", "error", "An error occurred while loading bugs.")
	}

	return h.render(c, http.StatusOK, "bug_list.html", map[string]any{
		"Bugs": bugs,
	})
}

// AIFix повторно запускает патчер по сохраненному коду бага, записывает
// результат и переводит баг в статус Fixed
func (h *Handler) AIFix(c echo.Context) error {
	user := currentUser(c)

	bugID, err := parseBugID(c)
	if err != nil {
		return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
	}

	bug, err := h.store.GetBugForUser(c.Request().Context(), bugID, user)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
		case errors.Is(err, repository.ErrPermissionDenied):
			return h.redirectWithFlash(c, "/list", "error", "You don't have permission to modify this bug.")
		}
		h.logger.Error("AIFix: ошибка получения бага", zap.Error(err), zap.Int64("bug_id", bugID))
		return h.redirectWithFlash(c, "/list", "error", "An error occurred during AI analysis.")
	}

	if bug.OriginalCode == "" {
		return h.redirectWithFlash(c, bugURL(bugID), "warning", "No code available to analyze.")
	}

	_, fixedCode, notes, ok := analyzeForReport(bug.Description, bug.OriginalCode)
	if !ok {
		h.logger.Error("AIFix: сбой AI-анализа", zap.Int64("bug_id", bugID))
		return h.redirectWithFlash(c, bugURL(bugID), "error", "An error occurred during AI analysis.")
	}

	if _, err := h.store.ApplyAIFix(c.Request().Context(), bugID, fixedCode, notes, models.StatusFixed, user); err != nil {
		h.logger.Error("AIFix: ошибка сохранения результата", zap.Error(err), zap.Int64("bug_id", bugID))
		return h.redirectWithFlash(c, bugURL(bugID), "error", "An error occurred during AI analysis.")
	}

	h.logger.Info("AIFix: исправление применено", zap.Int64("bug_id", bugID))
	return h.redirectWithFlash(c, bugURL(bugID), "success", "AI attempted a fix for this bug.")
}

// DownloadBugCode отдает исправленный (или исходный) код бага файлом
func (h *Handler) DownloadBugCode(c echo.Context) error {
	user := currentUser(c)

	bugID, err := parseBugID(c)
	if err != nil {
		return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
	}

	bug, err := h.store.GetBugForUser(c.Request().Context(), bugID, user)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
		case errors.Is(err, repository.ErrPermissionDenied):
			return h.redirectWithFlash(c, "/list", "error", "You don't have permission to download this code.")
		}
		h.logger.Error("DownloadBugCode: ошибка получения бага", zap.Error(err), zap.Int64("bug_id", bugID))
		return h.redirectWithFlash(c, "/list", "error", "An error occurred while downloading the code.")
	}

	code := bug.DownloadCode()
	if code == "" {
		return h.redirectWithFlash(c, bugURL(bugID), "warning", "No code available to download.")
	}

	filename := fmt.Sprintf("bug_%d_%s.py", bug.ID, strings.ReplaceAll(bug.Title, " ", "_"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "text/x-python", []byte(code))
}

// AddComment добавляет комментарий к багу
func (h *Handler) AddComment(c echo.Context) error {
	user := currentUser(c)

	bugID, err := parseBugID(c)
	if err != nil {
		return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
	}

	// Комментировать можно только доступный пользователю баг
	if _, err := h.store.GetBugForUser(c.Request().Context(), bugID, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return h.redirectWithFlash(c, "/list", "error", "Bug not found.")
		case errors.Is(err, repository.ErrPermissionDenied):
			return h.redirectWithFlash(c, "/list", "error", "You don't have permission to comment on this bug.")
		}
		h.logger.Error("AddComment: ошибка получения бага", zap.Error(err), zap.Int64("bug_id", bugID))
		return h.redirectWithFlash(c, "/list", "error", "An error occurred while adding the comment.")
	}

	if _, err := h.store.AddComment(c.Request().Context(), bugID, user.ID, c.FormValue("content")); err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			return h.redirectWithFlash(c, bugURL(bugID), "error", "Comment text is required.")
		}
		h.logger.Error("AddComment: ошибка добавления комментария", zap.Error(err), zap.Int64("bug_id", bugID))
		return h.redirectWithFlash(c, bugURL(bugID), "error", "An error occurred while adding the comment.")
	}

	return h.redirectWithFlash(c, bugURL(bugID), "success", "Comment added.")
}

// AnalyzeCode анализирует присланный код без сохранения бага.
// Единственный маршрут, отвечающий клиенту структурированной 500-ошибкой.
func (h *Handler) AnalyzeCode(c echo.Context) error {
	var req struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		h.logger.Error("AnalyzeCode: ошибка парсинга тела запроса", zap.Error(err))
		return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeValidation, "invalid request body"))
	}

	fixedCode, notes, severity, ok := safeAnalyze(req.Code, req.Description)
	if !ok {
		h.logger.Error("AnalyzeCode: сбой AI-анализа")
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"fixed_code": req.Code,
			"notes":      "Error in AI analysis",
			"error":      "AI analysis failed",
		})
	}

	// Сбой записи в журнал не мешает вернуть результат
	entry := models.AnalysisLog{
		Description: req.Description,
		Severity:    severity,
		Notes:       notes,
	}
	if err := h.store.LogAnalysis(c.Request().Context(), entry); err != nil {
		h.logger.Error("AnalyzeCode: ошибка записи в журнал анализа", zap.Error(err))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"fixed_code": fixedCode,
		"notes":      notes,
		"severity":   severity,
	})
}

// safeAnalyze оборачивает ai.Analyze перехватом паники
func safeAnalyze(code, description string) (fixedCode, notes, severity string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	fixedCode, notes, severity = ai.Analyze(code, description)
	ok = true
	return fixedCode, notes, severity, ok
}
