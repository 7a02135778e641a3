package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bugtrack/internal/config"
	"bugtrack/internal/models"
)

// Коды ошибок для JSON API
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Ключ контекста echo, под которым лежит текущий пользователь
const userContextKey = "current_user"

// flashCookie хранит одноразовое сообщение для следующей страницы
const flashCookie = "bugtrack_flash"

// Store описывает операции хранилища, нужные обработчикам.
// Реализуется *repository.Repository.
type Store interface {
	CreateUser(ctx context.Context, name, username, email, password string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	CreateSession(ctx context.Context, userID int64) (string, error)
	GetSessionUser(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error

	CreateProject(ctx context.Context, name, description string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateTeam(ctx context.Context, projectID int64, name string, memberIDs []int64) (*models.Team, error)
	ListTeams(ctx context.Context, projectID int64) ([]models.Team, error)

	CreateBug(ctx context.Context, bug models.Bug, logEntry *models.AnalysisLog) (*models.Bug, error)
	GetBugForUser(ctx context.Context, bugID int64, user *models.User) (*models.Bug, error)
	ListBugs(ctx context.Context, user *models.User) ([]models.Bug, error)
	ListRecentBugs(ctx context.Context, limit int) ([]models.Bug, error)
	ApplyAIFix(ctx context.Context, bugID int64, fixedCode, notes, newStatus string, user *models.User) (*models.Bug, error)
	ListHistory(ctx context.Context, bugID int64) ([]models.BugHistory, error)
	AddComment(ctx context.Context, bugID, authorID int64, content string) (*models.Comment, error)
	ListComments(ctx context.Context, bugID int64) ([]models.Comment, error)
	LogAnalysis(ctx context.Context, entry models.AnalysisLog) error
}

type Handler struct {
	store   Store
	logger  *zap.Logger
	session config.SessionConfig
}

// New создает новый экземпляр обработчика
func New(store Store, logger *zap.Logger, session config.SessionConfig) *Handler {
	return &Handler{
		store:   store,
		logger:  logger,
		session: session,
	}
}

// ErrorResponse представляет структуру ошибки JSON API
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newErrorResponse создает стандартный ответ с ошибкой
func newErrorResponse(code, message string) ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	return resp
}

// currentUser достает пользователя, положенного в контекст middleware-ом
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// resolveUser ищет пользователя по cookie сессии; отсутствие сессии не ошибка
func (h *Handler) resolveUser(c echo.Context) *models.User {
	cookie, err := c.Cookie(h.session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := h.store.GetSessionUser(c.Request().Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

// RequireUser перенаправляет неавторизованных пользователей на страницу входа
func (h *Handler) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := h.resolveUser(c)
		if user == nil {
			h.setFlash(c, "error", "Please log in to continue.")
			return c.Redirect(http.StatusFound, "/login")
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireUserAPI отвечает 401 JSON вместо редиректа (для API-маршрутов)
func (h *Handler) RequireUserAPI(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := h.resolveUser(c)
		if user == nil {
			return c.JSON(http.StatusUnauthorized, newErrorResponse(ErrCodeUnauthorized, "authentication required"))
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// setFlash кладет одноразовое сообщение в cookie для следующего запроса
func (h *Handler) setFlash(c echo.Context, level, message string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(level + "|" + message),
		Path:     "/",
		HttpOnly: true,
	})
}

// popFlash читает и сразу гасит flash-сообщение
func (h *Handler) popFlash(c echo.Context) (level, message string) {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return "", ""
	}

	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", ""
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] == '|' {
			return raw[:i], raw[i+1:]
		}
	}
	return "info", raw
}

// redirectWithFlash объединяет установку flash-сообщения и редирект
func (h *Handler) redirectWithFlash(c echo.Context, target, level, message string) error {
	h.setFlash(c, level, message)
	return c.Redirect(http.StatusFound, target)
}

// setSessionCookie выставляет cookie с токеном сессии
func (h *Handler) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     h.session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(h.session.TTLHours) * time.Hour),
		HttpOnly: true,
		Secure:   h.session.Secure,
	})
}

// clearSessionCookie гасит cookie сессии
func (h *Handler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// render подмешивает текущего пользователя и flash-сообщение в данные шаблона
func (h *Handler) render(c echo.Context, status int, template string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["User"]; !ok {
		data["User"] = currentUser(c)
	}
	if _, ok := data["FlashMessage"]; !ok {
		level, message := h.popFlash(c)
		data["FlashLevel"] = level
		data["FlashMessage"] = message
	}
	return c.Render(status, template, data)
}

// RegisterRoutes регистрирует все маршруты приложения
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Сессии
	e.GET("/login", h.LoginPage)
	e.POST("/login", h.Login)
	e.GET("/register", h.RegisterPage)
	e.POST("/register", h.Register)
	e.GET("/logout", h.Logout, h.RequireUser)

	// Проекты
	e.GET("/", h.ListProjects, h.RequireUser)
	e.POST("/", h.CreateProject, h.RequireUser)
	e.POST("/projects/:project_id/team", h.CreateTeam, h.RequireUser)

	// Дашборд
	e.GET("/dashboard", h.Dashboard, h.RequireUser)

	// Баги
	e.GET("/report", h.ReportBugPage, h.RequireUser)
	e.POST("/report", h.ReportBug, h.RequireUser)
	e.GET("/list", h.ListBugs, h.RequireUser)
	e.GET("/:bug_id", h.BugDetail, h.RequireUser)
	e.GET("/:bug_id/ai_fix", h.AIFix, h.RequireUser)
	e.GET("/:bug_id/download", h.DownloadBugCode, h.RequireUser)
	e.POST("/:bug_id/comment", h.AddComment, h.RequireUser)

	// JSON API
	e.POST("/api/analyze_code", h.AnalyzeCode, h.RequireUserAPI)
}
