package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bugtrack/internal/repository"
)

// LoginPage отображает форму входа
func (h *Handler) LoginPage(c echo.Context) error {
	return h.render(c, http.StatusOK, "login.html", nil)
}

// Login проверяет учетные данные и открывает сессию
func (h *Handler) Login(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	h.logger.Info("Login: попытка входа", zap.String("username", username))

	user, err := h.store.AuthenticateUser(c.Request().Context(), username, password)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) {
			h.logger.Warn("Login: неверные учетные данные", zap.String("username", username))
			return h.render(c, http.StatusOK, "login.html", map[string]any{
				"FlashLevel":   "danger",
				"FlashMessage": "Invalid credentials",
			})
		}
		h.logger.Error("Login: ошибка аутентификации", zap.Error(err), zap.String("username", username))
		return h.redirectWithFlash(c, "/login", "error", "An error occurred. Please try again.")
	}

	token, err := h.store.CreateSession(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Login: ошибка создания сессии", zap.Error(err), zap.Int64("user_id", user.ID))
		return h.redirectWithFlash(c, "/login", "error", "An error occurred. Please try again.")
	}

	h.setSessionCookie(c, token)
	h.logger.Info("Login: вход выполнен", zap.String("username", username), zap.Int64("user_id", user.ID))
	return h.redirectWithFlash(c, "/dashboard", "success", "Logged in successfully.")
}

// RegisterPage отображает форму регистрации
func (h *Handler) RegisterPage(c echo.Context) error {
	return h.render(c, http.StatusOK, "register.html", nil)
}

// Register создает нового пользователя
func (h *Handler) Register(c echo.Context) error {
	name := c.FormValue("name")
	username := c.FormValue("username")
	email := c.FormValue("email")
	password := c.FormValue("password")

	h.logger.Info("Register: регистрация пользователя", zap.String("username", username), zap.String("email", email))

	if username == "" || email == "" || password == "" {
		return h.render(c, http.StatusOK, "register.html", map[string]any{
			"FlashLevel":   "error",
			"FlashMessage": "Username, email and password are required.",
		})
	}

	_, err := h.store.CreateUser(c.Request().Context(), name, username, email, password)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			h.logger.Warn("Register: пользователь уже существует", zap.String("username", username))
			return h.redirectWithFlash(c, "/register", "danger", "User with this username or email already exists.")
		}
		h.logger.Error("Register: ошибка создания пользователя", zap.Error(err), zap.String("username", username))
		return h.redirectWithFlash(c, "/register", "error", "An error occurred. Please try again.")
	}

	h.logger.Info("Register: пользователь создан", zap.String("username", username))
	return h.redirectWithFlash(c, "/login", "success", "Registration successful. Please log in.")
}

// Logout закрывает сессию текущего пользователя
func (h *Handler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(h.session.CookieName); err == nil && cookie.Value != "" {
		if err := h.store.DeleteSession(c.Request().Context(), cookie.Value); err != nil {
			h.logger.Error("Logout: ошибка удаления сессии", zap.Error(err))
		}
	}

	h.clearSessionCookie(c)
	return h.redirectWithFlash(c, "/login", "info", "Logged out successfully.")
}
