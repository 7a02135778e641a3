// repository/repository.go
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"bugtrack/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
)

type Repository struct {
	pool       *pgxpool.Pool
	bcryptCost int
	sessionTTL time.Duration
}

func New(pool *pgxpool.Pool, bcryptCost int, sessionTTL time.Duration) *Repository {
	return &Repository{
		pool:       pool,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
	}
}

// isUniqueViolation распознает нарушение уникального ограничения PostgreSQL
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateUser регистрирует нового пользователя с хешированием пароля.
// Конфликт по username или email возвращает ErrAlreadyExists.
func (r *Repository) CreateUser(ctx context.Context, name, username, email, password string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}

	query := `
        INSERT INTO users (name, username, email, password_hash, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err = r.pool.QueryRow(ctx, query, user.Name, user.Username, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// AuthenticateUser проверяет пару логин/пароль. Неизвестный логин и
// неверный пароль неразличимы для вызывающего: оба дают ErrInvalidCredentials.
func (r *Repository) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	query := `
        SELECT id, name, username, email, password_hash, role, created_at
        FROM users
        WHERE username = $1
    `

	var user models.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// GetUser получает пользователя по внутреннему ID
func (r *Repository) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	query := `
        SELECT id, name, username, email, password_hash, role, created_at
        FROM users
        WHERE id = $1
    `

	var user models.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// hashToken возвращает hex-представление SHA-256 от токена сессии.
// В базе хранится только хеш, сырой токен живет в cookie клиента.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateSession выпускает новый токен сессии для пользователя
func (r *Repository) CreateSession(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	expiresAt := time.Now().Add(r.sessionTTL)

	query := `INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, query, hashToken(token), userID, expiresAt)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return token, nil
}

// GetSessionUser возвращает пользователя по действующему токену сессии.
// Просроченный или неизвестный токен дает ErrNotFound.
func (r *Repository) GetSessionUser(ctx context.Context, token string) (*models.User, error) {
	query := `
        SELECT u.id, u.name, u.username, u.email, u.password_hash, u.role, u.created_at
        FROM sessions s
        JOIN users u ON u.id = s.user_id
        WHERE s.token_hash = $1 AND s.expires_at > NOW()
    `

	var user models.User
	err := r.pool.QueryRow(ctx, query, hashToken(token)).Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session user: %w", err)
	}

	return &user, nil
}

// DeleteSession удаляет сессию по токену (идемпотентно)
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
