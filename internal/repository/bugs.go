package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bugtrack/internal/models"
)

const bugColumns = `id, title, description, severity, category, status,
        original_code, fixed_code, ai_notes, project_id, created_by, created_at`

func scanBug(row pgx.Row) (*models.Bug, error) {
	var bug models.Bug
	err := row.Scan(
		&bug.ID, &bug.Title, &bug.Description, &bug.Severity, &bug.Category, &bug.Status,
		&bug.OriginalCode, &bug.FixedCode, &bug.AINotes, &bug.ProjectID, &bug.CreatedBy, &bug.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bug, nil
}

// CreateBug сохраняет баг вместе с результатами AI-анализа одной транзакцией.
// Запись в журнал анализа (если передана) попадает в ту же транзакцию, чтобы
// не оставалось окна, в котором баг существует без AI-полей.
func (r *Repository) CreateBug(ctx context.Context, bug models.Bug, logEntry *models.AnalysisLog) (*models.Bug, error) {
	if bug.Title == "" {
		return nil, ErrInvalidInput
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO bugs (title, description, severity, category, status,
                          original_code, fixed_code, ai_notes, project_id, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at
    `
	err = tx.QueryRow(ctx, query,
		bug.Title, bug.Description, bug.Severity, bug.Category, bug.Status,
		bug.OriginalCode, bug.FixedCode, bug.AINotes, bug.ProjectID, bug.CreatedBy,
	).Scan(&bug.ID, &bug.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create bug: %w", err)
	}

	if logEntry != nil {
		logQuery := `
            INSERT INTO analysis_log (bug_id, description, severity, category, notes)
            VALUES ($1, $2, $3, $4, $5)
        `
		_, err = tx.Exec(ctx, logQuery, bug.ID, logEntry.Description, logEntry.Severity, logEntry.Category, logEntry.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to log analysis: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &bug, nil
}

// bugAccessible проверяет право владельца-или-администратора
func bugAccessible(bug *models.Bug, user *models.User) bool {
	if user.IsAdmin() {
		return true
	}
	return bug.CreatedBy != nil && *bug.CreatedBy == user.ID
}

// GetBugForUser получает баг по ID с проверкой доступа: читать баг может
// только его автор или администратор, иначе ErrPermissionDenied.
func (r *Repository) GetBugForUser(ctx context.Context, bugID int64, user *models.User) (*models.Bug, error) {
	query := `SELECT ` + bugColumns + ` FROM bugs WHERE id = $1`

	bug, err := scanBug(r.pool.QueryRow(ctx, query, bugID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bug: %w", err)
	}

	if !bugAccessible(bug, user) {
		return nil, ErrPermissionDenied
	}

	return bug, nil
}

// ListBugs возвращает все баги для администратора и только собственные
// для обычного пользователя
func (r *Repository) ListBugs(ctx context.Context, user *models.User) ([]models.Bug, error) {
	query := `SELECT ` + bugColumns + ` FROM bugs ORDER BY created_at DESC`
	args := []any{}
	if !user.IsAdmin() {
		query = `SELECT ` + bugColumns + ` FROM bugs WHERE created_by = $1 ORDER BY created_at DESC`
		args = append(args, user.ID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bugs: %w", err)
	}
	defer rows.Close()

	return collectBugs(rows)
}

// ListRecentBugs возвращает последние limit багов по времени создания
func (r *Repository) ListRecentBugs(ctx context.Context, limit int) ([]models.Bug, error) {
	query := `SELECT ` + bugColumns + ` FROM bugs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bugs: %w", err)
	}
	defer rows.Close()

	return collectBugs(rows)
}

func collectBugs(rows pgx.Rows) ([]models.Bug, error) {
	var bugs []models.Bug
	for rows.Next() {
		bug, err := scanBug(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bug: %w", err)
		}
		bugs = append(bugs, *bug)
	}
	return bugs, rows.Err()
}

// ApplyAIFix записывает результат AI-исправления и переводит баг в новый
// статус. Обновление полей, запись в журнал статусов и журнал анализа
// выполняются одной транзакцией. Доступ проверяется внутри транзакции.
func (r *Repository) ApplyAIFix(ctx context.Context, bugID int64, fixedCode, notes, newStatus string, user *models.User) (*models.Bug, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `SELECT ` + bugColumns + ` FROM bugs WHERE id = $1 FOR UPDATE`
	bug, err := scanBug(tx.QueryRow(ctx, lockQuery, bugID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock bug: %w", err)
	}

	if !bugAccessible(bug, user) {
		return nil, ErrPermissionDenied
	}

	oldStatus := bug.Status

	updateQuery := `
        UPDATE bugs
        SET fixed_code = $1, ai_notes = $2, status = $3
        WHERE id = $4
    `
	_, err = tx.Exec(ctx, updateQuery, fixedCode, notes, newStatus, bugID)
	if err != nil {
		return nil, fmt.Errorf("failed to update bug fix fields: %w", err)
	}

	if oldStatus != newStatus {
		historyQuery := `INSERT INTO bug_history (bug_id, old_status, new_status) VALUES ($1, $2, $3)`
		if _, err = tx.Exec(ctx, historyQuery, bugID, oldStatus, newStatus); err != nil {
			return nil, fmt.Errorf("failed to append bug history: %w", err)
		}
	}

	logQuery := `
        INSERT INTO analysis_log (bug_id, description, severity, category, notes)
        VALUES ($1, $2, $3, $4, $5)
    `
	if _, err = tx.Exec(ctx, logQuery, bugID, bug.Description, bug.Severity, bug.Category, notes); err != nil {
		return nil, fmt.Errorf("failed to log analysis: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	bug.FixedCode = fixedCode
	bug.AINotes = notes
	bug.Status = newStatus

	return bug, nil
}

// ListHistory возвращает журнал смен статусов бага в порядке записи
func (r *Repository) ListHistory(ctx context.Context, bugID int64) ([]models.BugHistory, error) {
	query := `
        SELECT id, bug_id, old_status, new_status, changed_at
        FROM bug_history
        WHERE bug_id = $1
        ORDER BY changed_at
    `

	rows, err := r.pool.Query(ctx, query, bugID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bug history: %w", err)
	}
	defer rows.Close()

	var history []models.BugHistory
	for rows.Next() {
		var h models.BugHistory
		if err := rows.Scan(&h.ID, &h.BugID, &h.OldStatus, &h.NewStatus, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bug history: %w", err)
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// AddComment добавляет комментарий к багу
func (r *Repository) AddComment(ctx context.Context, bugID, authorID int64, content string) (*models.Comment, error) {
	if content == "" {
		return nil, ErrInvalidInput
	}

	comment := &models.Comment{
		Content:  content,
		BugID:    bugID,
		AuthorID: authorID,
	}

	query := `
        INSERT INTO comments (content, bug_id, author_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, query, content, bugID, authorID).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	return comment, nil
}

// ListComments возвращает комментарии бага с именами авторов
func (r *Repository) ListComments(ctx context.Context, bugID int64) ([]models.Comment, error) {
	query := `
        SELECT c.id, c.content, c.bug_id, c.author_id, u.username, c.created_at
        FROM comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.bug_id = $1
        ORDER BY c.created_at
    `

	rows, err := r.pool.Query(ctx, query, bugID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.BugID, &c.AuthorID, &c.AuthorName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

// LogAnalysis пишет запись о запуске анализа, не привязанном к багу
// (API-endpoint анализа кода)
func (r *Repository) LogAnalysis(ctx context.Context, entry models.AnalysisLog) error {
	query := `
        INSERT INTO analysis_log (bug_id, description, severity, category, notes)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.pool.Exec(ctx, query, entry.BugID, entry.Description, entry.Severity, entry.Category, entry.Notes)
	if err != nil {
		return fmt.Errorf("failed to log analysis: %w", err)
	}
	return nil
}
