package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bugtrack/internal/models"
)

// CreateProject создает новый проект
func (r *Repository) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}

	project := &models.Project{
		Name:        name,
		Description: description,
	}

	query := `
        INSERT INTO projects (name, description)
        VALUES ($1, $2)
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, query, name, description).Scan(&project.ID, &project.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// ListProjects возвращает все проекты, новые первыми
func (r *Repository) ListProjects(ctx context.Context) ([]models.Project, error) {
	query := `
        SELECT id, name, description, created_at
        FROM projects
        ORDER BY created_at DESC
    `

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// GetProject получает проект по ID
func (r *Repository) GetProject(ctx context.Context, projectID int64) (*models.Project, error) {
	query := `SELECT id, name, description, created_at FROM projects WHERE id = $1`

	var p models.Project
	err := r.pool.QueryRow(ctx, query, projectID).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &p, nil
}

// CreateTeam создает команду внутри проекта и привязывает к ней участников
// одной транзакцией
func (r *Repository) CreateTeam(ctx context.Context, projectID int64, name string, memberIDs []int64) (*models.Team, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Проект должен существовать
	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check project existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	team := &models.Team{
		Name:      name,
		ProjectID: projectID,
	}

	err = tx.QueryRow(ctx, `INSERT INTO teams (name, project_id) VALUES ($1, $2) RETURNING id`, name, projectID).
		Scan(&team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	if len(memberIDs) > 0 {
		memberRows := make([][]interface{}, 0, len(memberIDs))
		for _, userID := range memberIDs {
			memberRows = append(memberRows, []interface{}{team.ID, userID})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"team_members"},
			[]string{"team_id", "user_id"},
			pgx.CopyFromRows(memberRows),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to copy team members: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}

// GetTeam получает команду по ID со списком участников
func (r *Repository) GetTeam(ctx context.Context, teamID int64) (*models.Team, error) {
	var team models.Team
	err := r.pool.QueryRow(ctx, `SELECT id, name, project_id FROM teams WHERE id = $1`, teamID).
		Scan(&team.ID, &team.Name, &team.ProjectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	query := `
        SELECT u.id, u.name, u.username, u.email, u.password_hash, u.role, u.created_at
        FROM users u
        JOIN team_members tm ON u.id = tm.user_id
        WHERE tm.team_id = $1
        ORDER BY u.username
    `
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		team.Members = append(team.Members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team members: %w", err)
	}

	return &team, nil
}

// ListTeams возвращает команды проекта с участниками
func (r *Repository) ListTeams(ctx context.Context, projectID int64) ([]models.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, project_id FROM teams WHERE project_id = $1 ORDER BY name`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.ProjectID); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	for i := range teams {
		full, err := r.GetTeam(ctx, teams[i].ID)
		if err != nil {
			return nil, err
		}
		teams[i].Members = full.Members
	}

	return teams, nil
}
