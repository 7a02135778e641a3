package repository

import (
	"context"
	"fmt"
)

// schema описывает реляционную схему багтрекера. Выполняется при старте
// приложения, все выражения идемпотентны.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    name          VARCHAR(120) NOT NULL DEFAULT '',
    username      VARCHAR(80)  NOT NULL UNIQUE,
    email         VARCHAR(200) NOT NULL UNIQUE,
    password_hash VARCHAR(200) NOT NULL,
    role          VARCHAR(50)  NOT NULL DEFAULT 'User',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS projects (
    id          BIGSERIAL PRIMARY KEY,
    name        VARCHAR(150) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bugs (
    id            BIGSERIAL PRIMARY KEY,
    title         VARCHAR(200) NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    severity      VARCHAR(50) NOT NULL DEFAULT 'Medium',
    category      VARCHAR(50) NOT NULL DEFAULT 'General',
    status        VARCHAR(50) NOT NULL DEFAULT 'Open',
    original_code TEXT NOT NULL DEFAULT '',
    fixed_code    TEXT NOT NULL DEFAULT '',
    ai_notes      TEXT NOT NULL DEFAULT '',
    project_id    BIGINT REFERENCES projects(id),
    created_by    BIGINT REFERENCES users(id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bugs_created_by ON bugs(created_by);
CREATE INDEX IF NOT EXISTS idx_bugs_created_at ON bugs(created_at DESC);

CREATE TABLE IF NOT EXISTS bug_history (
    id         BIGSERIAL PRIMARY KEY,
    bug_id     BIGINT NOT NULL REFERENCES bugs(id),
    old_status VARCHAR(50) NOT NULL DEFAULT '',
    new_status VARCHAR(50) NOT NULL DEFAULT '',
    changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS comments (
    id         BIGSERIAL PRIMARY KEY,
    content    TEXT NOT NULL,
    bug_id     BIGINT NOT NULL REFERENCES bugs(id),
    author_id  BIGINT NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS teams (
    id         BIGSERIAL PRIMARY KEY,
    name       VARCHAR(100) NOT NULL,
    project_id BIGINT NOT NULL REFERENCES projects(id)
);

CREATE TABLE IF NOT EXISTS team_members (
    team_id BIGINT NOT NULL REFERENCES teams(id),
    user_id BIGINT NOT NULL REFERENCES users(id),
    PRIMARY KEY (team_id, user_id)
);

CREATE TABLE IF NOT EXISTS sessions (
    id         BIGSERIAL PRIMARY KEY,
    token_hash VARCHAR(64) NOT NULL UNIQUE,
    user_id    BIGINT NOT NULL REFERENCES users(id),
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS analysis_log (
    id          BIGSERIAL PRIMARY KEY,
    bug_id      BIGINT REFERENCES bugs(id),
    description TEXT NOT NULL DEFAULT '',
    severity    VARCHAR(50) NOT NULL DEFAULT '',
    category    VARCHAR(50) NOT NULL DEFAULT '',
    notes       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate создает таблицы схемы, если их еще нет
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
