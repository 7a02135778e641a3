// models/models.go
package models

import "time"

// User представляет зарегистрированного пользователя
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin сообщает, обладает ли пользователь правами администратора
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Project представляет проект, к которому привязываются баги и команды
type Project struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Bug представляет запись о дефекте с жизненным циклом статуса
type Bug struct {
	ID           int64     `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Severity     string    `json:"severity" db:"severity"`
	Category     string    `json:"category" db:"category"`
	Status       string    `json:"status" db:"status"`
	OriginalCode string    `json:"original_code" db:"original_code"`
	FixedCode    string    `json:"fixed_code" db:"fixed_code"`
	AINotes      string    `json:"ai_notes" db:"ai_notes"`
	ProjectID    *int64    `json:"project_id,omitempty" db:"project_id"`
	CreatedBy    *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DownloadCode возвращает исправленный код, если он есть, иначе исходный
func (b *Bug) DownloadCode() string {
	if b.FixedCode != "" {
		return b.FixedCode
	}
	return b.OriginalCode
}

// BugHistory представляет запись журнала смены статусов бага (только добавление)
type BugHistory struct {
	ID        int64     `json:"id" db:"id"`
	BugID     int64     `json:"bug_id" db:"bug_id"`
	OldStatus string    `json:"old_status" db:"old_status"`
	NewStatus string    `json:"new_status" db:"new_status"`
	ChangedAt time.Time `json:"changed_at" db:"changed_at"`
}

// Comment представляет комментарий пользователя к багу
type Comment struct {
	ID         int64     `json:"id" db:"id"`
	Content    string    `json:"content" db:"content"`
	BugID      int64     `json:"bug_id" db:"bug_id"`
	AuthorID   int64     `json:"author_id" db:"author_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Team представляет команду внутри проекта с участниками
type Team struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	ProjectID int64  `json:"project_id" db:"project_id"`
	Members   []User `json:"members" db:"-"`
}

// AnalysisLog представляет одну запись журнала запусков AI-анализа
type AnalysisLog struct {
	ID          int64     `json:"id" db:"id"`
	BugID       *int64    `json:"bug_id,omitempty" db:"bug_id"`
	Description string    `json:"description" db:"description"`
	Severity    string    `json:"severity" db:"severity"`
	Category    string    `json:"category" db:"category"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Константы статусов бага
const (
	StatusOpen   = "Open"
	StatusFixed  = "Fixed"
	StatusClosed = "Closed"
)

// Константы серьезности бага
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// Константы ролей пользователя
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)
