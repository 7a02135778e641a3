package ai

// suggestionEntry связывает ключевое слово с рекомендацией по исправлению
type suggestionEntry struct {
	Keyword    string
	Suggestion string
}

// Таблица рекомендаций: порядок определяет приоритет совпадения
var fixSuggestions = []suggestionEntry{
	{"crash", "Wrap in try/except, validate inputs."},
	{"data loss", "Use transactions, implement backups."},
	{"error", "Check stack trace, handle exceptions."},
	{"slow", "Optimize code, add caching."},
	{"typo", "Fix typo in UI or messages."},
	{"ui", "Check front-end code, responsiveness."},
	{"login", "Ensure secure authentication."},
	{"database", "Check queries, indexes, transactions."},
	{"button", "Add onclick handler or fix non-working button"},
	{"modal", "Add close button or fix modal issues"},
	{"form", "Add validation, submit button, and default values"},
	{"css", "Fix class inconsistencies or hard-coded colors"},
	{"image", "Fix broken paths, add alt text, lazy loading"},
	{"network", "Add retries, timeouts, and validation"},
	{"security", "Add input sanitization, encryption, and CSRF/XSS prevention"},
	{"async", "Add missing await for async calls"},
}

// categoryEntry связывает ключевое слово с категорией бага
type categoryEntry struct {
	Keyword  string
	Category string
}

// Таблица категорий: порядок определяет приоритет совпадения
var categoryMap = []categoryEntry{
	{"crash", "Backend"},
	{"data loss", "Backend"},
	{"error", "Backend"},
	{"slow", "Performance"},
	{"typo", "Frontend"},
	{"ui", "Frontend"},
	{"login", "Frontend"},
	{"database", "Database"},
	{"button", "Frontend"},
	{"modal", "Frontend"},
	{"form", "Frontend"},
	{"css", "Frontend"},
	{"image", "Frontend"},
	{"network", "Backend"},
	{"security", "Security"},
	{"async", "Backend"},
}

// Ключевые слова, повышающие серьезность бага
var (
	severityHigh   = []string{"crash", "data loss", "security"}
	severityMedium = []string{"error", "slow", "database", "login", "button", "network"}
)

// templateEntry связывает триггер в описании с готовым текстом исправления
type templateEntry struct {
	Trigger  string
	Template string
}

// Таблица шаблонных исправлений: триггер ищется в описании бага,
// шаблон добавляется в заметки (код при этом не меняется)
var autoFixTemplates = []templateEntry{
	{"TODO placeholders", "code = code.replace('TODO_BUG', 'FIXED_PART')"},
	{"Print/if/for formatting", "# Standardize print(), if, for loops"},
	{"Missing imports", "# Add missing import statements"},
	{"Unused variables", "# Remove unused variables"},
	{"Indentation errors", "# Fix indentation automatically"},
	{"Missing return statements", "# Add default return statement"},
	{"Exception handling", "try:\n    # code\nexcept Exception as e:\n    print(e)"},
	{"Deprecated function usage", "# Replace deprecated function"},
	{"Division by zero", "# Add conditional check before division"},
	{"Null/None checks", "# Add None checks"},
	{"List/dict key existence", "# Check key/index existence"},
	{"File path/file not found", "# Check file existence"},
	{"Network requests timeout", "# Add retry & timeout"},
	{"Hard-coded configuration", "# Move to config/env"},
	{"Button missing click handler", "# Add default onclick handler"},
	{"Disabled button", "# Enable button automatically"},
	{"Button tooltip missing", "# Add default tooltip"},
	{"Duplicate button ID", "# Ensure unique button IDs"},
	{"Modal missing close button", "# Add close button"},
	{"Form missing submit", "# Add submit button"},
	{"Input validation missing", "# Add regex/length validation"},
	{"CSS class inconsistency", "# Standardize CSS classes"},
	{"Image path broken", "# Fix image path"},
	{"Missing alt attribute", "# Add alt text"},
	{"XSS vulnerability", "# Escape user input"},
	{"SQL injection prevention", "# Parameterize queries"},
	{"Password encryption missing", "# Hash/salt passwords"},
	{"Authentication session expiry", "# Add auto session expiry"},
	{"Logging missing timestamp", "# Add timestamp to logs"},
	{"Async missing await", "# Add await for async calls"},
}
