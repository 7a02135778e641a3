// Package ai реализует эвристический "AI"-движок багтрекера: классификацию
// багов по ключевым словам описания и шаблонные исправления кода. Все
// функции детерминированы, чисты и не выполняют никакого ввода-вывода.
package ai

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// NoFixAvailable возвращается вместо заметок, если ни одно правило не сработало
const NoFixAvailable = "No automated fix available."

// DefaultSuggestion возвращается, если описание не содержит известных ключевых слов
const DefaultSuggestion = "Review logs and code modules."

// Значения по умолчанию для классификатора
const (
	defaultSeverity = "Low"
	defaultCategory = "General"
)

// Result содержит итог классификации описания бага
type Result struct {
	Severity   string
	Category   string
	Suggestion string
}

// Classify определяет серьезность, категорию и рекомендацию по свободному
// описанию бага. Совпадения ищутся как сырые подстроки без токенизации:
// "login" внутри "logindatabase" считается совпадением. Это поведение
// намеренное, на него опираются остальные компоненты.
func Classify(description string) Result {
	desc := strings.ToLower(description)
	return Result{
		Severity:   predictSeverity(desc),
		Category:   detectCategory(desc),
		Suggestion: suggestFix(desc),
	}
}

// predictSeverity обходит таблицу рекомендаций в порядке объявления и
// возвращает серьезность первого ключевого слова, попавшего в один из
// бакетов. Слова вне бакетов ("typo", "ui", ...) пропускаются.
func predictSeverity(desc string) string {
	for _, e := range fixSuggestions {
		if !strings.Contains(desc, e.Keyword) {
			continue
		}
		if slices.Contains(severityHigh, e.Keyword) {
			return "High"
		}
		if slices.Contains(severityMedium, e.Keyword) {
			return "Medium"
		}
	}
	return defaultSeverity
}

func detectCategory(desc string) string {
	for _, e := range categoryMap {
		if strings.Contains(desc, e.Keyword) {
			return e.Category
		}
	}
	return defaultCategory
}

func suggestFix(desc string) string {
	for _, e := range fixSuggestions {
		if strings.Contains(desc, e.Keyword) {
			return e.Suggestion
		}
	}
	return DefaultSuggestion
}

var idAttrRe = regexp.MustCompile(`id="(.*?)"`)

// Patch применяет к коду фиксированную последовательность правил
// "условие -> замена" и собирает заметки о сработавших правилах.
// Каждое условие проверяется против текущего, уже частично переписанного
// кода, поэтому порядок правил значим. Функция никогда не завершается
// ошибкой: пустой код возвращается без изменений с заметкой-заглушкой.
func Patch(description, code string) (string, string) {
	desc := strings.ToLower(description)
	var fixes []string

	// Шаблонные правила: триггер ищется в описании, код не меняется
	for _, t := range autoFixTemplates {
		if strings.Contains(desc, strings.ToLower(t.Trigger)) {
			fixes = append(fixes, t.Template)
		}
	}

	// Замены-литералы, каждая со своим независимым условием
	if strings.Contains(code, "TODO_BUG") {
		code = strings.ReplaceAll(code, "TODO_BUG", "FIXED_PART")
		fixes = append(fixes, "Replaced TODO_BUG with FIXED_PART")
	}
	if strings.Contains(code, "print(") && !strings.Contains(code, "print (") {
		code = strings.ReplaceAll(code, "print(", "print (")
		fixes = append(fixes, "Fixed print formatting")
	}
	if strings.Contains(code, "if ") && !strings.Contains(code, ":\n") {
		code = strings.ReplaceAll(code, "if ", "if:\n    ")
		fixes = append(fixes, "Fixed if statement formatting")
	}
	if strings.Contains(code, "for ") && !strings.Contains(code, ":\n") {
		code = strings.ReplaceAll(code, "for ", "for:\n    ")
		fixes = append(fixes, "Fixed for loop formatting")
	}

	// HTML-правила для кнопок
	if strings.Contains(code, "<button") && !strings.Contains(code, "onclick") {
		code = strings.ReplaceAll(code, "<button", `<button onclick="defaultClick()"`)
		fixes = append(fixes, "Added default onclick handler")
	}
	if strings.Contains(code, "disabled") {
		code = strings.ReplaceAll(code, "disabled", "")
		fixes = append(fixes, "Enabled button automatically")
	}
	if strings.Contains(code, "<button") && !strings.Contains(code, "title=") {
		code = strings.ReplaceAll(code, "<button", `<button title="Click me"`)
		fixes = append(fixes, "Added tooltip to button")
	}

	// Дубликаты id: первое вхождение сохраняется, каждый дубликат получает
	// суффикс с позицией в списке найденных id (не счетчик повторов)
	ids := idAttrRe.FindAllStringSubmatch(code, -1)
	seen := make(map[string]bool)
	for i, m := range ids {
		id := m[1]
		if seen[id] {
			newID := fmt.Sprintf("%s_%d", id, i)
			code = replaceDuplicate(code, `id="`+id+`"`, `id="`+newID+`"`)
			fixes = append(fixes, fmt.Sprintf("Fixed duplicate button ID: %s -> %s", id, newID))
		}
		seen[id] = true
	}

	// Модальные окна и формы
	if strings.Contains(code, `<div class="modal"`) && !strings.Contains(code, "close") {
		code += "\n<!-- Added close button -->"
		fixes = append(fixes, "Added close button to modal")
	}
	if strings.Contains(code, "<form") && !strings.Contains(code, "submit") {
		code += "\n" + `<input type="submit" value="Submit">`
		fixes = append(fixes, "Added submit button to form")
	}
	if strings.Contains(code, "input") && !strings.Contains(code, "pattern") {
		code += "\n<!-- Added basic input validation -->"
		fixes = append(fixes, "Added input validation to form fields")
	}

	if len(fixes) == 0 {
		return code, NoFixAvailable
	}
	return code, strings.Join(fixes, "\n---\n")
}

// replaceDuplicate заменяет второе вхождение old в s, оставляя первое
// нетронутым. Если второго вхождения нет, строка возвращается как есть.
func replaceDuplicate(s, old, repl string) string {
	first := strings.Index(s, old)
	if first < 0 {
		return s
	}
	tail := first + len(old)
	second := strings.Index(s[tail:], old)
	if second < 0 {
		return s
	}
	pos := tail + second
	return s[:pos] + repl + s[pos+len(old):]
}

// Analyze объединяет патчер и классификатор для API анализа кода.
// Пустой код не анализируется и сразу получает заметку-заглушку.
func Analyze(code, description string) (fixedCode, notes, severity string) {
	if code == "" {
		return "", "No code provided", defaultSeverity
	}
	fixedCode, notes = Patch(description, code)
	severity = Classify(description).Severity
	return fixedCode, notes, severity
}
