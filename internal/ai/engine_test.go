package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDefaults(t *testing.T) {
	// Без известных ключевых слов все поля принимают значения по умолчанию
	res := Classify("something completely unrelated")

	assert.Equal(t, "Low", res.Severity)
	assert.Equal(t, "General", res.Category)
	assert.Equal(t, DefaultSuggestion, res.Suggestion)
}

func TestClassifyKeywordOrder(t *testing.T) {
	// "crash" стоит раньше "login" в таблице, поэтому побеждает High
	res := Classify("login page crash on submit")

	assert.Equal(t, "High", res.Severity)
	assert.Equal(t, "Backend", res.Category)
	assert.Equal(t, "Wrap in try/except, validate inputs.", res.Suggestion)
}

func TestClassifySubstringMatch(t *testing.T) {
	// Совпадения ищутся как сырые подстроки: "login" внутри "logindatabase"
	res := Classify("logindatabase is acting up")

	assert.Equal(t, "Medium", res.Severity)
	assert.Equal(t, "Frontend", res.Category)
	assert.Equal(t, "Ensure secure authentication.", res.Suggestion)
}

func TestClassifySkipsUnbucketedKeywords(t *testing.T) {
	// "typo" есть в таблице рекомендаций, но не входит ни в один бакет
	// серьезности, поэтому обход продолжается до "database"
	res := Classify("typo in database report")

	assert.Equal(t, "Medium", res.Severity)
	assert.Equal(t, "Frontend", res.Category) // "typo" раньше "database"
}

func TestClassifyCaseInsensitive(t *testing.T) {
	res := Classify("CRASH with Data Loss")

	assert.Equal(t, "High", res.Severity)
	assert.Equal(t, "Backend", res.Category)
}

func TestPatchEmpty(t *testing.T) {
	code, notes := Patch("", "")

	assert.Equal(t, "", code)
	assert.Equal(t, NoFixAvailable, notes)
}

func TestPatchTodoReplacement(t *testing.T) {
	code, notes := Patch("", "x = TODO_BUG\ny = TODO_BUG")

	assert.Equal(t, "x = FIXED_PART\ny = FIXED_PART", code)
	assert.Contains(t, notes, "Replaced TODO_BUG with FIXED_PART")
}

func TestPatchTodoIdempotent(t *testing.T) {
	once, _ := Patch("", "value = TODO_BUG")
	twice, notes := Patch("", once)

	assert.Equal(t, once, twice)
	assert.NotContains(t, twice, "TODO_BUG")
	assert.Equal(t, NoFixAvailable, notes)
}

func TestPatchPrintFormatting(t *testing.T) {
	code, _ := Patch("", "print(1)")
	assert.Equal(t, "print (1)", code)

	// Уже нормализованный код не трогаем
	code, notes := Patch("", "print (1)")
	assert.Equal(t, "print (1)", code)
	assert.Equal(t, NoFixAvailable, notes)
}

func TestPatchIfBlocksFor(t *testing.T) {
	// Правило для if добавляет ":\n", после чего правило for уже не срабатывает
	code, notes := Patch("", "if x for y")

	assert.Contains(t, code, "if:\n    ")
	assert.Contains(t, notes, "Fixed if statement formatting")
	assert.NotContains(t, notes, "Fixed for loop formatting")
}

func TestPatchButtonDefaults(t *testing.T) {
	code, notes := Patch("broken button", "<button>Click</button>")

	assert.Equal(t, `<button title="Click me" onclick="defaultClick()">Click</button>`, code)
	assert.Equal(t, 1, strings.Count(code, "onclick"))
	assert.Equal(t, 1, strings.Count(code, "title="))
	assert.Contains(t, notes, "Added default onclick handler")
	assert.Contains(t, notes, "Added tooltip to button")
}

func TestPatchEnablesDisabledButtons(t *testing.T) {
	code, notes := Patch("", `<input disabled value="1">`)

	assert.NotContains(t, code, "disabled")
	assert.Contains(t, notes, "Enabled button automatically")
}

func TestPatchDuplicateIDs(t *testing.T) {
	code, notes := Patch("", `<a id="x"></a><a id="x"></a>`)

	// Первое вхождение остается, дубликат получает суффикс с позицией
	assert.Equal(t, `<a id="x"></a><a id="x_1"></a>`, code)
	assert.Contains(t, notes, "Fixed duplicate button ID: x -> x_1")
}

func TestPatchTripleDuplicateIDs(t *testing.T) {
	code, _ := Patch("", `<a id="x"></a><a id="x"></a><a id="x"></a>`)

	assert.Equal(t, `<a id="x"></a><a id="x_1"></a><a id="x_2"></a>`, code)
}

func TestPatchModalAndForm(t *testing.T) {
	code, notes := Patch("", `<div class="modal"></div>`)
	assert.Contains(t, code, "<!-- Added close button -->")
	assert.Contains(t, notes, "Added close button to modal")

	code, notes = Patch("", "<form></form>")
	assert.Contains(t, code, `<input type="submit" value="Submit">`)
	assert.Contains(t, notes, "Added submit button to form")
	// Добавленный submit-элемент содержит "input" без "pattern",
	// поэтому следом срабатывает и правило валидации
	assert.Contains(t, code, "<!-- Added basic input validation -->")
}

func TestPatchTemplateRules(t *testing.T) {
	// Триггеры шаблонов ищутся в описании, сам код не меняется
	code, notes := Patch("exception handling is missing here", "")

	assert.Equal(t, "", code)
	assert.Contains(t, notes, "try:\n    # code\nexcept Exception as e:\n    print(e)")
}

func TestPatchNotesJoinedWithSeparator(t *testing.T) {
	_, notes := Patch("", "x = TODO_BUG\nprint(x)")

	parts := strings.Split(notes, "\n---\n")
	assert.Len(t, parts, 2)
	assert.Equal(t, "Replaced TODO_BUG with FIXED_PART", parts[0])
	assert.Equal(t, "Fixed print formatting", parts[1])
}

func TestAnalyzeEmptyCode(t *testing.T) {
	fixed, notes, severity := Analyze("", "crash everywhere")

	assert.Equal(t, "", fixed)
	assert.Equal(t, "No code provided", notes)
	assert.Equal(t, "Low", severity)
}

func TestAnalyzeDelegates(t *testing.T) {
	fixed, notes, severity := Analyze("x = TODO_BUG", "crash in module")

	assert.Equal(t, "x = FIXED_PART", fixed)
	assert.Contains(t, notes, "Replaced TODO_BUG with FIXED_PART")
	assert.Equal(t, "High", severity)
}
