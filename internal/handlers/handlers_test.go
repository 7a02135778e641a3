package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bugtrack/internal/config"
	"bugtrack/internal/handlers"
	"bugtrack/internal/models"
	"bugtrack/internal/repository"
)

const testCookieName = "bugtrack_session"

// fixCall фиксирует аргументы вызова ApplyAIFix
type fixCall struct {
	BugID     int64
	FixedCode string
	Notes     string
	NewStatus string
}

// stubStore реализует handlers.Store в памяти для тестов
type stubStore struct {
	user    *models.User
	authErr error

	bugs       map[int64]*models.Bug
	bugErr     error
	createdBug *models.Bug
	createdLog *models.AnalysisLog
	fix        *fixCall

	projects    []models.Project
	comments    []models.Comment
	analysisLog []models.AnalysisLog
}

func (s *stubStore) CreateUser(_ context.Context, name, username, email, _ string) (*models.User, error) {
	return &models.User{ID: 1, Name: name, Username: username, Email: email, Role: models.RoleUser}, nil
}

func (s *stubStore) AuthenticateUser(_ context.Context, _, _ string) (*models.User, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.user, nil
}

func (s *stubStore) CreateSession(_ context.Context, _ int64) (string, error) {
	return "test-token", nil
}

func (s *stubStore) GetSessionUser(_ context.Context, token string) (*models.User, error) {
	if s.user == nil || token == "" {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

func (s *stubStore) DeleteSession(_ context.Context, _ string) error { return nil }

func (s *stubStore) CreateProject(_ context.Context, name, description string) (*models.Project, error) {
	p := models.Project{ID: int64(len(s.projects) + 1), Name: name, Description: description}
	s.projects = append(s.projects, p)
	return &p, nil
}

func (s *stubStore) ListProjects(_ context.Context) ([]models.Project, error) {
	return s.projects, nil
}

func (s *stubStore) CreateTeam(_ context.Context, projectID int64, name string, memberIDs []int64) (*models.Team, error) {
	return &models.Team{ID: 1, Name: name, ProjectID: projectID}, nil
}

func (s *stubStore) ListTeams(_ context.Context, _ int64) ([]models.Team, error) { return nil, nil }

func (s *stubStore) CreateBug(_ context.Context, bug models.Bug, logEntry *models.AnalysisLog) (*models.Bug, error) {
	bug.ID = 1
	s.createdBug = &bug
	s.createdLog = logEntry
	return &bug, nil
}

func (s *stubStore) GetBugForUser(_ context.Context, bugID int64, _ *models.User) (*models.Bug, error) {
	if s.bugErr != nil {
		return nil, s.bugErr
	}
	bug, ok := s.bugs[bugID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return bug, nil
}

func (s *stubStore) ListBugs(_ context.Context, _ *models.User) ([]models.Bug, error) {
	var bugs []models.Bug
	for _, b := range s.bugs {
		bugs = append(bugs, *b)
	}
	return bugs, nil
}

func (s *stubStore) ListRecentBugs(ctx context.Context, _ int) ([]models.Bug, error) {
	return s.ListBugs(ctx, nil)
}

func (s *stubStore) ApplyAIFix(_ context.Context, bugID int64, fixedCode, notes, newStatus string, _ *models.User) (*models.Bug, error) {
	s.fix = &fixCall{BugID: bugID, FixedCode: fixedCode, Notes: notes, NewStatus: newStatus}
	bug := s.bugs[bugID]
	bug.FixedCode = fixedCode
	bug.AINotes = notes
	bug.Status = newStatus
	return bug, nil
}

func (s *stubStore) ListHistory(_ context.Context, _ int64) ([]models.BugHistory, error) {
	return nil, nil
}

func (s *stubStore) AddComment(_ context.Context, bugID, authorID int64, content string) (*models.Comment, error) {
	if content == "" {
		return nil, repository.ErrInvalidInput
	}
	c := models.Comment{ID: int64(len(s.comments) + 1), BugID: bugID, AuthorID: authorID, Content: content}
	s.comments = append(s.comments, c)
	return &c, nil
}

func (s *stubStore) ListComments(_ context.Context, _ int64) ([]models.Comment, error) {
	return s.comments, nil
}

func (s *stubStore) LogAnalysis(_ context.Context, entry models.AnalysisLog) error {
	s.analysisLog = append(s.analysisLog, entry)
	return nil
}

func newTestServer(t *testing.T, store handlers.Store) *echo.Echo {
	t.Helper()

	e := echo.New()
	renderer, err := handlers.NewRenderer()
	require.NoError(t, err)
	e.Renderer = renderer

	h := handlers.New(store, zap.NewNop(), config.SessionConfig{
		CookieName: testCookieName,
		TTLHours:   1,
	})
	h.RegisterRoutes(e)

	return e
}

func testUser() *models.User {
	return &models.User{ID: 42, Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
}

// doForm выполняет form-POST от имени авторизованного пользователя
func doForm(e *echo.Echo, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "test-token"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// doGet выполняет GET от имени авторизованного пользователя
func doGet(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "test-token"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginInvalidCredentials(t *testing.T) {
	store := &stubStore{authErr: repository.ErrInvalidCredentials}
	e := newTestServer(t, store)

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestLoginSuccessSetsSessionCookie(t *testing.T) {
	store := &stubStore{user: testUser()}
	e := newTestServer(t, store)

	form := url.Values{"username": {"alice"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == testCookieName {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, "test-token", sessionCookie.Value)
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	store := &stubStore{}
	e := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestReportBugValidation(t *testing.T) {
	store := &stubStore{user: testUser()}
	e := newTestServer(t, store)

	rec := doForm(e, "/report", url.Values{"title": {""}, "description": {"broken"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title and description are required.")
	assert.Nil(t, store.createdBug)
}

func TestReportBugRunsAIInline(t *testing.T) {
	store := &stubStore{user: testUser()}
	e := newTestServer(t, store)

	rec := doForm(e, "/report", url.Values{
		"title":       {"T"},
		"description": {"crash bug"},
		"code":        {"<button>Go</button>"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/1", rec.Header().Get("Location"))

	require.NotNil(t, store.createdBug)
	bug := store.createdBug
	assert.Equal(t, "T", bug.Title)
	assert.Equal(t, models.SeverityHigh, bug.Severity)
	assert.Equal(t, "Backend", bug.Category)
	assert.Equal(t, models.StatusOpen, bug.Status)
	assert.Contains(t, bug.FixedCode, `onclick="defaultClick()"`)
	require.NotNil(t, bug.CreatedBy)
	assert.Equal(t, int64(42), *bug.CreatedBy)

	// Запись журнала анализа уходит в ту же транзакцию
	require.NotNil(t, store.createdLog)
	assert.Equal(t, models.SeverityHigh, store.createdLog.Severity)
}

func TestReportBugWithoutCodeStillClassifies(t *testing.T) {
	store := &stubStore{user: testUser()}
	e := newTestServer(t, store)

	rec := doForm(e, "/report", url.Values{
		"title":       {"T"},
		"description": {"slow page"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	require.NotNil(t, store.createdBug)
	assert.Equal(t, models.SeverityMedium, store.createdBug.Severity)
	assert.Equal(t, "Performance", store.createdBug.Category)
	assert.Empty(t, store.createdBug.FixedCode)
}

func TestBugDetailNotFound(t *testing.T) {
	store := &stubStore{user: testUser(), bugs: map[int64]*models.Bug{}}
	e := newTestServer(t, store)

	rec := doGet(e, "/99")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/list", rec.Header().Get("Location"))
}

func TestBugDetailPermissionDenied(t *testing.T) {
	store := &stubStore{user: testUser(), bugErr: repository.ErrPermissionDenied}
	e := newTestServer(t, store)

	rec := doGet(e, "/7")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/list", rec.Header().Get("Location"))
}

func TestAIFixMarksBugFixed(t *testing.T) {
	owner := int64(42)
	store := &stubStore{
		user: testUser(),
		bugs: map[int64]*models.Bug{
			7: {ID: 7, Title: "T", Description: "crash bug", Status: models.StatusOpen,
				OriginalCode: "x = TODO_BUG", CreatedBy: &owner},
		},
	}
	e := newTestServer(t, store)

	rec := doGet(e, "/7/ai_fix")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/7", rec.Header().Get("Location"))

	require.NotNil(t, store.fix)
	assert.Equal(t, int64(7), store.fix.BugID)
	assert.Equal(t, models.StatusFixed, store.fix.NewStatus)
	assert.Equal(t, "x = FIXED_PART", store.fix.FixedCode)
}

func TestAIFixWithoutCode(t *testing.T) {
	owner := int64(42)
	store := &stubStore{
		user: testUser(),
		bugs: map[int64]*models.Bug{
			7: {ID: 7, Title: "T", Status: models.StatusOpen, CreatedBy: &owner},
		},
	}
	e := newTestServer(t, store)

	rec := doGet(e, "/7/ai_fix")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/7", rec.Header().Get("Location"))
	assert.Nil(t, store.fix)
}

func TestDownloadBugCode(t *testing.T) {
	owner := int64(42)
	store := &stubStore{
		user: testUser(),
		bugs: map[int64]*models.Bug{
			7: {ID: 7, Title: "My Bug", OriginalCode: "original", FixedCode: "fixed",
				CreatedBy: &owner},
		},
	}
	e := newTestServer(t, store)

	rec := doGet(e, "/7/download")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="bug_7_My_Bug.py"`,
		rec.Header().Get(echo.HeaderContentDisposition))
	// Исправленный код приоритетнее исходного
	assert.Equal(t, "fixed", rec.Body.String())
}

func TestDownloadFallsBackToOriginalCode(t *testing.T) {
	owner := int64(42)
	store := &stubStore{
		user: testUser(),
		bugs: map[int64]*models.Bug{
			7: {ID: 7, Title: "T", OriginalCode: "original", CreatedBy: &owner},
		},
	}
	e := newTestServer(t, store)

	rec := doGet(e, "/7/download")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "original", rec.Body.String())
}

func TestAnalyzeCodeAPI(t *testing.T) {
	store := &stubStore{user: testUser()}
	e := newTestServer(t, store)

	body := `{"code": "x = TODO_BUG", "description": "crash in parser"}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze_code", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "test-token"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fixed_code":"x = FIXED_PART"`)
	assert.Contains(t, rec.Body.String(), `"severity":"High"`)
	assert.Len(t, store.analysisLog, 1)
}

func TestAnalyzeCodeAPIUnauthorized(t *testing.T) {
	store := &stubStore{}
	e := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze_code", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddCommentRequiresContent(t *testing.T) {
	owner := int64(42)
	store := &stubStore{
		user: testUser(),
		bugs: map[int64]*models.Bug{7: {ID: 7, Title: "T", CreatedBy: &owner}},
	}
	e := newTestServer(t, store)

	rec := doForm(e, "/7/comment", url.Values{"content": {""}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Empty(t, store.comments)

	rec = doForm(e, "/7/comment", url.Values{"content": {"looks bad"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, store.comments, 1)
	assert.Equal(t, "looks bad", store.comments[0].Content)
}

func TestCreateProjectValidation(t *testing.T) {
	store := &stubStore{user: testUser()}
	e := newTestServer(t, store)

	rec := doForm(e, "/", url.Values{"name": {""}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Project name is required.")
	assert.Empty(t, store.projects)

	rec = doForm(e, "/", url.Values{"name": {"Core"}, "description": {"main project"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, store.projects, 1)
	assert.Equal(t, "Core", store.projects[0].Name)
}
