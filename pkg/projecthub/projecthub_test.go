package projecthub_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/projecthub"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/gormstore"
)

type testServer struct {
	t   *testing.T
	app *projecthub.App
	srv *httptest.Server
	// clock is read by server goroutines while tests advance it.
	clock atomic.Int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{t: t}
	ts.clock.Store(time.Now().Truncate(time.Second).UnixNano())
	clock := func() time.Time { return time.Unix(0, ts.clock.Load()).UTC() }

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := gormstore.NewSQLiteStore(fmt.Sprintf("file:projecthub_%s?mode=memory&cache=shared", name), gormstore.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))

	app, err := projecthub.NewWithStore(&projecthub.Config{
		Store:       projecthub.StoreSQLite,
		JWTSecret:   "test-secret",
		BcryptCost:  bcrypt.MinCost,
		CORSOrigins: []string{"http://localhost:3000"},
	}, st, projecthub.WithClock(clock))
	require.NoError(t, err)
	ts.app = app
	ts.srv = httptest.NewServer(app.Router())
	t.Cleanup(func() {
		ts.srv.Close()
		_ = app.Close()
	})
	return ts
}

func TestNewWithStoreRequiresSecret(t *testing.T) {
	st, err := gormstore.NewSQLiteStore("file:projecthub_no_secret?mode=memory&cache=shared")
	require.NoError(t, err)
	defer st.Close()

	app, err := projecthub.NewWithStore(&projecthub.Config{Store: projecthub.StoreSQLite, BcryptCost: bcrypt.MinCost}, st)
	assert.Nil(t, app)
	assert.ErrorContains(t, err, "JWT secret must not be empty")
}

func (ts *testServer) advance(d time.Duration) { ts.clock.Add(int64(d)) }

type session struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (ts *testServer) session() *session {
	jar, err := cookiejar.New(nil)
	require.NoError(ts.t, err)
	return &session{t: ts.t, base: ts.srv.URL, client: &http.Client{Jar: jar}}
}

type result struct {
	status int
	header http.Header
	body   map[string]any
}

func (s *session) send(req *http.Request) result {
	s.t.Helper()
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	res := result{status: resp.StatusCode, header: resp.Header}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(raw, &res.body), string(raw))
	}
	return res
}

func (s *session) do(method, path string, body any) result {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.base+path, r)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req)
}

// register creates an account for name and keeps the session cookie.
func (s *session) register(name string) string {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    strings.ToLower(name) + "@example.com",
		"password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, res.status, res.body)
	return obj(res.body, "user")["id"].(string)
}

func (s *session) createProject(name string) string {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/projects", map[string]any{"name": name, "category": "Team"})
	require.Equal(s.t, http.StatusCreated, res.status, res.body)
	return obj(res.body, "project")["id"].(string)
}

func (s *session) createTask(projectID, title string) string {
	s.t.Helper()
	res := s.do(http.MethodPost, "/api/tasks", map[string]any{"title": title, "project": projectID})
	require.Equal(s.t, http.StatusCreated, res.status, res.body)
	return obj(res.body, "task")["id"].(string)
}

func obj(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func list(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func sessionCookie(h http.Header) *http.Cookie {
	for _, c := range (&http.Response{Header: h}).Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestRegisterPasswordLength(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()

	res := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Password must be at least 6 characters", res.body["error"])
	assert.Nil(t, sessionCookie(res.header))

	res = s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": strings.Repeat("x", 80),
	})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Password must be at most 72 bytes", res.body["error"])
	assert.Nil(t, sessionCookie(res.header))

	res = s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "123456",
	})
	require.Equal(t, http.StatusCreated, res.status)
	assert.Equal(t, true, res.body["success"])
	assert.Equal(t, "alice@example.com", obj(res.body, "user")["email"])
	assert.NotContains(t, obj(res.body, "user"), "passwordHash")

	cookie := sessionCookie(res.header)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	me := s.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, me.status)
	assert.Equal(t, "Alice", obj(me.body, "user")["name"])
}

func TestLoginAndLogout(t *testing.T) {
	ts := newTestServer(t)
	ts.session().register("Bob")

	s := ts.session()
	res := s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "bob@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Invalid credentials", res.body["error"])

	res = s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "BOB@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/auth/me", nil).status)

	res = s.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["success"])
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", nil).status)
}

func TestBearerTokenIsAccepted(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Carol")

	u, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/projects", nil)
	require.NoError(t, err)
	cookies := s.client.Jar.Cookies(u.URL)
	require.Len(t, cookies, 1)

	anon := ts.session()
	u.Header.Set("Authorization", "Bearer "+cookies[0].Value)
	res := anon.send(u)
	assert.Equal(t, http.StatusOK, res.status)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/projects"},
		{http.MethodPost, "/api/projects"},
		{http.MethodGet, "/api/tasks"},
		{http.MethodGet, "/api/activity"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodPatch, "/api/notifications/mark-all-read"},
		{http.MethodPatch, "/api/user/settings"},
		{http.MethodDelete, "/api/user/delete"},
		{http.MethodGet, "/api/dashboard/stats"},
	}
	for _, r := range routes {
		res := s.do(r.method, r.path, map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, res.status, "%s %s", r.method, r.path)
		assert.Equal(t, "Unauthorized", res.body["error"])
	}
}

func TestWebsiteRedesignScenario(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	userID := s.register("Dana")

	res := s.do(http.MethodPost, "/api/projects", map[string]any{"name": "Website Redesign", "category": "Business"})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	project := obj(res.body, "project")
	projectID := project["id"].(string)
	assert.Equal(t, userID, project["owner"])
	members := list(project, "members")
	require.Len(t, members, 1)
	assert.Equal(t, userID, members[0].(map[string]any)["user"])
	assert.Equal(t, "owner", members[0].(map[string]any)["role"])

	res = s.do(http.MethodPost, "/api/tasks", map[string]any{"title": "Design mockups", "project": projectID})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	task := obj(res.body, "task")
	taskID := task["id"].(string)
	assert.Equal(t, "To Do", task["status"])
	assert.Equal(t, "Medium", task["priority"])

	res = s.do(http.MethodPatch, "/api/tasks/"+taskID, map[string]any{"status": "In Progress"})
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "In Progress", obj(res.body, "task")["status"])

	res = s.do(http.MethodGet, "/api/tasks?status=In%20Progress&project="+projectID, nil)
	require.Equal(t, http.StatusOK, res.status)
	tasks := list(res.body, "tasks")
	require.Len(t, tasks, 1)
	view := tasks[0].(map[string]any)
	assert.Equal(t, taskID, view["id"])
	assert.Equal(t, "Website Redesign", obj(view, "project")["name"])
	assert.Equal(t, "Dana", obj(view, "createdBy")["name"])

	res = s.do(http.MethodDelete, "/api/projects/"+projectID, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["success"])

	res = s.do(http.MethodGet, "/api/tasks/"+taskID, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "Task not found", res.body["error"])
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/projects/"+projectID, nil).status)
}

func TestCreateProjectValidationPersistsNothing(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Eve")

	res := s.do(http.MethodPost, "/api/projects", map[string]any{"name": "ab", "category": "Team"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Project name must be at least 3 characters long", res.body["error"])

	res = s.do(http.MethodPost, "/api/projects", map[string]any{"name": "Roadmap"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Please select a project category", res.body["error"])

	res = s.do(http.MethodPost, "/api/projects", "not an object")
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid request payload", res.body["error"])

	res = s.do(http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Empty(t, list(res.body, "projects"))
}

func TestCreateTaskWithUnknownProject(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Finn")

	res := s.do(http.MethodPost, "/api/tasks", map[string]any{"title": "Orphan", "project": "7f0c1c36-3c5e-4c41-9f43-1b6a2f3a9c11"})
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "Project not found", res.body["error"])

	res = s.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Empty(t, list(res.body, "tasks"))
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Gus")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/projects/not-an-id", nil).status)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, "/api/tasks/not-an-id", map[string]any{}).status)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/activity/not-an-id", nil).status)
	res := s.do(http.MethodDelete, "/api/notifications/not-an-id", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "Notification not found", res.body["error"])
}

func TestForeignProjectIsForbidden(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.session()
	owner.register("Hana")
	projectID := owner.createProject("Private Plans")

	other := ts.session()
	other.register("Ivan")
	res := other.do(http.MethodGet, "/api/projects/"+projectID, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Access denied", res.body["error"])

	res = other.do(http.MethodDelete, "/api/projects/"+projectID, nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	// Adding a task only needs a valid project id.
	taskID := other.createTask(projectID, "Suggest a change")
	res = other.do(http.MethodGet, "/api/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, projectID, obj(obj(res.body, "task"), "project")["id"])
}

func TestEditTaskPayloadMovesProject(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Lena")
	site := s.createProject("Website")
	launch := s.createProject("Launch")
	taskID := s.createTask(site, "Write copy")

	edit := func(projectID string) result {
		return s.do(http.MethodPatch, "/api/tasks/"+taskID, map[string]any{
			"title":       "Write copy",
			"description": "",
			"project":     projectID,
			"status":      "To Do",
			"priority":    "High",
			"dueDate":     "",
			"tags":        []string{},
		})
	}

	res := edit(site)
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "High", obj(res.body, "task")["priority"])
	assert.Equal(t, site, obj(res.body, "task")["project"])

	res = edit(launch)
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, launch, obj(res.body, "task")["project"])

	res = s.do(http.MethodGet, "/api/tasks?project="+launch, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Len(t, list(res.body, "tasks"), 1)

	other := ts.session()
	other.register("Milo")
	private := other.createProject("Private Plans")
	res = edit(private)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Access denied", res.body["error"])
}

func TestUpdateTaskIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Jo")
	taskID := s.createTask(s.createProject("Launch"), "Write copy")

	ts.advance(time.Minute)
	first := s.do(http.MethodPatch, "/api/tasks/"+taskID, map[string]any{"status": "Completed"})
	require.Equal(t, http.StatusOK, first.status)
	assert.Equal(t, "Completed", obj(first.body, "task")["status"])

	ts.advance(time.Minute)
	second := s.do(http.MethodPatch, "/api/tasks/"+taskID, map[string]any{"status": "Completed"})
	require.Equal(t, http.StatusOK, second.status)
	assert.Equal(t, obj(first.body, "task")["updatedAt"], obj(second.body, "task")["updatedAt"])

	res := s.do(http.MethodGet, "/api/activity", nil)
	require.Equal(t, http.StatusOK, res.status)
	updates := 0
	for _, a := range list(res.body, "activities") {
		if a.(map[string]any)["action"] == "updated task" {
			updates++
		}
	}
	assert.Equal(t, 1, updates)

	res = s.do(http.MethodPatch, "/api/tasks/"+taskID, map[string]any{"createdBy": "someone"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, `Field "createdBy" cannot be updated`, res.body["error"])
}

func TestCompleteProjectNeedsConfirmation(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Kai")
	projectID := s.createProject("Migration")
	taskA := s.createTask(projectID, "Export data")
	s.createTask(projectID, "Import data")
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/tasks/"+taskA, map[string]any{"status": "Completed"}).status)

	res := s.do(http.MethodPatch, "/api/projects/"+projectID, map[string]any{"status": "Completed"})
	require.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, true, res.body["requiresConfirmation"])
	assert.EqualValues(t, 1, res.body["incompleteTasks"])
	assert.Contains(t, res.body["error"], "1 incomplete tasks")

	res = s.do(http.MethodPatch, "/api/projects/"+projectID, map[string]any{"status": "Completed", "confirm": true})
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "Completed", obj(res.body, "project")["status"])

	res = s.do(http.MethodGet, "/api/tasks?includeCompletedProjects=true&project="+projectID, nil)
	require.Equal(t, http.StatusOK, res.status)
	tasks := list(res.body, "tasks")
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "Completed", task.(map[string]any)["status"])
	}

	res = s.do(http.MethodGet, "/api/tasks", nil)
	assert.Empty(t, list(res.body, "tasks"))
}

func TestReorderTasks(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Lea")
	projectID := s.createProject("Board")
	a := s.createTask(projectID, "Task A")
	b := s.createTask(projectID, "Task B")
	c := s.createTask(projectID, "Task C")

	res := s.do(http.MethodPut, "/api/projects/"+projectID+"/tasks/order", map[string]any{
		"status":  "To Do",
		"taskIds": []string{c, a, b},
	})
	require.Equal(t, http.StatusOK, res.status, res.body)
	tasks := list(res.body, "tasks")
	require.Len(t, tasks, 3)
	for i, want := range []string{c, a, b} {
		task := tasks[i].(map[string]any)
		assert.Equal(t, want, task["id"])
		assert.EqualValues(t, i, task["order"])
	}

	res = s.do(http.MethodGet, "/api/tasks?project="+projectID, nil)
	got := make([]string, 0, 3)
	for _, task := range list(res.body, "tasks") {
		got = append(got, task.(map[string]any)["id"].(string))
	}
	assert.Equal(t, []string{c, a, b}, got)

	res = s.do(http.MethodPut, "/api/projects/"+projectID+"/tasks/order", map[string]any{
		"status":  "Sideways",
		"taskIds": []string{a},
	})
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestNotificationsFlow(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Mia")

	res := s.do(http.MethodPost, "/api/notifications", map[string]any{"title": "Hello", "message": "First"})
	require.Equal(t, http.StatusCreated, res.status)
	firstID := obj(res.body, "notification")["id"].(string)
	assert.Equal(t, "info", obj(res.body, "notification")["type"])

	ts.advance(3 * time.Minute)
	res = s.do(http.MethodPost, "/api/notifications", map[string]any{"title": "Again", "message": "Second", "type": "warning"})
	require.Equal(t, http.StatusCreated, res.status)

	res = s.do(http.MethodPost, "/api/notifications", map[string]any{"title": "Broken"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Title and message are required", res.body["error"])

	ts.advance(2 * time.Minute)
	res = s.do(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, res.status)
	notes := list(res.body, "notifications")
	require.Len(t, notes, 2)
	assert.Equal(t, "2 minutes ago", notes[0].(map[string]any)["time"])
	assert.Equal(t, "5 minutes ago", notes[1].(map[string]any)["time"])

	res = s.do(http.MethodPatch, "/api/notifications/"+firstID, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, obj(res.body, "notification")["read"])

	res = s.do(http.MethodPatch, "/api/notifications/mark-all-read", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "All notifications marked as read", res.body["message"])
	assert.EqualValues(t, 1, res.body["count"])

	res = s.do(http.MethodGet, "/api/notifications", nil)
	for _, n := range list(res.body, "notifications") {
		assert.Equal(t, true, n.(map[string]any)["read"])
	}

	res = s.do(http.MethodDelete, "/api/notifications/"+firstID, nil)
	require.Equal(t, http.StatusOK, res.status)
	res = s.do(http.MethodGet, "/api/notifications", nil)
	assert.Len(t, list(res.body, "notifications"), 1)
}

func TestNotificationFeedIsCapped(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Nia")

	for i := 0; i < 55; i++ {
		ts.advance(time.Second)
		res := s.do(http.MethodPost, "/api/notifications", map[string]any{"title": fmt.Sprintf("n%d", i), "message": "m"})
		require.Equal(t, http.StatusCreated, res.status)
	}

	res := s.do(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, res.status)
	notes := list(res.body, "notifications")
	require.Len(t, notes, 50)
	assert.Equal(t, "n54", notes[0].(map[string]any)["title"])
	assert.Equal(t, "n5", notes[49].(map[string]any)["title"])

	res = s.do(http.MethodPatch, "/api/notifications/mark-all-read", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.EqualValues(t, 55, res.body["count"])
}

func TestActivityFeed(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Noor")
	s.createProject("Feed Project")

	res := s.do(http.MethodGet, "/api/activity", nil)
	require.Equal(t, http.StatusOK, res.status)
	activities := list(res.body, "activities")
	require.Len(t, activities, 1)
	entry := activities[0].(map[string]any)
	assert.Equal(t, "created project", entry["action"])
	assert.Equal(t, "Feed Project", obj(entry, "project")["name"])
	assert.Equal(t, "Noor", obj(entry, "user")["name"])

	other := ts.session()
	other.register("Omar")
	res = other.do(http.MethodDelete, "/api/activity/"+entry["id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "Activity not found", res.body["error"])

	res = s.do(http.MethodDelete, "/api/activity/"+entry["id"].(string), nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Activity deleted successfully", res.body["message"])
}

func TestSettingsAndAvatar(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Pia")

	res := s.do(http.MethodPatch, "/api/user/settings", map[string]any{
		"name":        "Pia Park",
		"preferences": map[string]any{"theme": "dark"},
	})
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "Settings updated successfully", res.body["message"])
	user := obj(res.body, "user")
	assert.Equal(t, "Pia Park", user["name"])
	assert.Equal(t, "dark", obj(user, "preferences")["theme"])
	assert.Equal(t, true, obj(user, "preferences")["notifications"])

	res = s.do(http.MethodPatch, "/api/user/settings", map[string]any{"preferences": map[string]any{"theme": "sepia"}})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid theme", res.body["error"])

	res = s.upload(t, "avatar", "image/png", []byte("\x89PNG fake image"))
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "Avatar uploaded successfully", res.body["message"])
	assert.True(t, strings.HasPrefix(res.body["avatar"].(string), "data:image/png;base64,"))

	res = s.upload(t, "avatar", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Only image files are allowed", res.body["error"])

	res = s.upload(t, "avatar", "image/png", bytes.Repeat([]byte{1}, 1<<20+1))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "File size must be less than 1MB", res.body["error"])

	res = s.uploadURL(t, "https://example.com/me.png")
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "Avatar updated successfully", res.body["message"])
	assert.Equal(t, "https://example.com/me.png", obj(res.body, "user")["avatar"])

	res = s.uploadURL(t, "")
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "No file or avatar URL provided", res.body["error"])

	res = s.do(http.MethodPost, "/api/user/avatar", map[string]any{"avatarUrl": "https://example.com/me.png"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid content type", res.body["error"])
}

func (s *session) upload(t *testing.T, field, contentType string, data []byte) result {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="avatar.bin"`, field))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.base+"/api/user/avatar", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req)
}

func (s *session) uploadURL(t *testing.T, avatarURL string) result {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("avatarUrl", avatarURL))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.base+"/api/user/avatar", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req)
}

func TestDeleteAccount(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Quinn")
	s.createTask(s.createProject("Doomed"), "Vanish")

	res := s.do(http.MethodDelete, "/api/user/delete", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Password is required", res.body["error"])

	res = s.do(http.MethodDelete, "/api/user/delete", map[string]any{"password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Incorrect password", res.body["error"])

	res = s.do(http.MethodDelete, "/api/user/delete", map[string]any{"password": "secret1"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Account deleted successfully", res.body["message"])
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", nil).status)

	again := ts.session()
	res = again.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "quinn@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestDashboardStats(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Ravi")
	projectID := s.createProject("Stats")
	done := s.createTask(projectID, "Done one")
	s.createTask(projectID, "Open one")
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/tasks/"+done, map[string]any{"status": "Completed"}).status)

	res := s.do(http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.EqualValues(t, 1, res.body["projects"])
	assert.EqualValues(t, 2, res.body["tasks"])
	assert.EqualValues(t, 1, res.body["pending"])
	assert.EqualValues(t, 1, res.body["completed"])
}

func TestReadOnlyModeRejectsWrites(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()
	s.register("Sam")
	s.createProject("Frozen")

	ts.app.SetReadOnly(true)
	res := s.do(http.MethodPost, "/api/projects", map[string]any{"name": "Blocked", "category": "Team"})
	assert.Equal(t, http.StatusServiceUnavailable, res.status)
	assert.Equal(t, "Service is in read-only mode", res.body["error"])

	res = s.do(http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, list(res.body, "projects"), 1)

	res = s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, "read-only", res.body["mode"])

	ts.app.SetReadOnly(false)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/projects", map[string]any{"name": "Unblocked", "category": "Team"}).status)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	s := ts.session()

	for _, path := range []string{"/health", "/api/health"} {
		res := s.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, "healthy", res.body["status"])
		assert.Equal(t, "sqlite", res.body["store"])
		assert.NotEmpty(t, res.header.Get("X-Request-Id"))
		assert.Equal(t, "nosniff", res.header.Get("X-Content-Type-Options"))
	}
	s.do(http.MethodGet, "/api/projects/123", nil)

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `projecthub_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, body, `projecthub_http_requests_total{method="GET",route="/api/projects/{id}",status="401"} 1`)
	assert.Contains(t, body, "projecthub_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "projecthub_http_requests_in_flight")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.srv.URL+"/api/tasks/abc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
