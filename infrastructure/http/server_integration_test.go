package http

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
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xuri/excelize/v2"

	"sitecanvas/frontend/diagrams"
	"sitecanvas/frontend/login"
	"sitecanvas/infrastructure/audit"
	"sitecanvas/infrastructure/cache"
	"sitecanvas/infrastructure/rbac"
	"sitecanvas/infrastructure/sqlite"
)

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
}

func setupIntegrationServer(t *testing.T) (*integrationEnv, *http.Client) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "server-integration.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if err := login.UpsertUserPasswordHash(context.Background(), db, "admin", "admin", "Admin123!Canvas"); err != nil {
		t.Fatalf("seed admin user: %v", err)
	}
	if err := login.UpsertUserPasswordHash(context.Background(), db, "editor1", "editor", "Editor123!Canvas"); err != nil {
		t.Fatalf("seed editor user: %v", err)
	}
	if err := login.UpsertUserPasswordHash(context.Background(), db, "viewer1", "viewer", "Viewer123!Canvas"); err != nil {
		t.Fatalf("seed viewer user: %v", err)
	}

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService()

	s := NewServer("127.0.0.1:0", "", db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc)
	ts := httptest.NewServer(s.router)
	env := &integrationEnv{server: ts, db: db}
	t.Cleanup(func() {
		env.server.Close()
		_ = env.db.Close()
	})

	return env, newHTTPClient(t)
}

func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "X-CSRF-Token" {
			return c.Value
		}
	}
	return ""
}

func get(t *testing.T, client *http.Client, baseURL, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func doJSON(t *testing.T, client *http.Client, baseURL, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal %s body: %v", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("build %s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := csrfToken(t, client, baseURL); token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func loginAs(t *testing.T, client *http.Client, baseURL, username, password string) {
	t.Helper()

	// Prime the CSRF cookie.
	resp := get(t, client, baseURL, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected health 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, client, baseURL, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login 200 for %s, got %d", username, resp.StatusCode)
	}
	var user struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	decodeInto(t, resp, &user)
	if user.Username != username {
		t.Fatalf("login returned wrong user: %+v", user)
	}
}

func createProject(t *testing.T, client *http.Client, baseURL, name string) int64 {
	t.Helper()
	resp := doJSON(t, client, baseURL, http.MethodPost, "/api/projects", map[string]string{
		"name":        name,
		"description": "integration test project",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected create project 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeInto(t, resp, &created)
	if created.ID == 0 {
		t.Fatalf("create project returned no id")
	}
	return created.ID
}

func createDiagram(t *testing.T, client *http.Client, baseURL string, projectID int64, name, objects, boq string) diagrams.DiagramView {
	t.Helper()
	resp := doJSON(t, client, baseURL, http.MethodPost, "/api/diagrams", diagrams.SaveInput{
		Name:      name,
		Objects:   objects,
		BOQData:   boq,
		ProjectID: projectID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected create diagram 201, got %d", resp.StatusCode)
	}
	var view diagrams.DiagramView
	decodeInto(t, resp, &view)
	if view.ID == 0 {
		t.Fatalf("create diagram returned no id")
	}
	return view
}

func TestCSRFPostWithoutTokenRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)

	// No GET first: no CSRF token available in cookie or header.
	raw, _ := json.Marshal(map[string]string{"username": "admin", "password": "Admin123!Canvas"})
	resp, err := client.Post(env.server.URL+"/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for missing csrf, got %d", resp.StatusCode)
	}
}

func TestLoginLogoutFlow(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!Canvas")

	resp := get(t, client, env.server.URL, "/api/me")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected me 200, got %d", resp.StatusCode)
	}
	var me struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	decodeInto(t, resp, &me)
	if me.Username != "admin" || me.Role != "admin" {
		t.Fatalf("unexpected identity: %+v", me)
	}

	resp = doJSON(t, client, env.server.URL, http.MethodPost, "/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected logout 204, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = get(t, client, env.server.URL, "/api/me")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestUnauthenticatedAPIRequestsRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)

	for _, path := range []string{"/api/projects", "/api/diagrams", "/api/me"} {
		resp := get(t, client, env.server.URL, path)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without session, got %d", path, resp.StatusCode)
		}
		_ = resp.Body.Close()
	}
}

func TestWrongPasswordRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/health")
	_ = resp.Body.Close()

	resp = doJSON(t, client, env.server.URL, http.MethodPost, "/login", map[string]string{
		"username": "admin",
		"password": "not-the-password",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}
}

func TestDiagramLifecycleEndToEnd(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!Canvas")

	projectID := createProject(t, client, env.server.URL, "Integration Yard")
	created := createDiagram(t, client, env.server.URL, projectID, "Site Plan",
		`[{"id":"wall-1","x":100,"y":100,"type":"rectangle","width":50,"height":40,"status":"completed"}]`, "")

	resp := doJSON(t, client, env.server.URL, http.MethodPut,
		fmt.Sprintf("/api/diagrams/%d", created.ID), diagrams.SaveInput{
			Name:      "Site Plan v2",
			Objects:   created.Objects,
			BOQData:   "[]",
			ProjectID: projectID,
		})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected update 200, got %d", resp.StatusCode)
	}
	var updated diagrams.DiagramView
	decodeInto(t, resp, &updated)
	if updated.Name != "Site Plan v2" {
		t.Fatalf("update not applied: %+v", updated)
	}

	resp = get(t, client, env.server.URL, fmt.Sprintf("/api/diagrams/latest?project_id=%d", projectID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected latest 200, got %d", resp.StatusCode)
	}
	var latest diagrams.DiagramView
	decodeInto(t, resp, &latest)
	if latest.ID != created.ID {
		t.Fatalf("expected latest to be diagram %d, got %d", created.ID, latest.ID)
	}

	resp = get(t, client, env.server.URL, fmt.Sprintf("/api/diagrams?project_id=%d", projectID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected list 200, got %d", resp.StatusCode)
	}
	var summaries []diagrams.DiagramSummary
	decodeInto(t, resp, &summaries)
	if len(summaries) != 1 || summaries[0].Name != "Site Plan v2" {
		t.Fatalf("unexpected list: %+v", summaries)
	}

	// Activity log joins the diagram mutations back onto the project.
	resp = get(t, client, env.server.URL, fmt.Sprintf("/api/projects/%d/activity", projectID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected activity 200, got %d", resp.StatusCode)
	}
	var activity struct {
		Rows []struct {
			Action string `json:"action"`
		} `json:"rows"`
	}
	decodeInto(t, resp, &activity)
	actions := make(map[string]bool, len(activity.Rows))
	for _, row := range activity.Rows {
		actions[row.Action] = true
	}
	if !actions["project.create"] || !actions["diagram.create"] || !actions["diagram.update"] {
		t.Fatalf("expected project and diagram audit rows, got %v", actions)
	}

	resp = doJSON(t, client, env.server.URL, http.MethodDelete, fmt.Sprintf("/api/diagrams/%d", created.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected delete 204, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = get(t, client, env.server.URL, fmt.Sprintf("/api/diagrams/%d", created.ID))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestRoleGates_EditorAndViewer(t *testing.T) {
	env, _ := setupIntegrationServer(t)
	adminClient := newHTTPClient(t)
	editorClient := newHTTPClient(t)
	viewerClient := newHTTPClient(t)

	loginAs(t, adminClient, env.server.URL, "admin", "Admin123!Canvas")
	projectID := createProject(t, adminClient, env.server.URL, "Role Gate Yard")

	loginAs(t, editorClient, env.server.URL, "editor1", "Editor123!Canvas")

	// Editors mutate diagrams.
	created := createDiagram(t, editorClient, env.server.URL, projectID, "Editor Plan", "[]", "")

	// But not projects or users.
	resp := doJSON(t, editorClient, env.server.URL, http.MethodPost, "/api/projects", map[string]string{"name": "Blocked"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected editor project create 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
	resp = get(t, editorClient, env.server.URL, "/api/admin/users")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected editor users list 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	loginAs(t, viewerClient, env.server.URL, "viewer1", "Viewer123!Canvas")

	// Viewers read everything.
	resp = get(t, viewerClient, env.server.URL, fmt.Sprintf("/api/diagrams/%d", created.ID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected viewer diagram read 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
	resp = get(t, viewerClient, env.server.URL, "/api/projects")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected viewer project list 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// But never mutate.
	resp = doJSON(t, viewerClient, env.server.URL, http.MethodPost, "/api/diagrams", diagrams.SaveInput{
		Name: "Viewer Plan", ProjectID: projectID,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected viewer diagram create 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
	resp = doJSON(t, viewerClient, env.server.URL, http.MethodDelete, fmt.Sprintf("/api/diagrams/%d", created.ID), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected viewer diagram delete 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestAdminUserManagement(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!Canvas")

	resp := doJSON(t, client, env.server.URL, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "editor2",
		"password": "Editor2Pass!Canvas",
		"role":     "editor",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected create user 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	}
	decodeInto(t, resp, &created)
	if created.Role != "editor" {
		t.Fatalf("unexpected created role: %+v", created)
	}

	resp = doJSON(t, client, env.server.URL, http.MethodPut,
		fmt.Sprintf("/api/admin/users/%d/role", created.ID), map[string]string{"role": "viewer"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected role change 204, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// The new credentials work immediately.
	fresh := newHTTPClient(t)
	loginAs(t, fresh, env.server.URL, "editor2", "Editor2Pass!Canvas")
	resp = get(t, fresh, env.server.URL, "/api/me")
	var me struct {
		Role string `json:"role"`
	}
	decodeInto(t, resp, &me)
	if me.Role != "viewer" {
		t.Fatalf("expected downgraded role viewer, got %s", me.Role)
	}
}

func TestBOQImportAndExport(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!Canvas")

	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]any{"ID", "TT", "Name", "Unit", "Design", "Actual", "Plan", "Price"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]any{"B-01", 1, "Concrete C30", "m3", 120, 0, 0, 100})
	var workbook bytes.Buffer
	if err := f.Write(&workbook); err != nil {
		t.Fatalf("build upload workbook: %v", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "boq.xlsx")
	if err != nil {
		t.Fatalf("create multipart field: %v", err)
	}
	if _, err := part.Write(workbook.Bytes()); err != nil {
		t.Fatalf("write multipart content: %v", err)
	}
	_ = writer.Close()

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/boq/import", &body)
	if err != nil {
		t.Fatalf("build import request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-CSRF-Token", csrfToken(t, client, env.server.URL))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post boq import: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected import 200, got %d", resp.StatusCode)
	}
	var items []struct {
		ID             string  `json:"id"`
		ContractAmount float64 `json:"contractAmount"`
	}
	decodeInto(t, resp, &items)
	if len(items) != 1 || items[0].ID != "B-01" || items[0].ContractAmount != 12000 {
		t.Fatalf("unexpected import result: %+v", items)
	}

	projectID := createProject(t, client, env.server.URL, "BOQ Yard")
	boqJSON := `[{"id":"B-01","name":"Concrete C30","unit":"m3","designQty":120,"unitPrice":100,"contractAmount":12000}]`
	created := createDiagram(t, client, env.server.URL, projectID, "BOQ Plan", "[]", boqJSON)

	resp = get(t, client, env.server.URL, fmt.Sprintf("/api/diagrams/%d/boq.xlsx", created.ID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected export 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("unexpected export content type: %s", ct)
	}
	exported, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read export body: %v", err)
	}
	out, err := excelize.OpenReader(bytes.NewReader(exported))
	if err != nil {
		t.Fatalf("reopen exported workbook: %v", err)
	}
	defer out.Close()
	rows, err := out.GetRows("BOQ")
	if err != nil {
		t.Fatalf("read exported sheet: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "B-01" {
		t.Fatalf("unexpected exported rows: %v", rows)
	}
}

func TestProjectProgressAndReport(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!Canvas")

	projectID := createProject(t, client, env.server.URL, "Progress Yard")
	objects := `[
{"id":"a-1","x":100,"y":100,"type":"rectangle","width":50,"height":40,"status":"completed"},
{"id":"a-2","x":200,"y":100,"type":"rectangle","width":50,"height":40,"status":"in_progress"},
{"id":"a-3","x":300,"y":100,"type":"circle","diameter":30}
]`
	createDiagram(t, client, env.server.URL, projectID, "Progress Plan", objects, "")

	resp := get(t, client, env.server.URL, fmt.Sprintf("/api/projects/%d/progress", projectID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected progress 200, got %d", resp.StatusCode)
	}
	var progress struct {
		Total     int     `json:"total"`
		Completed int     `json:"completed"`
		Percent   float64 `json:"progressPercent"`
	}
	decodeInto(t, resp, &progress)
	if progress.Total != 3 || progress.Completed != 1 || progress.Percent != 33.3 {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	resp = get(t, client, env.server.URL, fmt.Sprintf("/api/projects/%d/report.pdf", projectID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected report 200, got %d", resp.StatusCode)
	}
	pdf, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read report body: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf response, got %q", pdf[:min(len(pdf), 8)])
	}
}

func TestDiagramUpdatePushesSyncEvent(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!Canvas")

	projectID := createProject(t, client, env.server.URL, "Sync Yard")
	created := createDiagram(t, client, env.server.URL, projectID, "Sync Plan", "[]", "")

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + fmt.Sprintf("/ws/diagrams/%d", created.ID)
	dialer := websocket.Dialer{Jar: client.Jar}
	ws, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial sync ws: %v", err)
	}
	defer ws.Close()

	resp := doJSON(t, client, env.server.URL, http.MethodPut,
		fmt.Sprintf("/api/diagrams/%d", created.ID), diagrams.SaveInput{
			Name:      "Sync Plan",
			Objects:   `[{"id":"wall-1","x":50,"y":50,"type":"rectangle","width":10,"height":10}]`,
			ProjectID: projectID,
		})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected update 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev diagrams.SyncEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read sync event: %v", err)
	}
	if ev.Type != diagrams.EventDiagramUpdated || ev.DiagramID != created.ID {
		t.Fatalf("unexpected sync event: %+v", ev)
	}
}

func TestWebsocketRequiresSession(t *testing.T) {
	env, _ := setupIntegrationServer(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/diagrams/1"
	dialer := websocket.Dialer{}
	_, resp, err := dialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake rejection, got %+v", resp)
	}
}
