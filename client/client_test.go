package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"sitecanvas/canvas"
)

// stubServer fakes the JSON API surface the client touches: CSRF cookie on any
// GET, cookie session on login, and an in-memory diagram table.
type stubServer struct {
	mu       sync.Mutex
	diagrams map[int64]diagramWire
	nextID   int64
}

func newStubServer() *stubServer {
	return &stubServer{diagrams: map[int64]diagramWire{}, nextID: 1}
}

func (s *stubServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "X-CSRF-Token", Value: "stub-token", Path: "/"})
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if !s.checkCSRF(w, r) {
			return
		}
		var creds struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "right-password" {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "stub-session", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": creds.Username, "role": "editor"})
	})
	mux.HandleFunc("/api/diagrams", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !s.checkAuth(w, r) || !s.checkCSRF(w, r) {
			return
		}
		var p savePayloadWire
		_ = json.NewDecoder(r.Body).Decode(&p)
		s.mu.Lock()
		d := diagramWire{
			ID: s.nextID, Name: p.Name, Description: p.Description,
			Objects: p.Objects, BOQData: p.BOQData, ProjectID: p.ProjectID,
			UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		}
		s.nextID++
		s.diagrams[d.ID] = d
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, d)
	})
	mux.HandleFunc("/api/diagrams/latest", func(w http.ResponseWriter, r *http.Request) {
		if !s.checkAuth(w, r) {
			return
		}
		projectID, _ := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		var latest diagramWire
		for _, d := range s.diagrams {
			if d.ProjectID == projectID && d.ID > latest.ID {
				latest = d
			}
		}
		if latest.ID == 0 {
			writeError(w, http.StatusNotFound, "project has no diagrams")
			return
		}
		writeJSON(w, http.StatusOK, latest)
	})
	mux.HandleFunc("/api/diagrams/", func(w http.ResponseWriter, r *http.Request) {
		if !s.checkAuth(w, r) {
			return
		}
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/diagrams/"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		d, ok := s.diagrams[id]
		if !ok {
			writeError(w, http.StatusNotFound, "diagram not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, d)
		case http.MethodPut:
			if !s.checkCSRF(w, r) {
				return
			}
			var p savePayloadWire
			_ = json.NewDecoder(r.Body).Decode(&p)
			d.Name, d.Objects, d.BOQData = p.Name, p.Objects, p.BOQData
			s.diagrams[id] = d
			writeJSON(w, http.StatusOK, d)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	return mux
}

func (s *stubServer) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-CSRF-Token") != "stub-token" {
		writeError(w, http.StatusForbidden, "invalid csrf token")
		return false
	}
	return true
}

func (s *stubServer) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	c, err := r.Cookie("session")
	if err != nil || c.Value != "stub-session" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newTestClient(t *testing.T) (*stubServer, *Client) {
	t.Helper()
	stub := newStubServer()
	ts := httptest.NewServer(stub.handler())
	t.Cleanup(ts.Close)
	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return stub, c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, bad := range []string{"", "not-a-url", "//missing-scheme"} {
		if _, err := New(bad); err == nil {
			t.Fatalf("expected error for url %q", bad)
		}
	}
}

func TestLoginStoresSessionAndCSRF(t *testing.T) {
	_, c := newTestClient(t)

	id, err := c.Login(context.Background(), "editor1", "right-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Username != "editor1" || id.Role != "editor" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	// A mutation after login carries both the session cookie and the token.
	rec, err := c.CreateDiagram(context.Background(), canvas.DiagramPayload{
		Name: "Plan", Objects: "[]", BOQData: "[]", ProjectID: 4,
	})
	if err != nil {
		t.Fatalf("create after login: %v", err)
	}
	if rec.ID == 0 || rec.ProjectID != 4 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	_, c := newTestClient(t)

	_, err := c.Login(context.Background(), "editor1", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid username or password" {
		t.Fatalf("expected server message, got %q", apiErr.Message)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	_, c := newTestClient(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, "editor1", "right-password"); err != nil {
		t.Fatalf("login: %v", err)
	}

	created, err := c.CreateDiagram(ctx, canvas.DiagramPayload{
		Name:      "Yard Layout",
		Objects:   `[{"id":"wall-1","x":10,"y":20,"type":"rectangle","width":5,"height":5}]`,
		BOQData:   "[]",
		ProjectID: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := c.Diagram(ctx, created.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Name != "Yard Layout" || got.Objects != created.Objects {
		t.Fatalf("fetch mismatch: %+v", got)
	}

	updated, err := c.UpdateDiagram(ctx, created.ID, canvas.DiagramPayload{
		Name: "Yard Layout v2", Objects: "[]", BOQData: "[]", ProjectID: 2,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Yard Layout v2" {
		t.Fatalf("update not applied: %+v", updated)
	}

	latest, err := c.LatestDiagram(ctx, 2)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != created.ID {
		t.Fatalf("expected latest %d, got %d", created.ID, latest.ID)
	}
}

func TestStoreNotFound(t *testing.T) {
	_, c := newTestClient(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, "editor1", "right-password"); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := c.Diagram(ctx, 999)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}

	_, err = c.LatestDiagram(ctx, 999)
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError for empty project, got %v", err)
	}
}

func TestRequestsWithoutSessionRejected(t *testing.T) {
	_, c := newTestClient(t)

	_, err := c.Diagram(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}
