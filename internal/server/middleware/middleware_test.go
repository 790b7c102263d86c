package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fortina-rp/intake/internal/model"
	"github.com/fortina-rp/intake/internal/service"
)

func issueToken(t *testing.T, sessions service.SessionStore, username string, role model.Role) string {
	t.Helper()
	token, err := sessions.Issue(username, role, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

// ---------------------------------------------------------------------------
// ExtractToken
// ---------------------------------------------------------------------------

func TestExtractTokenFromCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})

	token, ok := ExtractToken(r)
	if !ok || token != "cookie-token" {
		t.Errorf("got (%q, %v), want cookie token", token, ok)
	}
}

func TestExtractTokenFromBody(t *testing.T) {
	body := `{"token":"body-token","other":"field"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	token, ok := ExtractToken(r)
	if !ok || token != "body-token" {
		t.Errorf("got (%q, %v), want body token", token, ok)
	}

	// The body must be readable again by the handler.
	restored, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("re-read body: %v", err)
	}
	if string(restored) != body {
		t.Errorf("body not restored: got %q", restored)
	}
}

func TestExtractTokenCookieWinsOverBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"token":"body-token"}`))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})

	token, ok := ExtractToken(r)
	if !ok || token != "cookie-token" {
		t.Errorf("got (%q, %v), want cookie to take precedence", token, ok)
	}
}

func TestExtractTokenAbsent(t *testing.T) {
	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"no cookie no body", func() *http.Request {
			return httptest.NewRequest("GET", "/", nil)
		}},
		{"empty body", func() *http.Request {
			r := httptest.NewRequest("POST", "/", strings.NewReader(""))
			r.Header.Set("Content-Type", "application/json")
			return r
		}},
		{"body without token field", func() *http.Request {
			r := httptest.NewRequest("POST", "/", strings.NewReader(`{"user":"x"}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}},
		{"non-json body", func() *http.Request {
			r := httptest.NewRequest("POST", "/", strings.NewReader("token=abc"))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return r
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if token, ok := ExtractToken(tt.req()); ok {
				t.Errorf("got token %q, want none", token)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Authenticate / RequireRole
// ---------------------------------------------------------------------------

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	sessions := service.NewMemorySessionStore()
	h := Authenticate(sessions)(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error != "not allowed" {
		t.Errorf("got error %q, want %q", resp.Error, "not allowed")
	}
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	sessions := service.NewMemorySessionStore()
	h := Authenticate(sessions)(okHandler())

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "bogus"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", w.Code)
	}
}

func TestAuthenticateAttachesSession(t *testing.T) {
	sessions := service.NewMemorySessionStore()
	token := issueToken(t, sessions, "Fortina", model.RoleOwner)

	var seen *service.Session
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := Authenticate(sessions)(inner)

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	if seen == nil || seen.Username != "Fortina" || seen.Role != model.RoleOwner {
		t.Errorf("unexpected session in context: %+v", seen)
	}
}

func TestMaybeAuthenticatePassesThroughWithoutToken(t *testing.T) {
	sessions := service.NewMemorySessionStore()

	var seen *service.Session
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := MaybeAuthenticate(sessions)(inner)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("got status %d, want 200 for anonymous request", w.Code)
	}
	if seen != nil {
		t.Errorf("expected nil session, got %+v", seen)
	}
}

func TestRequireRoleEnforcesHierarchy(t *testing.T) {
	sessions := service.NewMemorySessionStore()

	tests := []struct {
		role     model.Role
		required model.Role
		want     int
	}{
		{model.RoleOwner, model.RoleOwner, http.StatusOK},
		{model.RoleOwner, model.RoleHelper, http.StatusOK},
		{model.RoleModerator, model.RoleOwner, http.StatusForbidden},
		{model.RoleHelper, model.RoleOwner, http.StatusForbidden},
		{model.RoleHelper, model.RoleModerator, http.StatusForbidden},
		{model.RoleModerator, model.RoleHelper, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"_needs_"+string(tt.required), func(t *testing.T) {
			token := issueToken(t, sessions, "staff", tt.role)
			h := Authenticate(sessions)(RequireRole(tt.required)(okHandler()))

			r := httptest.NewRequest("POST", "/", nil)
			r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Errorf("got status %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireRoleWithoutSession(t *testing.T) {
	h := RequireRole(model.RoleHelper)(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403 when no session attached", w.Code)
	}
}

// ---------------------------------------------------------------------------
// AdminPagesGate
// ---------------------------------------------------------------------------

func TestAdminPagesGate(t *testing.T) {
	sessions := service.NewMemorySessionStore()
	token := issueToken(t, sessions, "Daniil", model.RoleHelper)
	gate := AdminPagesGate(sessions, "/pages/admin")(okHandler())

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"GET under prefix is open", "GET", "/pages/admin/index.html", "", http.StatusOK},
		{"POST under prefix without session", "POST", "/pages/admin/save", "", http.StatusForbidden},
		{"POST under prefix with bad token", "POST", "/pages/admin/save", "bogus", http.StatusForbidden},
		{"POST under prefix with session", "POST", "/pages/admin/save", token, http.StatusOK},
		{"any role is enough", "DELETE", "/pages/admin/x", token, http.StatusOK},
		{"POST outside prefix is open", "POST", "/pages/public/form", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.token})
			}
			w := httptest.NewRecorder()
			gate.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Errorf("got status %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusForbidden {
				if body := strings.TrimSpace(w.Body.String()); body != "Access denied" {
					t.Errorf("got body %q, want plain Access denied", body)
				}
			}
		})
	}
}

func TestAdminPagesGateAcceptsBodyToken(t *testing.T) {
	sessions := service.NewMemorySessionStore()
	token := issueToken(t, sessions, "Alina", model.RoleModerator)
	gate := AdminPagesGate(sessions, "/pages/admin")(okHandler())

	body, _ := json.Marshal(map[string]string{"token": token})
	r := httptest.NewRequest("POST", "/pages/admin/save", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	gate.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("got status %d, want 200 with body token", w.Code)
	}
}
