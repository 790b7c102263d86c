package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fortina-rp/intake/internal/model"
	"github.com/fortina-rp/intake/internal/service"
)

type contextKeyAuth string

// SessionKey is the context key for the authenticated session.
const SessionKey contextKeyAuth = "auth_session"

// CookieName is the session cookie set at login and cleared at logout.
const CookieName = "admin_token"

// maxTokenBody bounds how much of a request body the token extractor will
// buffer while looking for a token field.
const maxTokenBody = 1 << 20 // 1MB

// ExtractToken pulls the session token from the request. The admin_token
// cookie takes precedence; otherwise a "token" field in a JSON body is
// accepted for clients without cookie support. The body is restored so
// downstream handlers can decode it again.
func ExtractToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	if r.Body == nil || r.Body == http.NoBody {
		return "", false
	}
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "application/json") {
		return "", false
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBody))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))
	if err != nil || len(buf) == 0 {
		return "", false
	}

	var body struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(buf, &body) != nil || body.Token == "" {
		return "", false
	}
	return body.Token, true
}

// Authenticate returns an HTTP middleware that resolves the request's token
// to a session and attaches it to the context. Requests with no token or an
// invalid/expired one are rejected with 403 before the handler runs.
func Authenticate(sessions service.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractToken(r)
			if !ok {
				writeAuthError(w, http.StatusForbidden, "not allowed")
				return
			}
			sess, err := sessions.Validate(token)
			if err != nil {
				if !errors.Is(err, service.ErrSessionInvalid) {
					writeAuthError(w, http.StatusInternalServerError, "session lookup failed")
					return
				}
				writeAuthError(w, http.StatusForbidden, "not allowed")
				return
			}
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
		})
	}
}

// MaybeAuthenticate attaches a session to the context when a valid token is
// present and passes the request through unchanged otherwise. Used by the
// status endpoints, which report rather than enforce authentication.
func MaybeAuthenticate(sessions service.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := ExtractToken(r); ok {
				if sess, err := sessions.Validate(token); err == nil {
					r = r.WithContext(withSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole returns an HTTP middleware that enforces a minimum role. It
// must be used after Authenticate in the middleware chain; a missing
// session is treated the same as an insufficient one.
func RequireRole(required model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess == nil || !sess.Role.Meets(required) {
				writeAuthError(w, http.StatusForbidden, "not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminPagesGate is the blanket gate over the administrative UI namespace:
// any non-GET request under prefix requires a valid session of any role.
// Owner-only API operations carry their own RequireRole gate as well, so a
// route missed here still cannot mutate credentials.
func AdminPagesGate(sessions service.SessionStore, prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) && r.Method != http.MethodGet {
				token, ok := ExtractToken(r)
				if !ok {
					http.Error(w, "Access denied", http.StatusForbidden)
					return
				}
				if _, err := sessions.Validate(token); err != nil {
					http.Error(w, "Access denied", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession extracts the authenticated session from the context. Returns
// nil for an unauthenticated request.
func GetSession(ctx context.Context) *service.Session {
	if s, ok := ctx.Value(SessionKey).(*service.Session); ok {
		return s
	}
	return nil
}

func withSession(ctx context.Context, sess *service.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid an import cycle with the handler package.
	w.Write([]byte(`{"error":"` + message + `"}`))
}
