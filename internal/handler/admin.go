package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fortina-rp/intake/internal/config"
	"github.com/fortina-rp/intake/internal/model"
	"github.com/fortina-rp/intake/internal/server/middleware"
	"github.com/fortina-rp/intake/internal/service"
)

// AdminHandler serves the staff authentication and account-management API.
type AdminHandler struct {
	store  *config.Store
	auth   *service.AuthService
	repair config.RepairConfig
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store *config.Store, auth *service.AuthService, repair config.RepairConfig) *AdminHandler {
	return &AdminHandler{store: store, auth: auth, repair: repair}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// loginResponse is the response payload for a successful login. The token
// is also set as a cookie; it is returned in the body for clients that
// store it themselves.
type loginResponse struct {
	User  string     `json:"user"`
	Role  model.Role `json:"role"`
	Token string     `json:"token"`
}

// Login authenticates a staff account and issues a session token.
// POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" || req.Pass == "" {
		writeError(w, http.StatusBadRequest, "missing")
		return
	}

	sess, err := h.auth.Login(r.Context(), req.User, req.Pass)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Uniform message: never reveals whether the username exists.
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, loginResponse{
		User:  sess.Username,
		Role:  sess.Role,
		Token: sess.Token,
	})
}

// Logout revokes the caller's session and clears the cookie. Always 200,
// even when no session was present.
// POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.ExtractToken(r); ok {
		h.auth.Logout(token)
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// Status reports whether the caller holds a valid session. Never errors on
// missing or invalid auth.
// GET /api/admin/status and POST /api/admin/status-token
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusOK, model.AuthStatus{Authed: false})
		return
	}
	writeJSON(w, http.StatusOK, model.AuthStatus{
		Authed: true,
		User:   sess.Username,
		Role:   sess.Role,
	})
}

// ---------------------------------------------------------------------------
// Account management (Owner only; enforced by route middleware)
// ---------------------------------------------------------------------------

// createUserRequest is the expected payload for CreateUser. The token field
// is consumed by the auth middleware; it is listed here so decoding a body
// that carries one does not fail.
type createUserRequest struct {
	User  string `json:"user"`
	Pass  string `json:"pass"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

// CreateUser creates a new staff account. Role defaults to Moderator.
// POST /api/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User == "" || req.Pass == "" {
		writeError(w, http.StatusBadRequest, "missing")
		return
	}

	role := model.RoleModerator
	if req.Role != "" {
		parsed, err := model.ParseRole(req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown role")
			return
		}
		role = parsed
	}

	admin, err := h.auth.CreateAdmin(r.Context(), req.User, req.Pass, role)
	if err != nil {
		if errors.Is(err, config.ErrConflict) {
			writeError(w, http.StatusConflict, "exists")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.AdminSummary{
		ID:       admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
	})
}

// ListUsers returns all staff accounts, hashes excluded.
// GET /api/admin/users and POST /api/admin/users-list
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if admins == nil {
		admins = []model.AdminSummary{}
	}
	writeJSON(w, http.StatusOK, admins)
}

// DeleteUser removes a staff account by id. Existing sessions for the
// deleted account stay valid until natural expiry.
// DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.store.DeleteAdmin(r.Context(), id); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

// RepairAccount forces the configured maintenance account back to its
// intended role. Deliberately unauthenticated: it exists to recover from a
// corrupted owner role, at which point nobody can log in with owner rights.
// POST /api/admin/fix-fortina
func (h *AdminHandler) RepairAccount(w http.ResponseWriter, r *http.Request) {
	if h.repair.Username == "" {
		writeError(w, http.StatusNotFound, "no repair account configured")
		return
	}
	role := model.Role(h.repair.Role)
	if !role.Valid() {
		role = model.RoleOwner
	}

	if err := h.store.RepairAdminRole(r.Context(), h.repair.Username, role); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"user": h.repair.Username,
		"role": role,
	})
}

// ---------------------------------------------------------------------------
// Cookie helpers
// ---------------------------------------------------------------------------

func (h *AdminHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.SessionTTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AdminHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
