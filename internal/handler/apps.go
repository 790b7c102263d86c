package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fortina-rp/intake/internal/config"
	"github.com/fortina-rp/intake/internal/model"
	"github.com/fortina-rp/intake/internal/service"
)

// maxListedApplications caps how many submissions a single listing returns.
const maxListedApplications = 1000

// ApplicationHandler serves the public applicant submission API.
type ApplicationHandler struct {
	store *config.Store
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(store *config.Store) *ApplicationHandler {
	return &ApplicationHandler{store: store}
}

// submitRequest is the applicant form payload. Every field is optional;
// a missing code is generated server-side.
type submitRequest struct {
	Code      string `json:"code"`
	Nick      string `json:"nick"`
	GameNick  string `json:"gameNick"`
	RealName  string `json:"realName"`
	Status    string `json:"status"`
	Age       string `json:"age"`
	Discord   string `json:"discord"`
	Online    string `json:"online"`
	Majestic  string `json:"majestic"`
	Timezone  string `json:"tz"`
	Interests string `json:"interests"`
	Surname   string `json:"surname"`
	Comment   string `json:"comment"`
}

// Submit stores a new application and returns the stored row. Submitting a
// code that already exists returns the existing row instead of an error, so
// retried form posts are harmless.
// POST /api/apps
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		generated, err := service.NewApplicationCode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		code = generated
	}

	status := req.Status
	if status == "" {
		status = model.StatusPending
	}

	app := &model.Application{
		Code:      code,
		Nick:      req.Nick,
		GameNick:  req.GameNick,
		RealName:  req.RealName,
		Status:    status,
		Age:       req.Age,
		Discord:   req.Discord,
		Online:    req.Online,
		Majestic:  req.Majestic,
		Timezone:  req.Timezone,
		Interests: req.Interests,
		Surname:   req.Surname,
		Comment:   req.Comment,
	}

	if err := h.store.CreateApplication(r.Context(), app); err != nil {
		if errors.Is(err, config.ErrConflict) {
			existing, getErr := h.store.GetApplicationByCode(r.Context(), code)
			if getErr != nil {
				writeError(w, http.StatusInternalServerError, getErr.Error())
				return
			}
			writeJSON(w, http.StatusOK, existing)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, app)
}

// Search looks a submission up by code (exact, upper-cased) or, failing
// that, by discord handle (newest match).
// GET /api/apps/search?q=
func (h *ApplicationHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	app, err := h.store.GetApplicationByCode(r.Context(), strings.ToUpper(q))
	if err == nil {
		writeJSON(w, http.StatusOK, app)
		return
	}
	if !errors.Is(err, config.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	app, err = h.store.FindApplicationByDiscord(r.Context(), q)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]bool{"found": false})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// List returns submissions newest first.
// GET /api/apps
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.store.ListApplications(r.Context(), maxListedApplications)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if apps == nil {
		apps = []model.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}
