package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/userdesk/backend/internal/apierrors"
	"github.com/userdesk/backend/internal/model"
)

// Handler exposes HTTP endpoints for authentication.
type Handler struct {
	gate *Gate
}

// NewHandler creates a new auth Handler.
func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

// --- Request / Response types ------------------------------------------------

// LoginRequest is the payload for POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	User        model.SessionUser `json:"user"`
}

// --- Handlers ----------------------------------------------------------------

// Login handles POST /api/login. Credentials arrive as form fields, or as a
// JSON body when the request says so.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		apierrors.NewBadRequestError("invalid request body").Write(w, r)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		apierrors.NewValidationError("email and password are required", nil).Write(w, r)
		return
	}

	session, err := h.gate.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			apierrors.NewUnauthorizedError(ErrInvalidCredentials.Error()).Write(w, r)
			return
		}
		apierrors.FromError(err, "Login failed").Write(w, r)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: session.Token,
		ExpiresAt:   session.ExpiresAt,
		User:        session.User,
	})
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		apierrors.NewUnauthorizedError("authentication required").Write(w, r)
		return
	}
	if err := h.gate.Logout(r.Context(), session.Token); err != nil {
		apierrors.FromError(err, "Logout failed").Write(w, r)
		return
	}
	writeJSON(w, http.StatusOK, model.Envelope{Status: true, Message: "Logged out"})
}

// Me handles GET /api/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		apierrors.NewUnauthorizedError("authentication required").Write(w, r)
		return
	}
	writeJSON(w, http.StatusOK, model.Envelope{Status: true, Data: session.User})
}

// --- Helpers -----------------------------------------------------------------

func decodeLogin(r *http.Request) (LoginRequest, error) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, err
	}
	req.Email = r.FormValue("email")
	req.Password = r.FormValue("password")
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
