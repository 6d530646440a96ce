package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/userdesk/backend/internal/apierrors"
	"github.com/userdesk/backend/internal/avatars"
	"github.com/userdesk/backend/internal/correlation"
	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
	"github.com/userdesk/backend/internal/validation"
)

// UserHandler handles directory API requests.
type UserHandler struct {
	store  repository.DirectoryStore
	drafts *DraftDecoder
	logger *slog.Logger
}

func NewUserHandler(store repository.DirectoryStore, drafts *DraftDecoder, logger *slog.Logger) *UserHandler {
	return &UserHandler{store: store, drafts: drafts, logger: logger}
}

// Routes registers the directory endpoints on r.
func (h *UserHandler) Routes(r chi.Router) {
	r.Get("/user", h.List)
	r.Post("/user", h.Create)
	r.Get("/user/dropdown-responsibility", h.Responsibilities)
	r.Get("/user/{id}", h.Get)
	r.Post("/user/{id}", h.Update)
	r.Put("/user/{id}", h.Update)
	r.Delete("/user/{id}", h.Delete)
	r.Post("/user/{id}/status", h.SetStatus)
	r.Post("/role/dropdown", h.Roles)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := model.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		apierrors.NewBadRequestError(err.Error()).Write(w, r)
		return
	}

	users, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch users")
		return
	}
	if users == nil {
		users = []model.User{}
	}

	writeData(w, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch user")
		return
	}

	writeData(w, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decode(w, r)
	if !ok {
		return
	}

	ack, err := h.store.Create(r.Context(), draft)
	if err != nil {
		h.fail(w, r, err, "Failed to add user")
		return
	}

	writeAck(w, http.StatusOK, ack)
}

// Update handles PUT /user/{id} and the form-friendly POST /user/{id} with
// _method=put.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodPost && !strings.EqualFold(r.FormValue("_method"), http.MethodPut) {
		apierrors.NewBadRequestError("POST to a user requires _method=put").Write(w, r)
		return
	}
	draft, ok := h.decode(w, r)
	if !ok {
		return
	}

	ack, err := h.store.Update(r.Context(), id, draft)
	if err != nil {
		h.fail(w, r, err, "Failed to update user")
		return
	}

	writeAck(w, http.StatusOK, ack)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	ack, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to delete user")
		return
	}

	writeAck(w, http.StatusOK, ack)
}

func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		apierrors.NewBadRequestError("invalid form").Write(w, r)
		return
	}
	active, err := strconv.ParseBool(strings.TrimSpace(r.FormValue("status")))
	if err != nil {
		apierrors.NewValidationError("status must be 1 or 0", nil).Write(w, r)
		return
	}

	ack, err := h.store.SetStatus(r.Context(), id, active)
	if err != nil {
		h.fail(w, r, err, "Failed to change status")
		return
	}

	writeAck(w, http.StatusOK, ack)
}

// Roles handles POST /role/dropdown.
func (h *UserHandler) Roles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.Roles(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch roles")
		return
	}

	writeData(w, roles)
}

// Responsibilities handles GET /user/dropdown-responsibility. The list is
// written bare, without an envelope.
func (h *UserHandler) Responsibilities(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.Responsibilities(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch responsibilities")
		return
	}
	if list == nil {
		list = []model.Responsibility{}
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *UserHandler) decode(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	draft, err := h.drafts.Decode(r)
	switch {
	case errors.Is(err, avatars.ErrTooLarge), errors.Is(err, avatars.ErrUnsupportedType):
		apierrors.NewValidationError(err.Error(), map[string]string{"user_picture": err.Error()}).Write(w, r)
		return draft, false
	case errors.Is(err, ErrBadForm):
		apierrors.NewBadRequestError(err.Error()).Write(w, r)
		return draft, false
	case err != nil:
		h.fail(w, r, err, "Failed to save user")
		return draft, false
	}

	if errs := validation.Draft(draft, "Responsibility"); !errs.OK() {
		apierrors.FromError(errs, "").Write(w, r)
		return draft, false
	}
	return draft, true
}

func (h *UserHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	apiErr := apierrors.FromError(err, fallback)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		correlation.Logger(r.Context(), h.logger).Error(fallback, "error", err)
	}
	apiErr.Write(w, r)
}
