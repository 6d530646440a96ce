package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/userdesk/backend/internal/auth"
	"github.com/userdesk/backend/internal/avatars"
	"github.com/userdesk/backend/internal/console"
	"github.com/userdesk/backend/internal/correlation"
	"github.com/userdesk/backend/internal/handler"
	"github.com/userdesk/backend/internal/model"
	"github.com/userdesk/backend/internal/repository"
	"github.com/userdesk/backend/internal/upstream"
	"github.com/userdesk/backend/internal/validation"
)

// Authenticator is the login boundary: the local auth gate or the upstream API.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (model.Session, error)
}

// Config tunes console behavior.
type Config struct {
	TagLabel      string
	ToastTTL      time.Duration
	RedirectDelay time.Duration
}

const msgLoginFailed = "Login failed. Please try again."

type ctxKey struct{}

type sessionInfo struct {
	token string
	user  model.SessionUser
}

// Handler serves the console pages.
type Handler struct {
	auth     Authenticator
	sessions *SessionStore
	consoles *Consoles
	drafts   *handler.DraftDecoder
	pages    *template.Template
	cfg      Config
	logger   *slog.Logger
}

// NewHandler creates the console handler.
func NewHandler(authn Authenticator, sessions *SessionStore, consoles *Consoles, drafts *handler.DraftDecoder, cfg Config, logger *slog.Logger) (*Handler, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if cfg.TagLabel == "" {
		cfg.TagLabel = console.TagResponsibility
	}
	return &Handler{
		auth:     authn,
		sessions: sessions,
		consoles: consoles,
		drafts:   drafts,
		pages:    pages,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Routes registers the console pages.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Get("/users", h.Users)
		r.Get("/users/add", h.AddForm)
		r.Post("/users/add", h.SaveForm)
		r.Get("/users/edit/{id}", h.EditForm)
		r.Post("/users/edit/{id}", h.SaveForm)
		r.Post("/users/{id}/status", h.ToggleStatus)
		r.Post("/users/{id}/delete", h.RequestDelete)
		r.Post("/users/delete/confirm", h.ConfirmDelete)
		r.Post("/users/delete/cancel", h.CancelDelete)
		r.Post("/users/toast/dismiss", h.DismissToast)
	})
}

func (h *Handler) formOptions() []console.Option {
	opts := []console.Option{console.WithLogger(h.logger)}
	if h.cfg.ToastTTL > 0 {
		opts = append(opts, console.WithToastTTL(h.cfg.ToastTTL))
	}
	if h.cfg.RedirectDelay > 0 {
		opts = append(opts, console.WithRedirectDelay(h.cfg.RedirectDelay))
	}
	return opts
}

// requireSession resolves the cookie session against the authenticator and
// sends anonymous or expired sessions to the login page.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, user, ok := h.sessions.Load(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		session, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			correlation.Logger(r.Context(), h.logger).Info("console session rejected", "error", err)
			h.consoles.Close(token)
			if err := h.sessions.Clear(w, r); err != nil {
				h.logger.Error("failed to clear session", "error", err)
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if session.User.Email != "" {
			user = session.User
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, sessionInfo{token: token, user: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentSession(r *http.Request) sessionInfo {
	s, _ := r.Context().Value(ctxKey{}).(sessionInfo)
	return s
}

type loginPage struct {
	Title   string
	Refresh string
	User    model.SessionUser
	Toast   *console.Toast
	Email   string
	Error   string
}

// LoginPage renders the login form, or skips to the directory for a live session.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if token, _, ok := h.sessions.Load(r); ok {
		if _, err := h.auth.Authenticate(r.Context(), token); err == nil {
			http.Redirect(w, r, "/users", http.StatusFound)
			return
		}
	}
	h.render(w, http.StatusOK, "login", loginPage{Title: "Login"})
}

// Login verifies the credentials and starts a console session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "login", loginPage{Title: "Login", Error: msgLoginFailed})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	session, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		status, msg := loginFailure(err)
		if status >= http.StatusInternalServerError {
			correlation.Logger(r.Context(), h.logger).Error("login failed", "error", err)
		}
		h.render(w, status, "login", loginPage{Title: "Login", Email: email, Error: msg})
		return
	}

	if err := h.sessions.Save(w, r, session); err != nil {
		h.logger.Error("failed to save session", "error", err)
		h.render(w, http.StatusInternalServerError, "login", loginPage{Title: "Login", Email: email, Error: msgLoginFailed})
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func loginFailure(err error) (int, string) {
	var upErr *upstream.Error
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
	case errors.As(err, &upErr) && upErr.StatusCode < http.StatusInternalServerError:
		return http.StatusUnauthorized, upErr.Message
	}
	return http.StatusBadGateway, msgLoginFailed
}

// Logout ends the session and returns to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, _, ok := h.sessions.Load(r); ok {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			correlation.Logger(r.Context(), h.logger).Warn("logout failed", "error", err)
		}
		h.consoles.Close(token)
	}
	if err := h.sessions.Clear(w, r); err != nil {
		h.logger.Error("failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type statusOption struct {
	Value    string
	Label    string
	Selected bool
}

type usersPage struct {
	Title    string
	Refresh  string
	User     model.SessionUser
	Toast    *console.Toast
	View     console.Snapshot
	Statuses []statusOption
}

// open returns the session's view, mounting it on first use.
func (h *Handler) open(r *http.Request) (*console.View, repository.DirectoryStore) {
	view, store, created := h.consoles.Open(currentSession(r).token)
	if created {
		_ = view.Mount(r.Context())
	}
	return view, store
}

// Users renders the directory. search, status and page query parameters
// update the view's filter state; reload=1 refetches from the store.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	view, _ := h.open(r)
	q := r.URL.Query()

	if q.Get("reload") != "" {
		_ = view.Reload(r.Context())
	}
	current := view.Snapshot().Filter
	if q.Has("search") && q.Get("search") != current.Search {
		view.SetSearch(q.Get("search"))
	}
	if q.Has("status") {
		status, err := model.ParseStatusFilter(q.Get("status"))
		switch {
		case err != nil:
			view.Notify(err.Error(), console.ToastError)
		case status != current.Status:
			view.SetStatus(status)
		}
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err == nil {
			err = view.GoTo(page)
		}
		if err != nil {
			view.Notify(console.ErrPageOutOfRange.Error(), console.ToastError)
		}
	}

	snap := view.Snapshot()
	statuses := make([]statusOption, 0, 3)
	for _, o := range []struct {
		f     model.StatusFilter
		label string
	}{{model.StatusAll, "All"}, {model.StatusActive, "Active"}, {model.StatusInactive, "Inactive"}} {
		statuses = append(statuses, statusOption{Value: string(o.f), Label: o.label, Selected: snap.Filter.Status == o.f})
	}
	h.render(w, http.StatusOK, "users", usersPage{
		Title:    "Users",
		User:     currentSession(r).user,
		Toast:    snap.Toast,
		View:     snap,
		Statuses: statuses,
	})
}

type formPage struct {
	Title   string
	Refresh string
	User    model.SessionUser
	Toast   *console.Toast
	Form    console.FormSnapshot
	Action  string
	Saved   bool
}

func (h *Handler) newForm(r *http.Request, id int) (*console.Form, error) {
	_, store := h.open(r)
	form := console.NewForm(store, id, h.cfg.TagLabel, h.formOptions()...)
	return form, form.Load(r.Context())
}

func formAction(id int) string {
	if id == 0 {
		return "/users/add"
	}
	return fmt.Sprintf("/users/edit/%d", id)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, form *console.Form, saved bool, refresh string) {
	snap := form.Snapshot()
	title := "Add user"
	if snap.Editing {
		title = "Edit user"
	}
	h.render(w, status, "form", formPage{
		Title:   title,
		Refresh: refresh,
		User:    currentSession(r).user,
		Toast:   snap.Toast,
		Form:    snap,
		Action:  formAction(form.ID()),
		Saved:   saved,
	})
}

// AddForm renders an empty user form.
func (h *Handler) AddForm(w http.ResponseWriter, r *http.Request) {
	form, _ := h.newForm(r, 0)
	h.renderForm(w, r, http.StatusOK, form, false, "")
}

// EditForm renders the form for an existing user. A record that cannot be
// loaded sends the user back to the directory with an error toast.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	form, err := h.newForm(r, id)
	if err != nil {
		h.backToDirectory(w, r, console.MsgUserLoadFailed)
		return
	}
	h.renderForm(w, r, http.StatusOK, form, false, "")
}

// SaveForm validates and saves a posted form. Success shows the saved page,
// which returns to the directory after the redirect delay.
func (h *Handler) SaveForm(w http.ResponseWriter, r *http.Request) {
	id := 0
	if chi.URLParam(r, "id") != "" {
		var ok bool
		if id, ok = h.pathID(w, r); !ok {
			return
		}
	}
	form, err := h.newForm(r, id)
	if err != nil {
		h.backToDirectory(w, r, console.MsgUserLoadFailed)
		return
	}

	draft, err := h.drafts.Decode(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, avatars.ErrTooLarge) || errors.Is(err, avatars.ErrUnsupportedType) {
			status = http.StatusUnprocessableEntity
		}
		form.Notify(err.Error(), console.ToastError)
		h.renderForm(w, r, status, form, false, "")
		return
	}
	fill(form, draft)

	result, err := form.Submit(r.Context())
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, false, "")
		return
	case err != nil:
		h.renderForm(w, r, http.StatusBadGateway, form, false, "")
		return
	}

	view, _ := h.open(r)
	_ = view.Saved(r.Context(), result.Message)
	delay := max(time.Until(result.CloseAt), 0)
	h.renderForm(w, r, http.StatusOK, form, true, fmt.Sprintf("%.1f;url=/users", delay.Seconds()))
}

// fill copies posted values into the form. Blank pictures keep the loaded one.
func fill(form *console.Form, d model.Draft) {
	form.Change(validation.FieldName, d.Name)
	form.Change(validation.FieldEmail, d.Email)
	form.Change(validation.FieldPhone, d.Phone)
	form.Change(validation.FieldRole, d.Role)
	form.Change(validation.FieldInitials, d.Initials)
	form.Change(console.FieldTitle, d.Title)
	if d.UserPicture != "" {
		form.Change(console.FieldUserPicture, d.UserPicture)
	}
	form.SetTags(d.Responsibilities)
}

// ToggleStatus flips a user's status.
func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, _ := h.open(r)
	_ = view.ToggleStatus(r.Context(), id)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// RequestDelete asks for confirmation before deleting a user.
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, _ := h.open(r)
	view.RequestDelete(id)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// ConfirmDelete deletes the user awaiting confirmation.
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	view, _ := h.open(r)
	_ = view.ConfirmDelete(r.Context())
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// CancelDelete dismisses the confirmation dialog.
func (h *Handler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	view, _ := h.open(r)
	view.CancelDelete()
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// DismissToast hides the directory toast.
func (h *Handler) DismissToast(w http.ResponseWriter, r *http.Request) {
	view, _ := h.open(r)
	view.DismissToast()
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) backToDirectory(w http.ResponseWriter, r *http.Request, msg string) {
	view, _ := h.open(r)
	view.Notify(msg, console.ToastError)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
