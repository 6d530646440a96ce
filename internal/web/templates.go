package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/userdesk/backend/internal/console"
	"github.com/userdesk/backend/internal/model"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"pageURL": pageURL,
	"pages": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
	"add":  func(a, b int) int { return a + b },
	"itoa": strconv.Itoa,
	"statusLabel": func(active bool) string {
		if active {
			return "Active"
		}
		return "Inactive"
	},
	"phone":    func(u model.User) string { return model.Deref(u.Phone) },
	"fullName": func(u model.User) string { return u.FullName() },
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// pageURL links to page n of the directory under filter f.
func pageURL(f console.Filter, n int) string {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" && f.Status != model.StatusAll {
		q.Set("status", string(f.Status))
	}
	q.Set("page", strconv.Itoa(n))
	return "/users?" + q.Encode()
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
