package handler

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/userdesk/backend/internal/avatars"
	"github.com/userdesk/backend/internal/model"
)

const maxFormMemory = 8 << 20

// ErrBadForm is returned when a draft cannot be read from the request.
var ErrBadForm = errors.New("invalid form")

// DraftDecoder reads a user draft from a multipart or url-encoded form.
// Free-text fields are stripped of markup; a file posted as user_picture is
// stored through the uploader and replaced by its URL.
type DraftDecoder struct {
	uploads *avatars.Uploader
	policy  *bluemonday.Policy
}

// NewDraftDecoder creates a DraftDecoder. uploads may be nil, in which case
// only picture URLs are accepted.
func NewDraftDecoder(uploads *avatars.Uploader) *DraftDecoder {
	return &DraftDecoder{uploads: uploads, policy: bluemonday.StrictPolicy()}
}

// Decode parses the request form into a Draft.
func (d *DraftDecoder) Decode(r *http.Request) (model.Draft, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return model.Draft{}, fmt.Errorf("%w: %v", ErrBadForm, err)
	}

	draft := model.Draft{
		Name:        d.text(r.FormValue("name")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Phone:       strings.TrimSpace(r.FormValue("phone")),
		Role:        strings.TrimSpace(r.FormValue("role")),
		Title:       d.text(r.FormValue("title")),
		Initials:    d.text(r.FormValue("initials")),
		UserPicture: strings.TrimSpace(r.FormValue("user_picture")),
	}

	ids, err := ParseIDs(r.Form["responsibility"])
	if err != nil {
		return model.Draft{}, err
	}
	draft.Responsibilities = ids

	if d.uploads != nil && r.MultipartForm != nil && len(r.MultipartForm.File["user_picture"]) > 0 {
		f, err := r.MultipartForm.File["user_picture"][0].Open()
		if err != nil {
			return model.Draft{}, fmt.Errorf("%w: %v", ErrBadForm, err)
		}
		defer f.Close()
		url, err := d.uploads.Upload(r.Context(), f)
		if err != nil {
			return model.Draft{}, err
		}
		draft.UserPicture = url
	}

	return draft, nil
}

// text strips markup and surrounding whitespace from a free-text value.
func (d *DraftDecoder) text(s string) string {
	return strings.TrimSpace(html.UnescapeString(d.policy.Sanitize(s)))
}

// ParseIDs reads integer ids posted either as repeated values or as a
// comma-separated list.
func ParseIDs(values []string) ([]int, error) {
	var ids []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("%w: responsibility %q is not an id", ErrBadForm, part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
