// Package console implements the directory view and user form state machines
// that back the web console.
package console

import (
	"errors"
	"strings"

	"github.com/userdesk/backend/internal/model"
)

// PageSize is the number of rows per directory page.
const PageSize = 10

// ErrPageOutOfRange is returned for a page below 1 or beyond the last page.
var ErrPageOutOfRange = errors.New("page out of range")

// Filter is the search and status narrowing applied to the directory.
type Filter struct {
	Search string
	Status model.StatusFilter
}

// Match reports whether u passes the filter: the search term is a
// case-insensitive substring of the first name or the email, and the status
// agrees unless the filter is "all".
func (f Filter) Match(u model.User) bool {
	term := strings.ToLower(f.Search)
	if term != "" &&
		!strings.Contains(strings.ToLower(u.FirstName), term) &&
		!strings.Contains(strings.ToLower(u.Email), term) {
		return false
	}
	return f.Status.Matches(u.Status)
}

// Apply returns the users passing f, preserving order.
func Apply(users []model.User, f Filter) []model.User {
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if f.Match(u) {
			out = append(out, u)
		}
	}
	return out
}

// TotalPages returns ceil(n / PageSize).
func TotalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// Page is one page of a filtered directory.
type Page struct {
	Users      []model.User
	Number     int
	TotalPages int
	Total      int
	// Offset is the zero-based index of the first row, for row numbering.
	Offset int
}

// Paginate slices users to the given 1-based page. An empty set has a single
// empty page 1.
func Paginate(users []model.User, page int) (Page, error) {
	total := TotalPages(len(users))
	last := max(total, 1)
	if page < 1 || page > last {
		return Page{}, ErrPageOutOfRange
	}

	start := (page - 1) * PageSize
	end := min(start+PageSize, len(users))
	return Page{
		Users:      users[start:end],
		Number:     page,
		TotalPages: total,
		Total:      len(users),
		Offset:     start,
	}, nil
}
