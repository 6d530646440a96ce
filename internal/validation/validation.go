// Package validation holds the field checks shared by the user form and the
// REST surface. Each check returns a human-readable message, or "" when the
// value is acceptable.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/userdesk/backend/internal/model"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
	maxInitials    = 3
)

// Required reports a missing value.
func Required(value, fieldName string) string {
	if value == "" {
		return fieldName + " is required"
	}
	return ""
}

// RequiredSet reports an empty multi-select.
func RequiredSet(values []int, fieldName string) string {
	if len(values) == 0 {
		return fieldName + " is required"
	}
	return ""
}

// Email checks presence and the loose address shape.
func Email(email string) string {
	if email == "" {
		return "Email is required"
	}
	if !emailPattern.MatchString(email) {
		return "Please enter a valid email address"
	}
	return ""
}

// Phone accepts an empty value; otherwise 10-15 digits only.
func Phone(phone string) string {
	if phone == "" {
		return ""
	}
	if !digitsPattern.MatchString(phone) {
		return "Phone number must contain only digits"
	}
	if len(phone) < minPhoneDigits || len(phone) > maxPhoneDigits {
		return fmt.Sprintf("Phone number must be between %d-%d digits", minPhoneDigits, maxPhoneDigits)
	}
	return ""
}

// Initials accepts up to three characters.
func Initials(initials string) string {
	if len([]rune(initials)) > maxInitials {
		return fmt.Sprintf("Initials must be at most %d characters", maxInitials)
	}
	return ""
}

// Errors maps a field name to its message. Empty messages mean the field passed.
type Errors map[string]string

// Set records msg for field; empty messages are kept so a field can be cleared.
func (e Errors) Set(field, msg string) {
	e[field] = msg
}

// OK reports whether every recorded message is empty.
func (e Errors) OK() bool {
	for _, msg := range e {
		if msg != "" {
			return false
		}
	}
	return true
}

// Failed returns only the non-empty messages.
func (e Errors) Failed() map[string]string {
	out := make(map[string]string)
	for f, msg := range e {
		if msg != "" {
			out[f] = msg
		}
	}
	return out
}

// Error joins failing fields in a stable order.
func (e Errors) Error() string {
	failed := e.Failed()
	fields := make([]string, 0, len(failed))
	for f := range failed {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, failed[f])
	}
	return strings.Join(parts, "; ")
}

// Draft field names, used as Errors keys.
const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldRole           = "role"
	FieldInitials       = "initials"
	FieldResponsibility = "responsibility"
)

// DraftFields lists every validated draft field in form order.
var DraftFields = []string{FieldName, FieldEmail, FieldPhone, FieldRole, FieldResponsibility, FieldInitials}

// DraftField validates one field of d. tagLabel names the multi-select in its
// message ("Responsibility" or "Designation").
func DraftField(d model.Draft, field, tagLabel string) string {
	switch field {
	case FieldName:
		return Required(strings.TrimSpace(d.Name), "Name")
	case FieldEmail:
		return Email(strings.TrimSpace(d.Email))
	case FieldPhone:
		return Phone(strings.TrimSpace(d.Phone))
	case FieldRole:
		return Required(strings.TrimSpace(d.Role), "Role")
	case FieldResponsibility:
		return RequiredSet(d.Responsibilities, tagLabel)
	case FieldInitials:
		return Initials(d.Initials)
	}
	return ""
}

// Draft validates every field of d.
func Draft(d model.Draft, tagLabel string) Errors {
	errs := make(Errors, len(DraftFields))
	for _, f := range DraftFields {
		errs.Set(f, DraftField(d, f, tagLabel))
	}
	return errs
}
