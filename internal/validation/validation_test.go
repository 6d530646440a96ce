package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/userdesk/backend/internal/model"
)

func TestRequired(t *testing.T) {
	assert.Equal(t, "Name is required", Required("", "Name"))
	assert.Empty(t, Required("Ada", "Name"))
}

func TestRequiredSet(t *testing.T) {
	assert.Equal(t, "Responsibility is required", RequiredSet(nil, "Responsibility"))
	assert.Equal(t, "Designation is required", RequiredSet([]int{}, "Designation"))
	assert.Empty(t, RequiredSet([]int{1}, "Responsibility"))
}

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "Email is required"},
		{"plain", "Please enter a valid email address"},
		{"a@b", "Please enter a valid email address"},
		{"a b@c.de", "Please enter a valid email address"},
		{"a@@b.c", "Please enter a valid email address"},
		{"admin2@gmail.com", ""},
		{"x@y.z", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.in))
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty is allowed", "", ""},
		{"letters", "12345abcde", "Phone number must contain only digits"},
		{"plus sign", "+1234567890", "Phone number must contain only digits"},
		{"too short", "123456789", "Phone number must be between 10-15 digits"},
		{"too long", strings.Repeat("1", 16), "Phone number must be between 10-15 digits"},
		{"min", "1234567890", ""},
		{"max", strings.Repeat("9", 15), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.in))
		})
	}
}

func TestInitials(t *testing.T) {
	assert.Empty(t, Initials(""))
	assert.Empty(t, Initials("ABC"))
	assert.NotEmpty(t, Initials("ABCD"))
}

func TestErrors(t *testing.T) {
	errs := Errors{}
	errs.Set("name", "")
	assert.True(t, errs.OK())

	errs.Set("phone", "Phone number must contain only digits")
	errs.Set("email", "Email is required")
	assert.False(t, errs.OK())
	assert.Len(t, errs.Failed(), 2)
	assert.Equal(t, "Email is required; Phone number must contain only digits", errs.Error())
}

func TestDraft(t *testing.T) {
	errs := Draft(model.Draft{Name: "  ", Email: "bad", Phone: "12ab"}, "Designation")
	assert.False(t, errs.OK())
	assert.Equal(t, map[string]string{
		FieldName:           "Name is required",
		FieldEmail:          "Please enter a valid email address",
		FieldPhone:          "Phone number must contain only digits",
		FieldRole:           "Role is required",
		FieldResponsibility: "Designation is required",
	}, errs.Failed())

	valid := model.Draft{
		Name:             "Ada",
		Email:            "ada@example.com",
		Phone:            "0123456789",
		Role:             "4",
		Initials:         "AL",
		Responsibilities: []int{1},
	}
	assert.True(t, Draft(valid, "Responsibility").OK())
	assert.Empty(t, DraftField(valid, "unknown", "Responsibility"))
}
