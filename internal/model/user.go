package model

import (
	"net/url"
	"strconv"
	"strings"
)

// PlaceholderAvatarBase generates an initials avatar keyed by name.
const PlaceholderAvatarBase = "https://ui-avatars.com/api/?name="

// User is a directory record.
type User struct {
	ID               int     `json:"id" db:"id"`
	FirstName        string  `json:"first_name" db:"first_name"`
	LastName         *string `json:"last_name" db:"last_name"`
	Title            *string `json:"title" db:"title"`
	Initials         *string `json:"initials" db:"initials"`
	RoleType         string  `json:"role_type" db:"role_type"`
	Email            string  `json:"email" db:"email"`
	Phone            *string `json:"phone" db:"phone"`
	ProfileImage     *string `json:"profile_image" db:"profile_image"`
	Status           bool    `json:"status" db:"status"`
	ProfileImageURL  string  `json:"profile_image_url" db:"profile_image_url"`
	Role             Role    `json:"role"`
	Responsibilities []int   `json:"responsibilities,omitempty"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	if u.LastName == nil || *u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + *u.LastName
}

// Clone returns a deep copy so callers cannot alias store-owned memory.
func (u User) Clone() User {
	c := u
	c.LastName = cloneStr(u.LastName)
	c.Title = cloneStr(u.Title)
	c.Initials = cloneStr(u.Initials)
	c.Phone = cloneStr(u.Phone)
	c.ProfileImage = cloneStr(u.ProfileImage)
	if u.Responsibilities != nil {
		c.Responsibilities = append([]int(nil), u.Responsibilities...)
	}
	return c
}

// Draft is a submitted user form. Role carries the selected role id as text,
// the way the form posts it.
type Draft struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Role             string `json:"role"`
	Title            string `json:"title"`
	Initials         string `json:"initials"`
	UserPicture      string `json:"user_picture"`
	Responsibilities []int  `json:"responsibility"`
}

// RoleID parses the submitted role id; ok is false when it is not a number.
func (d Draft) RoleID() (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(d.Role))
	return id, err == nil
}

// AvatarURL returns the picture reference when set, otherwise a generated
// placeholder for name.
func AvatarURL(picture, name string) string {
	if picture != "" {
		return picture
	}
	return PlaceholderAvatarBase + url.QueryEscape(name)
}

// OptionalString maps "" to nil.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
