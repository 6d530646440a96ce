// Package seed loads the directory's reference data (roles, responsibilities
// and the initial user set) from an HCL file.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/userdesk/backend/internal/model"
)

//go:embed default.hcl
var defaultSeed []byte

// Data is the decoded seed.
type Data struct {
	Roles            []model.Role
	Responsibilities []model.Responsibility
	Users            []model.User
}

type file struct {
	Roles            []model.Role           `hcl:"role,block"`
	Responsibilities []model.Responsibility `hcl:"responsibility,block"`
	Users            []userBlock            `hcl:"user,block"`
}

type userBlock struct {
	ID               int     `hcl:"id"`
	FirstName        string  `hcl:"first_name"`
	LastName         *string `hcl:"last_name,optional"`
	Title            *string `hcl:"title,optional"`
	Initials         *string `hcl:"initials,optional"`
	Email            string  `hcl:"email"`
	Phone            *string `hcl:"phone,optional"`
	Role             int     `hcl:"role"`
	Active           *bool   `hcl:"active,optional"`
	ProfileImage     *string `hcl:"profile_image,optional"`
	Responsibilities []int   `hcl:"responsibilities,optional"`
}

// Default returns the embedded seed.
func Default() (*Data, error) {
	return Parse(defaultSeed, "default.hcl")
}

// Load reads a seed file from disk. An empty path yields the embedded seed.
func Load(path string) (*Data, error) {
	if path == "" {
		return Default()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes seed source. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Data, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse seed: %s", diagSummary(diags))
	}

	var raw file
	if diags := gohcl.DecodeBody(f.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decode seed: %s", diagSummary(diags))
	}

	data := &Data{
		Roles:            raw.Roles,
		Responsibilities: raw.Responsibilities,
		Users:            make([]model.User, 0, len(raw.Users)),
	}

	seen := make(map[int]bool, len(raw.Users))
	for _, ub := range raw.Users {
		if seen[ub.ID] {
			return nil, fmt.Errorf("decode seed: duplicate user id %d", ub.ID)
		}
		seen[ub.ID] = true
		data.Users = append(data.Users, ub.toUser(data.Roles))
	}
	return data, nil
}

func (ub userBlock) toUser(roles []model.Role) model.User {
	role, ok := model.FindRole(roles, ub.Role)
	if !ok {
		role = model.DefaultRole
	}
	active := true
	if ub.Active != nil {
		active = *ub.Active
	}
	return model.User{
		ID:               ub.ID,
		FirstName:        ub.FirstName,
		LastName:         ub.LastName,
		Title:            ub.Title,
		Initials:         ub.Initials,
		RoleType:         fmt.Sprint(ub.Role),
		Email:            ub.Email,
		Phone:            ub.Phone,
		ProfileImage:     ub.ProfileImage,
		Status:           active,
		ProfileImageURL:  model.AvatarURL(model.Deref(ub.ProfileImage), ub.FirstName),
		Role:             role,
		Responsibilities: ub.Responsibilities,
	}
}

func diagSummary(diags hcl.Diagnostics) string {
	for _, d := range diags {
		if d.Severity == hcl.DiagError {
			if d.Subject != nil {
				return fmt.Sprintf("%s: %s (%s)", d.Summary, d.Detail, d.Subject.String())
			}
			return d.Summary + ": " + d.Detail
		}
	}
	return diags.Error()
}
