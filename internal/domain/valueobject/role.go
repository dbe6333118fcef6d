package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

// Role is the closed set of session roles.
type Role string

const (
	RoleReporter Role = "reporter"
	RoleResolver Role = "resolver"
)

func (r Role) IsValid() bool {
	return r == RoleReporter || r == RoleResolver
}

func (r Role) String() string {
	return string(r)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// NewRole parses a role name; "student" and "faculty" map to reporter and resolver.
func NewRole(role string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "reporter", "student":
		return RoleReporter, nil
	case "resolver", "faculty":
		return RoleResolver, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("invalid role %q", role))
}
