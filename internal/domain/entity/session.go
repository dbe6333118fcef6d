package entity

import (
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

// Profile carries role-specific attributes: roll number and department for
// reporters, department and title for resolvers.
type Profile struct {
	RollNumber string `json:"rollNumber,omitempty" yaml:"rollNumber,omitempty"`
	Department string `json:"department,omitempty" yaml:"department,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
}

type Session struct {
	ID          string           `json:"id" yaml:"id"`
	Email       string           `json:"email" yaml:"email"`
	Role        valueobject.Role `json:"role" yaml:"role"`
	DisplayName string           `json:"displayName" yaml:"displayName"`
	Profile     `yaml:",inline"`
	Token       string    `json:"token" yaml:"-"`
	IssuedAt    time.Time `json:"issuedAt" yaml:"issuedAt"`
}

func (s *Session) Is(role valueobject.Role) bool {
	return s != nil && s.Role == role
}

// Require returns ErrForbidden unless the session exists and holds role.
func (s *Session) Require(role valueobject.Role) error {
	if !s.Is(role) {
		return apperror.New(apperror.ErrCodeForbidden, role.String()+" role required")
	}
	return nil
}

func (s *Session) Owner() Owner {
	return Owner{
		ID:          s.ID,
		DisplayName: s.DisplayName,
		Email:       s.Email,
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
