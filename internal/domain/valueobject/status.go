package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "pending"
	ComplaintStatusInProgress ComplaintStatus = "in-progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
)

// ComplaintStatuses lists every status in display order.
var ComplaintStatuses = []ComplaintStatus{
	ComplaintStatusPending,
	ComplaintStatusInProgress,
	ComplaintStatusResolved,
}

func (s ComplaintStatus) IsValid() bool {
	switch s {
	case ComplaintStatusPending, ComplaintStatusInProgress, ComplaintStatusResolved:
		return true
	}
	return false
}

// CanTransitionTo reports whether a resolver may move s to newStatus.
// The machine is fully connected: no terminal state, same-state moves allowed.
func (s ComplaintStatus) CanTransitionTo(newStatus ComplaintStatus) bool {
	return s.IsValid() && newStatus.IsValid()
}

func (s ComplaintStatus) String() string {
	return string(s)
}

func (s *ComplaintStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewComplaintStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *ComplaintStatus) UnmarshalText(text []byte) error {
	parsed, err := NewComplaintStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NewComplaintStatus parses a status. "in_progress" is accepted as an alias.
func NewComplaintStatus(status string) (ComplaintStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	if normalized == "in_progress" {
		normalized = string(ComplaintStatusInProgress)
	}
	s := ComplaintStatus(normalized)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("invalid complaint status %q", status))
	}
	return s, nil
}
