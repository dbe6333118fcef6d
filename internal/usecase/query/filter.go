// Package query filters and aggregates complaint snapshots. Every function
// is pure: inputs are never mutated and results are fresh slices in the
// order of the input.
package query

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

// All is the filter sentinel that matches every record.
const All = "all"

// StatusFilter is either All or a concrete ComplaintStatus.
type StatusFilter string

// CategoryFilter is either All or a concrete Category.
type CategoryFilter string

const (
	AnyStatus   StatusFilter   = All
	AnyCategory CategoryFilter = All
)

func StatusIs(s valueobject.ComplaintStatus) StatusFilter {
	return StatusFilter(s)
}

func CategoryIs(c valueobject.Category) CategoryFilter {
	return CategoryFilter(c)
}

// ParseStatusFilter accepts "all" (or blank) and every status spelling
// valueobject.NewComplaintStatus accepts.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, All) {
		return AnyStatus, nil
	}
	status, err := valueobject.NewComplaintStatus(raw)
	if err != nil {
		return "", err
	}
	return StatusIs(status), nil
}

func ParseCategoryFilter(raw string) (CategoryFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, All) {
		return AnyCategory, nil
	}
	category, err := valueobject.NewCategory(raw)
	if err != nil {
		return "", err
	}
	return CategoryIs(category), nil
}

func (f StatusFilter) matches(s valueobject.ComplaintStatus) bool {
	return f == "" || f == AnyStatus || valueobject.ComplaintStatus(f) == s
}

func (f CategoryFilter) matches(c valueobject.Category) bool {
	return f == "" || f == AnyCategory || valueobject.Category(f) == c
}

// Criteria combines the three filters with AND. The zero value matches
// everything.
type Criteria struct {
	Search   string         `json:"search,omitempty" yaml:"search,omitempty"`
	Status   StatusFilter   `json:"status,omitempty" yaml:"status,omitempty"`
	Category CategoryFilter `json:"category,omitempty" yaml:"category,omitempty"`
}

// Validate rejects filters that are neither All nor a known value.
func (c Criteria) Validate() error {
	if c.Status != "" && c.Status != AnyStatus && !valueobject.ComplaintStatus(c.Status).IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "unknown status filter: "+string(c.Status))
	}
	if c.Category != "" && c.Category != AnyCategory && !valueobject.Category(c.Category).IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "unknown category filter: "+string(c.Category))
	}
	return nil
}

// FilterBySearch keeps records whose title, description or owner display
// name contains term, compared under Unicode case folding. An empty term
// keeps everything; whitespace in a non-empty term is matched literally.
func FilterBySearch(records []entity.Complaint, term string) []entity.Complaint {
	if term == "" {
		return keep(records, func(entity.Complaint) bool { return true })
	}

	fold := cases.Fold()
	needle := fold.String(term)
	return keep(records, func(c entity.Complaint) bool {
		return strings.Contains(fold.String(c.Title), needle) ||
			strings.Contains(fold.String(c.Description), needle) ||
			strings.Contains(fold.String(c.OwnerDisplayName), needle)
	})
}

func FilterByStatus(records []entity.Complaint, f StatusFilter) []entity.Complaint {
	return keep(records, func(c entity.Complaint) bool { return f.matches(c.Status) })
}

func FilterByCategory(records []entity.Complaint, f CategoryFilter) []entity.Complaint {
	return keep(records, func(c entity.Complaint) bool { return f.matches(c.Category) })
}

// Apply runs all three filters in one pass.
func Apply(records []entity.Complaint, c Criteria) []entity.Complaint {
	search := c.Search
	fold := cases.Fold()
	needle := fold.String(search)

	return keep(records, func(r entity.Complaint) bool {
		if !c.Status.matches(r.Status) || !c.Category.matches(r.Category) {
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(fold.String(r.Title), needle) ||
			strings.Contains(fold.String(r.Description), needle) ||
			strings.Contains(fold.String(r.OwnerDisplayName), needle)
	})
}

func keep(records []entity.Complaint, pred func(entity.Complaint) bool) []entity.Complaint {
	out := make([]entity.Complaint, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
