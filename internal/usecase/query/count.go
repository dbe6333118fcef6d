package query

import (
	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
)

// CountByStatus always has a key for every status; the values sum to
// len(records).
func CountByStatus(records []entity.Complaint) map[valueobject.ComplaintStatus]int {
	counts := make(map[valueobject.ComplaintStatus]int, len(valueobject.ComplaintStatuses))
	for _, s := range valueobject.ComplaintStatuses {
		counts[s] = 0
	}
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

func CountByCategory(records []entity.Complaint) map[valueobject.Category]int {
	counts := make(map[valueobject.Category]int, len(valueobject.Categories))
	for _, c := range valueobject.Categories {
		counts[c] = 0
	}
	for _, r := range records {
		counts[r.Category]++
	}
	return counts
}

// Stats is the resolver dashboard summary.
type Stats struct {
	Total      int                                 `json:"total" yaml:"total"`
	ByStatus   map[valueobject.ComplaintStatus]int `json:"byStatus" yaml:"byStatus"`
	ByCategory map[valueobject.Category]int        `json:"byCategory" yaml:"byCategory"`
}

func Summarize(records []entity.Complaint) Stats {
	return Stats{
		Total:      len(records),
		ByStatus:   CountByStatus(records),
		ByCategory: CountByCategory(records),
	}
}
