package repository

import (
	"context"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
)

// ComplaintRepository is the record store. Reads return snapshots ordered
// most recently created first; updates never reorder.
type ComplaintRepository interface {
	Create(ctx context.Context, draft entity.ComplaintDraft, owner entity.Owner) (*entity.Complaint, error)
	Update(ctx context.Context, id string, patch entity.ComplaintPatch) (*entity.Complaint, error)
	FindByID(ctx context.Context, id string) (*entity.Complaint, error)
	All(ctx context.Context) ([]entity.Complaint, error)
	ByOwner(ctx context.Context, ownerID string) ([]entity.Complaint, error)
}
