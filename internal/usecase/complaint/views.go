package complaint

import (
	"context"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/repository"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
	"github.com/MohammedShoaib07/campus-care/internal/storage"
	"github.com/MohammedShoaib07/campus-care/internal/usecase/query"
)

type ReporterViewUseCase struct {
	complaintRepo repository.ComplaintRepository
}

func NewReporterViewUseCase(complaintRepo repository.ComplaintRepository) *ReporterViewUseCase {
	return &ReporterViewUseCase{complaintRepo: complaintRepo}
}

// Execute lists the actor's own complaints, most recent first. The owner
// always sees their own name, even on anonymous complaints.
func (uc *ReporterViewUseCase) Execute(ctx context.Context, actor *entity.Session) ([]entity.Complaint, error) {
	if err := actor.Require(valueobject.RoleReporter); err != nil {
		return nil, err
	}

	records, err := uc.complaintRepo.ByOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].OwnerDisplayName = actor.DisplayName
	}
	return records, nil
}

type ResolverViewUseCase struct {
	complaintRepo repository.ComplaintRepository
}

func NewResolverViewUseCase(complaintRepo repository.ComplaintRepository) *ResolverViewUseCase {
	return &ResolverViewUseCase{complaintRepo: complaintRepo}
}

// Execute lists every complaint matching criteria with anonymous owners
// redacted.
func (uc *ResolverViewUseCase) Execute(ctx context.Context, actor *entity.Session, criteria query.Criteria) ([]entity.Complaint, error) {
	if err := actor.Require(valueobject.RoleResolver); err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	records, err := uc.complaintRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i] = records[i].Redacted()
	}
	return query.Apply(records, criteria), nil
}

type DashboardUseCase struct {
	complaintRepo repository.ComplaintRepository
}

func NewDashboardUseCase(complaintRepo repository.ComplaintRepository) *DashboardUseCase {
	return &DashboardUseCase{complaintRepo: complaintRepo}
}

func (uc *DashboardUseCase) Execute(ctx context.Context, actor *entity.Session) (query.Stats, error) {
	if err := actor.Require(valueobject.RoleResolver); err != nil {
		return query.Stats{}, err
	}

	records, err := uc.complaintRepo.All(ctx)
	if err != nil {
		return query.Stats{}, err
	}
	return query.Summarize(records), nil
}

type ResolveImageUseCase struct {
	assets storage.AssetStore
}

func NewResolveImageUseCase(assets storage.AssetStore) *ResolveImageUseCase {
	return &ResolveImageUseCase{assets: assets}
}

// Execute turns an image reference into a displayable locator. Any signed-in
// user may resolve images.
func (uc *ResolveImageUseCase) Execute(ctx context.Context, actor *entity.Session, ref string) (string, error) {
	if actor == nil {
		return "", apperror.ErrForbidden
	}
	return uc.assets.Resolve(ctx, ref)
}
