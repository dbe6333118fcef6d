// Package complaint holds the lifecycle operations: reporters submit,
// resolvers move status and comment, and both read role-shaped views.
package complaint

import (
	"context"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/repository"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/metrics"
	"github.com/MohammedShoaib07/campus-care/internal/storage"
)

type SubmitComplaintUseCase struct {
	complaintRepo repository.ComplaintRepository
	metrics       *metrics.Recorder
}

func NewSubmitComplaintUseCase(complaintRepo repository.ComplaintRepository, m *metrics.Recorder) *SubmitComplaintUseCase {
	return &SubmitComplaintUseCase{complaintRepo: complaintRepo, metrics: m}
}

// Execute files draft on behalf of actor, who must be a reporter. Anonymous
// drafts are stored under the "Anonymous" display name from the start.
func (uc *SubmitComplaintUseCase) Execute(ctx context.Context, actor *entity.Session, draft entity.ComplaintDraft) (*entity.Complaint, error) {
	if err := actor.Require(valueobject.RoleReporter); err != nil {
		return nil, err
	}

	draft = draft.Normalized()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	created, err := uc.complaintRepo.Create(ctx, draft, actor.Owner())
	if err != nil {
		return nil, err
	}

	uc.metrics.ComplaintSubmitted(created.Category.String())
	return created, nil
}

type AttachImageUseCase struct {
	assets storage.AssetStore
}

func NewAttachImageUseCase(assets storage.AssetStore) *AttachImageUseCase {
	return &AttachImageUseCase{assets: assets}
}

// Execute uploads an evidence image for a complaint that is about to be
// submitted and returns its reference for ComplaintDraft.ImageRef.
func (uc *AttachImageUseCase) Execute(ctx context.Context, actor *entity.Session, data []byte) (string, error) {
	if err := actor.Require(valueobject.RoleReporter); err != nil {
		return "", err
	}
	return uc.assets.Store(ctx, data)
}
