package complaint

import (
	"context"
	"slices"
	"strings"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/repository"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/metrics"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
	"github.com/MohammedShoaib07/campus-care/internal/validation"
)

type SetStatusUseCase struct {
	complaintRepo repository.ComplaintRepository
	metrics       *metrics.Recorder
}

func NewSetStatusUseCase(complaintRepo repository.ComplaintRepository, m *metrics.Recorder) *SetStatusUseCase {
	return &SetStatusUseCase{complaintRepo: complaintRepo, metrics: m}
}

// Execute moves the complaint to status. Any status may follow any other,
// including itself; updatedAt advances either way.
func (uc *SetStatusUseCase) Execute(ctx context.Context, actor *entity.Session, id string, status valueobject.ComplaintStatus) (*entity.Complaint, error) {
	if err := actor.Require(valueobject.RoleResolver); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "invalid complaint status: "+string(status))
	}

	updated, err := uc.complaintRepo.Update(ctx, id, entity.ComplaintPatch{Status: &status})
	if err != nil {
		return nil, err
	}

	uc.metrics.StatusChanged(status.String())
	return updated, nil
}

type AddCommentUseCase struct {
	complaintRepo repository.ComplaintRepository
	metrics       *metrics.Recorder
}

func NewAddCommentUseCase(complaintRepo repository.ComplaintRepository, m *metrics.Recorder) *AddCommentUseCase {
	return &AddCommentUseCase{complaintRepo: complaintRepo, metrics: m}
}

// Execute appends "<resolver name>: <text>" to the complaint's comments.
// The update is conditional on the record being unchanged since it was read,
// so a concurrent write fails with a conflict instead of losing a comment.
func (uc *AddCommentUseCase) Execute(ctx context.Context, actor *entity.Session, id, text string) (*entity.Complaint, error) {
	if err := actor.Require(valueobject.RoleResolver); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ErrEmptyComment
	}
	if err := validation.ValidateLength("comment", text, 0, validation.MaxCommentLength); err != nil {
		return nil, err
	}

	current, err := uc.complaintRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comments := append(slices.Clone(current.ResolverComments), FormatComment(actor.DisplayName, text))
	updated, err := uc.complaintRepo.Update(ctx, id, entity.ComplaintPatch{
		ResolverComments:  comments,
		ExpectedUpdatedAt: &current.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.CommentAdded()
	return updated, nil
}

// FormatComment renders a resolver comment as stored.
func FormatComment(author, text string) string {
	return author + ": " + text
}
