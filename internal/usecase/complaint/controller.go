package complaint

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/repository"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/MohammedShoaib07/campus-care/internal/metrics"
	"github.com/MohammedShoaib07/campus-care/internal/storage"
	"github.com/MohammedShoaib07/campus-care/internal/usecase/query"
)

// Controller bundles the lifecycle use cases behind one value, the way a UI
// or the CLI consumes them.
type Controller struct {
	submit       *SubmitComplaintUseCase
	attachImage  *AttachImageUseCase
	resolveImage *ResolveImageUseCase
	setStatus    *SetStatusUseCase
	addComment   *AddCommentUseCase
	reporterView *ReporterViewUseCase
	resolverView *ResolverViewUseCase
	dashboard    *DashboardUseCase
	log          logrus.FieldLogger
}

func NewController(complaintRepo repository.ComplaintRepository, assets storage.AssetStore, m *metrics.Recorder, log logrus.FieldLogger) *Controller {
	return &Controller{
		submit:       NewSubmitComplaintUseCase(complaintRepo, m),
		attachImage:  NewAttachImageUseCase(assets),
		resolveImage: NewResolveImageUseCase(assets),
		setStatus:    NewSetStatusUseCase(complaintRepo, m),
		addComment:   NewAddCommentUseCase(complaintRepo, m),
		reporterView: NewReporterViewUseCase(complaintRepo),
		resolverView: NewResolverViewUseCase(complaintRepo),
		dashboard:    NewDashboardUseCase(complaintRepo),
		log:          logger.OrDiscard(log),
	}
}

func (c *Controller) Submit(ctx context.Context, actor *entity.Session, draft entity.ComplaintDraft) (*entity.Complaint, error) {
	created, err := c.submit.Execute(ctx, actor, draft)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"complaint_id": created.ID,
		"category":     created.Category,
		"anonymous":    created.IsAnonymous,
	}).Info("complaint submitted")
	return created, nil
}

func (c *Controller) AttachImage(ctx context.Context, actor *entity.Session, data []byte) (string, error) {
	return c.attachImage.Execute(ctx, actor, data)
}

func (c *Controller) ResolveImage(ctx context.Context, actor *entity.Session, ref string) (string, error) {
	return c.resolveImage.Execute(ctx, actor, ref)
}

func (c *Controller) SetStatus(ctx context.Context, actor *entity.Session, id string, status valueobject.ComplaintStatus) (*entity.Complaint, error) {
	updated, err := c.setStatus.Execute(ctx, actor, id, status)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"complaint_id": id,
		"status":       status,
	}).Info("complaint status updated")
	return updated, nil
}

func (c *Controller) AddComment(ctx context.Context, actor *entity.Session, id, text string) (*entity.Complaint, error) {
	updated, err := c.addComment.Execute(ctx, actor, id, text)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"complaint_id": id,
		"comments":     len(updated.ResolverComments),
	}).Info("resolver comment added")
	return updated, nil
}

func (c *Controller) ReporterView(ctx context.Context, actor *entity.Session) ([]entity.Complaint, error) {
	return c.reporterView.Execute(ctx, actor)
}

func (c *Controller) ResolverView(ctx context.Context, actor *entity.Session, criteria query.Criteria) ([]entity.Complaint, error) {
	return c.resolverView.Execute(ctx, actor, criteria)
}

func (c *Controller) Dashboard(ctx context.Context, actor *entity.Session) (query.Stats, error) {
	return c.dashboard.Execute(ctx, actor)
}

// View returns the listing for the actor's role. For reporters the criteria
// narrow their own complaints.
func (c *Controller) View(ctx context.Context, actor *entity.Session, criteria query.Criteria) ([]entity.Complaint, error) {
	if actor.Is(valueobject.RoleResolver) {
		return c.ResolverView(ctx, actor, criteria)
	}
	records, err := c.ReporterView(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	return query.Apply(records, criteria), nil
}
