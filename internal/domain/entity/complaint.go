package entity

import (
	"slices"
	"strings"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
	"github.com/MohammedShoaib07/campus-care/internal/validation"
)

// AnonymousDisplayName replaces the owner name of anonymous complaints.
const AnonymousDisplayName = "Anonymous"

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

type Complaint struct {
	ID               string                      `json:"id" yaml:"id"`
	OwnerID          string                      `json:"ownerId" yaml:"ownerId"`
	OwnerDisplayName string                      `json:"ownerDisplayName" yaml:"ownerDisplayName"`
	OwnerEmail       string                      `json:"ownerEmail" yaml:"ownerEmail"`
	Category         valueobject.Category        `json:"category" yaml:"category"`
	Title            string                      `json:"title" yaml:"title"`
	Description      string                      `json:"description" yaml:"description"`
	Status           valueobject.ComplaintStatus `json:"status" yaml:"status"`
	IsAnonymous      bool                        `json:"isAnonymous" yaml:"isAnonymous"`
	ImageRef         string                      `json:"imageRef,omitempty" yaml:"imageRef,omitempty"`
	ResolverComments []string                    `json:"resolverComments" yaml:"resolverComments"`
	CreatedAt        time.Time                   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt" yaml:"updatedAt"`
}

// Owner identifies the reporter a complaint is filed for.
type Owner struct {
	ID          string
	DisplayName string
	Email       string
}

// ComplaintDraft is what a reporter fills in before submitting.
type ComplaintDraft struct {
	Category    valueobject.Category
	Title       string
	Description string
	IsAnonymous bool
	ImageRef    string
}

// Normalized returns a copy with surrounding whitespace removed.
func (d ComplaintDraft) Normalized() ComplaintDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.ImageRef = strings.TrimSpace(d.ImageRef)
	return d
}

func (d ComplaintDraft) Validate() error {
	if validation.IsBlank(d.Title) {
		return apperror.New(apperror.ErrCodeMissingField, "title is required")
	}
	if validation.IsBlank(d.Description) {
		return apperror.New(apperror.ErrCodeMissingField, "description is required")
	}
	if err := validation.ValidateLength("title", d.Title, 1, MaxTitleLength); err != nil {
		return err
	}
	if err := validation.ValidateLength("description", d.Description, 1, MaxDescriptionLength); err != nil {
		return err
	}
	if !d.Category.IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "invalid complaint category")
	}
	return nil
}

// ComplaintPatch enumerates the fields a resolver may change.
// A nil field is left untouched.
type ComplaintPatch struct {
	Status           *valueobject.ComplaintStatus
	ResolverComments []string
	ImageRef         *string

	// ExpectedUpdatedAt, when set, must equal the stored updatedAt or the
	// update is rejected with a conflict.
	ExpectedUpdatedAt *time.Time
}

func (p ComplaintPatch) IsEmpty() bool {
	return p.Status == nil && p.ResolverComments == nil && p.ImageRef == nil
}

func (p ComplaintPatch) Validate() error {
	if p.IsEmpty() {
		return apperror.New(apperror.ErrCodeValidation, "patch changes nothing")
	}
	if p.Status != nil && !p.Status.IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "invalid complaint status")
	}
	return nil
}

// NewComplaint builds a pending complaint from a validated draft.
func NewComplaint(id string, draft ComplaintDraft, owner Owner, now time.Time) (*Complaint, error) {
	draft = draft.Normalized()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if id == "" || owner.ID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "complaint id and owner are required")
	}

	displayName := owner.DisplayName
	if draft.IsAnonymous {
		displayName = AnonymousDisplayName
	}

	now = now.UTC()
	return &Complaint{
		ID:               id,
		OwnerID:          owner.ID,
		OwnerDisplayName: displayName,
		OwnerEmail:       owner.Email,
		Category:         draft.Category,
		Title:            draft.Title,
		Description:      draft.Description,
		Status:           valueobject.ComplaintStatusPending,
		IsAnonymous:      draft.IsAnonymous,
		ImageRef:         draft.ImageRef,
		ResolverComments: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Apply merges p into c and advances UpdatedAt. Comments may only grow:
// the new slice must start with the current one.
func (c *Complaint) Apply(p ComplaintPatch, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ExpectedUpdatedAt != nil && !p.ExpectedUpdatedAt.Equal(c.UpdatedAt) {
		return apperror.ErrConflict
	}
	if p.ResolverComments != nil {
		if len(p.ResolverComments) < len(c.ResolverComments) ||
			!slices.Equal(p.ResolverComments[:len(c.ResolverComments)], c.ResolverComments) {
			return apperror.New(apperror.ErrCodeValidation, "resolver comments are append-only")
		}
	}

	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.ResolverComments != nil {
		c.ResolverComments = slices.Clone(p.ResolverComments)
	}
	if p.ImageRef != nil {
		c.ImageRef = strings.TrimSpace(*p.ImageRef)
	}

	now = now.UTC()
	if !now.After(c.UpdatedAt) {
		now = c.UpdatedAt.Add(time.Nanosecond)
	}
	c.UpdatedAt = now
	return nil
}

func (c *Complaint) IsOwnedBy(ownerID string) bool {
	return c.OwnerID == ownerID
}

func (c Complaint) Clone() Complaint {
	c.ResolverComments = slices.Clone(c.ResolverComments)
	if c.ResolverComments == nil {
		c.ResolverComments = []string{}
	}
	return c
}

// Redacted is the resolver-facing copy: anonymous complaints lose the
// owner's name and email.
func (c Complaint) Redacted() Complaint {
	out := c.Clone()
	if out.IsAnonymous {
		out.OwnerDisplayName = AnonymousDisplayName
		out.OwnerEmail = ""
	}
	return out
}

// LatestComment returns the last resolver comment, if any.
func (c Complaint) LatestComment() (string, bool) {
	if len(c.ResolverComments) == 0 {
		return "", false
	}
	return c.ResolverComments[len(c.ResolverComments)-1], true
}
