package persistence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/infrastructure/kv"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/MohammedShoaib07/campus-care/internal/metrics"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ComplaintsKey is the kv key holding the JSON array of complaints.
const ComplaintsKey = "complaints"

// ComplaintStore keeps the whole complaint collection under one key and
// rewrites it on every mutation. Writers inside one process are
// serialized; across processes the last snapshot written wins.
type ComplaintStore struct {
	kv      kv.Store
	log     logrus.FieldLogger
	metrics *metrics.Recorder
	now     func() time.Time
	newID   func(time.Time) string

	mu sync.Mutex
}

type ComplaintStoreOption func(*ComplaintStore)

func WithClock(now func() time.Time) ComplaintStoreOption {
	return func(s *ComplaintStore) { s.now = now }
}

func WithIDGenerator(gen func(time.Time) string) ComplaintStoreOption {
	return func(s *ComplaintStore) { s.newID = gen }
}

func WithMetrics(m *metrics.Recorder) ComplaintStoreOption {
	return func(s *ComplaintStore) { s.metrics = m }
}

func NewComplaintStore(store kv.Store, log logrus.FieldLogger, opts ...ComplaintStoreOption) *ComplaintStore {
	s := &ComplaintStore{
		kv:    store,
		log:   logger.OrDiscard(log),
		now:   time.Now,
		newID: NewComplaintID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewComplaintID returns "complaint_<unix ms>_<9 base36 chars>", the random
// part taken from a v4 UUID.
func NewComplaintID(now time.Time) string {
	const suffixLen = 9
	const space = 101559956668416 // 36^9

	u := uuid.New()
	n := binary.BigEndian.Uint64(u[8:]) % space
	suffix := strconv.FormatUint(n, 36)
	suffix = strings.Repeat("0", suffixLen-len(suffix)) + suffix

	return fmt.Sprintf("complaint_%d_%s", now.UnixMilli(), suffix)
}

func (s *ComplaintStore) Create(ctx context.Context, draft entity.ComplaintDraft, owner entity.Owner) (*entity.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	id := s.newID(now)
	for indexOf(list, id) >= 0 {
		id = s.newID(now)
	}

	complaint, err := entity.NewComplaint(id, draft, owner, now)
	if err != nil {
		return nil, err
	}

	list = append([]entity.Complaint{*complaint}, list...)
	if err := s.persist(ctx, list); err != nil {
		return nil, err
	}

	created := complaint.Clone()
	return &created, nil
}

// Update merges patch into the stored record. updatedAt is always advanced,
// even when the patch repeats current values.
func (s *ComplaintStore) Update(ctx context.Context, id string, patch entity.ComplaintPatch) (*entity.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexOf(list, id)
	if idx < 0 {
		return nil, notFound(id)
	}

	updated := list[idx]
	if err := updated.Apply(patch, s.now()); err != nil {
		return nil, err
	}
	list[idx] = updated

	if err := s.persist(ctx, list); err != nil {
		return nil, err
	}

	out := updated.Clone()
	return &out, nil
}

func (s *ComplaintStore) FindByID(ctx context.Context, id string) (*entity.Complaint, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, notFound(id)
	}
	out := list[idx].Clone()
	return &out, nil
}

// All returns a snapshot, most recently created first.
func (s *ComplaintStore) All(ctx context.Context) ([]entity.Complaint, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Complaint, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out, nil
}

func (s *ComplaintStore) ByOwner(ctx context.Context, ownerID string) ([]entity.Complaint, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Complaint, 0)
	for i := range list {
		if list[i].IsOwnedBy(ownerID) {
			out = append(out, list[i].Clone())
		}
	}
	return out, nil
}

// load reads and decodes the collection. Malformed content is not an
// error: it is logged and treated as an empty (or partial) collection.
func (s *ComplaintStore) load(ctx context.Context) ([]entity.Complaint, error) {
	raw, err := s.kv.Get(ctx, ComplaintsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []entity.Complaint{}, nil
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeReadFailed, "failed to read complaints")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.WithError(apperror.Wrap(err, apperror.ErrCodeCorrupt, "complaints is not a JSON array")).
			Warn("persistence: discarding malformed complaint collection")
		return []entity.Complaint{}, nil
	}

	now := s.now().UTC()
	list := make([]entity.Complaint, 0, len(items))
	for i, item := range items {
		var c entity.Complaint
		if err := json.Unmarshal(item, &c); err != nil || c.ID == "" {
			if err == nil {
				err = errors.New("missing id")
			}
			s.log.WithError(apperror.Wrap(err, apperror.ErrCodeCorrupt, "malformed complaint")).
				WithField("index", i).
				Warn("persistence: skipping malformed complaint")
			continue
		}
		list = append(list, normalize(c, now))
	}
	return list, nil
}

func (s *ComplaintStore) persist(ctx context.Context, list []entity.Complaint) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to encode complaints")
	}
	err = s.kv.Set(ctx, ComplaintsKey, payload)
	s.metrics.StoreWrite(err)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to write complaints")
	}
	return nil
}

// normalize fills what older or hand-edited snapshots may lack.
func normalize(c entity.Complaint, now time.Time) entity.Complaint {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.Before(c.CreatedAt) {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Status == "" {
		c.Status = valueobject.ComplaintStatusPending
	}
	if c.ResolverComments == nil {
		c.ResolverComments = []string{}
	}
	return c
}

func indexOf(list []entity.Complaint, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return apperror.Wrap(apperror.ErrComplaintNotFound, apperror.ErrCodeNotFound, fmt.Sprintf("complaint %s not found", id))
}
