// Package identity issues, persists and resumes role-tagged sessions.
package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/crypto/bcrypt"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/repository"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/MohammedShoaib07/campus-care/internal/metrics"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
	"github.com/MohammedShoaib07/campus-care/internal/validation"
)

// Administrator identity. There is exactly one resolver account.
const (
	AdminSessionID   = "faculty_admin"
	AdminDisplayName = "Admin"
	AdminDepartment  = "Administration"
	AdminTitle       = "Administrator"

	DefaultAdminEmail         = "admin@bitm.edu"
	DefaultRollNumber         = "DEMO123"
	DefaultReporterDepartment = "Computer Science"
)

const (
	loginOK        = "ok"
	loginInvalid   = "invalid"
	loginThrottled = "throttled"
)

// Credentials is what a login form submits. Name and Profile are optional
// and only used for reporters.
type Credentials struct {
	Email   string
	Secret  string
	Role    valueobject.Role
	Name    string
	Profile entity.Profile
}

type Config struct {
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	SessionTTL    time.Duration
	LoginLimit    int64
	LoginPeriod   time.Duration
	BcryptCost    int
}

type Option func(*Provider)

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Provider) { p.metrics = m }
}

// WithLimiterStore keeps login failure counters in store. The default is an
// in-process memory store.
func WithLimiterStore(store limiter.Store) Option {
	return func(p *Provider) { p.limiterStore = store }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
		p.tokens.now = now
	}
}

// Provider authenticates users and owns the current session.
type Provider struct {
	sessions   repository.SessionRepository
	tokens     *TokenManager
	adminEmail string
	adminHash  []byte
	limiter    *limiter.Limiter
	metrics    *metrics.Recorder
	log        logrus.FieldLogger
	now        func() time.Time

	limiterStore limiter.Store

	mu      sync.RWMutex
	current *entity.Session
}

func NewProvider(sessions repository.SessionRepository, cfg Config, log logrus.FieldLogger, opts ...Option) (*Provider, error) {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "cannot hash administrator password")
	}

	adminEmail := validation.NormalizeEmail(cfg.AdminEmail)
	if adminEmail == "" {
		adminEmail = DefaultAdminEmail
	}

	limit := cfg.LoginLimit
	if limit <= 0 {
		limit = 5
	}
	period := cfg.LoginPeriod
	if period <= 0 {
		period = time.Minute
	}

	p := &Provider{
		sessions:   sessions,
		tokens:     NewTokenManager(cfg.SessionSecret, cfg.SessionTTL),
		adminEmail: adminEmail,
		adminHash:  hash,
		log:        logger.OrDiscard(log),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.limiterStore == nil {
		p.limiterStore = memory.NewStore()
	}
	p.limiter = limiter.New(p.limiterStore, limiter.Rate{Period: period, Limit: limit})
	return p, nil
}

// Authenticate checks credentials for the requested role, persists the new
// session and makes it current. Failed attempts are counted per email and
// role; over the limit the credentials are not checked at all.
func (p *Provider) Authenticate(ctx context.Context, creds Credentials) (*entity.Session, error) {
	if !creds.Role.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown role")
	}
	role := creds.Role.String()
	key := validation.NormalizeEmail(creds.Email) + ":" + role

	state, err := p.limiter.Peek(ctx, key)
	if err != nil {
		return nil, err
	}
	if state.Reached || state.Remaining == 0 {
		p.metrics.LoginAttempt(role, loginThrottled)
		return nil, apperror.ErrTooManyAttempts
	}

	var session *entity.Session
	switch creds.Role {
	case valueobject.RoleResolver:
		session, err = p.authenticateResolver(creds)
	default:
		session, err = p.authenticateReporter(creds)
	}
	if err != nil {
		p.metrics.LoginAttempt(role, loginInvalid)
		if _, limErr := p.limiter.Get(ctx, key); limErr != nil {
			return nil, limErr
		}
		return nil, err
	}

	session.IssuedAt = p.now().UTC()
	session.Token, err = p.tokens.Issue(session, session.IssuedAt)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeWriteFailed, "cannot sign session token")
	}
	if err := p.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	if _, err := p.limiter.Reset(ctx, key); err != nil {
		p.log.WithError(err).WithField("role", role).Debug("login limiter reset failed")
	}

	p.metrics.LoginAttempt(role, loginOK)
	p.setCurrent(session)
	return session.Clone(), nil
}

func (p *Provider) authenticateResolver(creds Credentials) (*entity.Session, error) {
	if validation.NormalizeEmail(creds.Email) != p.adminEmail {
		return nil, apperror.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(p.adminHash, []byte(creds.Secret)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	return &entity.Session{
		ID:          AdminSessionID,
		Email:       p.adminEmail,
		Role:        valueobject.RoleResolver,
		DisplayName: AdminDisplayName,
		Profile: entity.Profile{
			Department: AdminDepartment,
			Title:      AdminTitle,
		},
	}, nil
}

func (p *Provider) authenticateReporter(creds Credentials) (*entity.Session, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || validation.IsBlank(creds.Secret) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err := validation.ValidateLength("email", email, 0, validation.MaxEmailLength); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(creds.Name)
	if name == "" {
		name = validation.EmailLocalPart(email)
	}
	if err := validation.ValidateLength("name", name, 0, validation.MaxDisplayNameLength); err != nil {
		return nil, err
	}

	profile := creds.Profile
	profile.Title = ""
	if strings.TrimSpace(profile.RollNumber) == "" {
		profile.RollNumber = DefaultRollNumber
	}
	if strings.TrimSpace(profile.Department) == "" {
		profile.Department = DefaultReporterDepartment
	}

	return &entity.Session{
		ID:          "reporter_" + uuid.NewString(),
		Email:       email,
		Role:        valueobject.RoleReporter,
		DisplayName: name,
		Profile:     profile,
	}, nil
}

// Logout forgets the current session. Calling it without one is a no-op.
func (p *Provider) Logout(ctx context.Context) error {
	p.setCurrent(nil)
	return p.sessions.Clear(ctx)
}

// Resume restores the persisted session. A corrupt or unverifiable session is
// discarded and reported as no session.
func (p *Provider) Resume(ctx context.Context) (*entity.Session, error) {
	session, err := p.sessions.Load(ctx)
	if apperror.HasCode(err, apperror.ErrCodeCorrupt) {
		p.discard(ctx, err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session == nil {
		p.setCurrent(nil)
		return nil, nil
	}

	if err := p.tokens.Verify(session); err != nil {
		p.discard(ctx, apperror.Wrap(err, apperror.ErrCodeCorrupt, "session token rejected"))
		return nil, nil
	}

	p.setCurrent(session)
	return session.Clone(), nil
}

func (p *Provider) discard(ctx context.Context, cause error) {
	p.log.WithError(cause).WithField("key", "session").Warn("discarding stored session")
	p.setCurrent(nil)
	if err := p.sessions.Clear(ctx); err != nil {
		p.log.WithError(err).Warn("failed to remove stored session")
	}
}

// Current returns a copy of the current session or nil.
func (p *Provider) Current() *entity.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Clone()
}

func (p *Provider) setCurrent(s *entity.Session) {
	p.mu.Lock()
	p.current = s.Clone()
	p.mu.Unlock()
}
