package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/domain/valueobject"
	"github.com/MohammedShoaib07/campus-care/internal/infrastructure/kv"
	"github.com/MohammedShoaib07/campus-care/internal/infrastructure/persistence"
	"github.com/MohammedShoaib07/campus-care/internal/metrics"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

const (
	testSecret   = "test-session-secret-with-enough-length"
	testPassword = "123123"
)

func testConfig() Config {
	return Config{
		AdminEmail:    "admin@bitm.edu",
		AdminPassword: testPassword,
		SessionSecret: testSecret,
		SessionTTL:    time.Hour,
		LoginLimit:    3,
		LoginPeriod:   time.Minute,
		BcryptCost:    bcrypt.MinCost,
	}
}

func newTestProvider(t *testing.T, opts ...Option) (*Provider, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })

	p, err := NewProvider(persistence.NewSessionStore(store), testConfig(), nil, opts...)
	require.NoError(t, err)
	return p, store
}

func reporterCreds(email string) Credentials {
	return Credentials{Email: email, Secret: "anything", Role: valueobject.RoleReporter}
}

func TestAuthenticate_Reporter(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t)

	s, err := p.Authenticate(ctx, reporterCreds("priya@bitm.edu"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.ID, "reporter_"))
	assert.Equal(t, valueobject.RoleReporter, s.Role)
	assert.Equal(t, "priya", s.DisplayName)
	assert.Equal(t, DefaultRollNumber, s.RollNumber)
	assert.Equal(t, DefaultReporterDepartment, s.Department)
	assert.NotEmpty(t, s.Token)

	raw, err := store.Get(ctx, persistence.SessionKey)
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, s.ID, stored["id"])
	assert.Equal(t, "reporter", stored["role"])

	assert.Equal(t, s, p.Current())

	again, err := p.Authenticate(ctx, reporterCreds("priya@bitm.edu"))
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, again.ID)
}

func TestAuthenticate_ReporterProfileAndName(t *testing.T) {
	p, _ := newTestProvider(t)

	creds := reporterCreds("  ravi@bitm.edu ")
	creds.Name = "Ravi Kumar"
	creds.Profile = entity.Profile{RollNumber: "CS-042", Department: "Mechanical", Title: "ignored"}

	s, err := p.Authenticate(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", s.DisplayName)
	assert.Equal(t, "ravi@bitm.edu", s.Email)
	assert.Equal(t, "CS-042", s.RollNumber)
	assert.Equal(t, "Mechanical", s.Department)
	assert.Empty(t, s.Title)
}

func TestAuthenticate_ReporterBlankCredentials(t *testing.T) {
	p, store := newTestProvider(t)

	for _, creds := range []Credentials{
		{Email: "", Secret: "x", Role: valueobject.RoleReporter},
		{Email: "a@b.c", Secret: "   ", Role: valueobject.RoleReporter},
	} {
		_, err := p.Authenticate(context.Background(), creds)
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	}
	assert.Nil(t, p.Current())
	_, err := store.Get(context.Background(), persistence.SessionKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestAuthenticate_Resolver(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t)

	s, err := p.Authenticate(ctx, Credentials{Email: "ADMIN@bitm.edu", Secret: testPassword, Role: valueobject.RoleResolver})
	require.NoError(t, err)
	assert.Equal(t, AdminSessionID, s.ID)
	assert.Equal(t, AdminDisplayName, s.DisplayName)
	assert.Equal(t, AdminDepartment, s.Department)
	assert.Equal(t, AdminTitle, s.Title)
	assert.Equal(t, "admin@bitm.edu", s.Email)

	require.NoError(t, p.Logout(ctx))
	_, err = p.Authenticate(ctx, Credentials{Email: "admin@bitm.edu", Secret: "wrong", Role: valueobject.RoleResolver})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	_, err = p.Authenticate(ctx, Credentials{Email: "other@bitm.edu", Secret: testPassword, Role: valueobject.RoleResolver})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	assert.Nil(t, p.Current())
	_, err = store.Get(ctx, persistence.SessionKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestAuthenticate_Throttled(t *testing.T) {
	ctx := context.Background()
	recorder := metrics.New()
	p, _ := newTestProvider(t, WithMetrics(recorder))

	bad := Credentials{Email: "admin@bitm.edu", Secret: "nope", Role: valueobject.RoleResolver}
	for i := 0; i < 3; i++ {
		_, err := p.Authenticate(ctx, bad)
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	}

	good := Credentials{Email: "admin@bitm.edu", Secret: testPassword, Role: valueobject.RoleResolver}
	_, err := p.Authenticate(ctx, good)
	assert.ErrorIs(t, err, apperror.ErrTooManyAttempts)

	// Other identities are counted separately.
	_, err = p.Authenticate(ctx, reporterCreds("admin@bitm.edu"))
	assert.NoError(t, err)

	snap, err := recorder.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 3.0, snap[`campuscare_login_attempts_total{result="invalid",role="resolver"}`])
	assert.Equal(t, 1.0, snap[`campuscare_login_attempts_total{result="throttled",role="resolver"}`])
	assert.Equal(t, 1.0, snap[`campuscare_login_attempts_total{result="ok",role="reporter"}`])
}

func TestAuthenticate_ThrottleSharedThroughStore(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })

	newProvider := func() *Provider {
		view := store.View()
		p, err := NewProvider(persistence.NewSessionStore(view), testConfig(), nil,
			WithLimiterStore(persistence.NewAttemptStore(view)))
		require.NoError(t, err)
		return p
	}

	bad := Credentials{Email: "admin@bitm.edu", Secret: "nope", Role: valueobject.RoleResolver}
	for i := 0; i < 3; i++ {
		_, err := newProvider().Authenticate(ctx, bad)
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	}

	good := Credentials{Email: "admin@bitm.edu", Secret: testPassword, Role: valueobject.RoleResolver}
	_, err := newProvider().Authenticate(ctx, good)
	assert.ErrorIs(t, err, apperror.ErrTooManyAttempts)
}

func TestAuthenticate_SuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	bad := Credentials{Email: "admin@bitm.edu", Secret: "nope", Role: valueobject.RoleResolver}
	good := Credentials{Email: "admin@bitm.edu", Secret: testPassword, Role: valueobject.RoleResolver}

	for i := 0; i < 2; i++ {
		_, _ = p.Authenticate(ctx, bad)
	}
	_, err := p.Authenticate(ctx, good)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, _ = p.Authenticate(ctx, bad)
	}
	_, err = p.Authenticate(ctx, good)
	assert.NoError(t, err)
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t)

	s, err := p.Authenticate(ctx, reporterCreds("priya@bitm.edu"))
	require.NoError(t, err)

	fresh, err := NewProvider(persistence.NewSessionStore(store.View()), testConfig(), nil)
	require.NoError(t, err)
	resumed, err := fresh.Resume(ctx)
	require.NoError(t, err)
	require.NotNil(t, resumed)
	assert.Equal(t, s.ID, resumed.ID)
	assert.Equal(t, s.DisplayName, resumed.DisplayName)
	assert.Equal(t, s.ID, fresh.Current().ID)

	require.NoError(t, fresh.Logout(ctx))
	require.NoError(t, fresh.Logout(ctx))
	resumed, err = fresh.Resume(ctx)
	require.NoError(t, err)
	assert.Nil(t, resumed)
	assert.Nil(t, fresh.Current())
}

func TestResume_CorruptSessionDiscarded(t *testing.T) {
	ctx := context.Background()
	cases := map[string][]byte{
		"malformed":    []byte(`{"id":`),
		"unknown role": []byte(`{"id":"x","email":"a@b.c","role":"janitor","displayName":"x","token":"t"}`),
		"bad token":    []byte(`{"id":"x","email":"a@b.c","role":"reporter","displayName":"x","token":"not-a-jwt"}`),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			p, store := newTestProvider(t)
			require.NoError(t, store.Set(ctx, persistence.SessionKey, raw))

			s, err := p.Resume(ctx)
			require.NoError(t, err)
			assert.Nil(t, s)

			_, err = store.Get(ctx, persistence.SessionKey)
			assert.ErrorIs(t, err, kv.ErrNotFound)
		})
	}
}

func TestResume_ExpiredOrForeignToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p, store := newTestProvider(t, WithClock(clock))

	_, err := p.Authenticate(ctx, reporterCreds("priya@bitm.edu"))
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	s, err := p.Resume(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "expired token must not resume")

	now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = p.Authenticate(ctx, reporterCreds("priya@bitm.edu"))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.SessionSecret = "a-different-secret-for-another-install"
	other, err := NewProvider(persistence.NewSessionStore(store), cfg, nil, WithClock(clock))
	require.NoError(t, err)
	s, err = other.Resume(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "token signed with another secret must not resume")
}

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Load(ctx context.Context) (*entity.Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*entity.Session)
	return s, args.Error(1)
}

func (m *mockSessionRepository) Save(ctx context.Context, s *entity.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSessionRepository) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestAuthenticate_SaveFailure(t *testing.T) {
	repo := new(mockSessionRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(apperror.Wrap(errors.New("disk full"), apperror.ErrCodeWriteFailed, "failed to write session"))

	p, err := NewProvider(repo, testConfig(), nil)
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), reporterCreds("priya@bitm.edu"))
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeWriteFailed))
	assert.Nil(t, p.Current())
	repo.AssertExpectations(t)
}

func TestResume_ReadFailureSurfaces(t *testing.T) {
	repo := new(mockSessionRepository)
	repo.On("Load", mock.Anything).Return(nil, apperror.Wrap(errors.New("io"), apperror.ErrCodeReadFailed, "failed to read session"))

	p, err := NewProvider(repo, testConfig(), nil)
	require.NoError(t, err)

	_, err = p.Resume(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeReadFailed))
	repo.AssertNotCalled(t, "Clear", mock.Anything)
}

func TestTokenManager_RejectsTamperedClaims(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	s := &entity.Session{ID: "reporter_1", Email: "a@b.c", Role: valueobject.RoleReporter}

	token, err := tm.Issue(s, time.Now())
	require.NoError(t, err)
	s.Token = token
	require.NoError(t, tm.Verify(s))

	s.Role = valueobject.RoleResolver
	assert.Error(t, tm.Verify(s))
}
