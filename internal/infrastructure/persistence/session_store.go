package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
	"github.com/MohammedShoaib07/campus-care/internal/infrastructure/kv"
	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

// SessionKey holds the resumable session as a flat JSON object.
const SessionKey = "session"

type SessionStore struct {
	kv kv.Store
}

func NewSessionStore(store kv.Store) *SessionStore {
	return &SessionStore{kv: store}
}

// Load returns (nil, nil) when no session is stored and a CORRUPT error
// when the stored value cannot be decoded.
func (s *SessionStore) Load(ctx context.Context) (*entity.Session, error) {
	raw, err := s.kv.Get(ctx, SessionKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeReadFailed, "failed to read session")
	}

	var session entity.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeCorrupt, "stored session is malformed")
	}
	if session.ID == "" || !session.Role.IsValid() {
		return nil, apperror.New(apperror.ErrCodeCorrupt, "stored session is incomplete")
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to encode session")
	}
	if err := s.kv.Set(ctx, SessionKey, payload); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to write session")
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeWriteFailed, "failed to clear session")
	}
	return nil
}
