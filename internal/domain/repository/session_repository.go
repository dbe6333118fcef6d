package repository

import (
	"context"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
)

// SessionRepository keeps the resumable session. Load returns (nil, nil)
// when nothing is stored.
type SessionRepository interface {
	Load(ctx context.Context) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
	Clear(ctx context.Context) error
}
