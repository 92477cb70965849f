package gorm

import (
	"context"

	"github.com/alchemorsel/nutricore/internal/application/bus"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"gorm.io/gorm"
)

// unitOfWork is the concrete bus.UnitOfWork backed by a single GORM transaction. Handlers reach
// repositories through it so every write they issue shares one connection for the duration of
// the request, per §4.1's Unit-of-Work contract.
type unitOfWork struct {
	ctx context.Context
	tx  *gorm.DB
}

func (u *unitOfWork) Context() context.Context { return u.ctx }

// Meals returns a MealRepository bound to this unit of work's transaction.
func (u *unitOfWork) Meals() outbound.MealRepository { return NewMealRepository(u.tx) }

// Users returns a UserRepository bound to this unit of work's transaction.
func (u *unitOfWork) Users() outbound.UserRepository { return NewUserRepository(u.tx) }

// ChatThreads returns a ChatThreadRepository bound to this unit of work's transaction.
func (u *unitOfWork) ChatThreads() outbound.ChatThreadRepository { return NewChatThreadRepository(u.tx) }

// NewUnitOfWorkFactory adapts *gorm.DB's transaction API to bus.UnitOfWorkFactory. gorm.DB.Begin
// opens the transaction; the returned commit/rollback funcs finalize it exactly once, matching
// the teacher's conditional-update style of one *gorm.DB per call rather than a long-lived
// session object.
func NewUnitOfWorkFactory(db *gorm.DB) bus.UnitOfWorkFactory {
	return func(ctx context.Context) (bus.UnitOfWork, func() error, func() error, error) {
		tx := db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return nil, nil, nil, tx.Error
		}
		uow := &unitOfWork{ctx: ctx, tx: tx}
		commit := func() error { return tx.Commit().Error }
		rollback := func() error { return tx.Rollback().Error }
		return uow, commit, rollback, nil
	}
}
