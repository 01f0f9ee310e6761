package postgres

import (
	"context"
	"fmt"

	"github.com/briefly-app/briefly/internal/domain"
)

// UnitOfWork implements domain.UnitOfWork on a pgx transaction. All
// repository calls inside Do share one transaction and commit together;
// any error from fn rolls everything back. Session rows locked with
// GetForUpdate stay locked until then, which serializes concurrent turns
// on the same session.
type UnitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a transaction-scoped unit of work factory
func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	repos := domain.Repositories{
		Sessions: &SessionRepository{db: tx},
		Messages: &MessageRepository{db: tx},
		Handoffs: &HandoffRepository{db: tx},
		Projects: &ProjectRepository{db: tx},
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
