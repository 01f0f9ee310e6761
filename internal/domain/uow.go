package domain

import "context"

// Repositories bundles the transaction-scoped repositories handed to a
// unit of work body.
type Repositories struct {
	Sessions SessionRepository
	Messages MessageRepository
	Handoffs HandoffRepository
	Projects ProjectRepository
}

// UnitOfWork runs fn against transaction-scoped repositories. Every
// mutation made inside fn commits together; any error returned by fn
// discards all of them. Combined with SessionRepository.GetForUpdate this
// gives the single-writer-per-session guarantee: a second turn on the same
// session blocks until the first commits or rolls back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
