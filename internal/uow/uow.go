package uow

import (
	"context"

	"github.com/atmanstudio/booking/internal/repository"
)

// AfterCommit runs once the booking transaction is durable: cache
// invalidation, schedule-changed notices, booking events.
type AfterCommit func(ctx context.Context)

// UoW groups ledger and booking writes into one transaction.
type UoW struct {
	store repository.Store
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a transaction and, after a successful commit, runs the
// hooks registered by the attempt that committed. Hooks get a context that
// is not cancelled with ctx, so a client hanging up after the commit does
// not suppress the change notices of a seat it already holds.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		hooks = hooks[:0]

		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range hooks {
		h(hookCtx)
	}

	return nil
}
