// Package tx defines the transaction manager contract used by the domain
// layer. Implementations live in infrastructure (postgres, memory).
package tx

import "context"

// Manager runs functions inside a unit of work. Every cascading lifecycle
// change (trash, restore, purge across parent and children) must go through
// a single RunInTransaction call so that partial cascades can never commit.
type Manager interface {
	// RunInTransaction executes fn within a transaction. If a transaction
	// already exists in ctx it is reused; a returned error rolls back.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
