package approval

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, rec Record) error
	Get(ctx context.Context, token string) (Record, error)
	// Transition applies the conditional decision write as one atomic step and
	// returns the updated record with the action it replaced. No matching row
	// yields ErrNotFoundOrExpired.
	Transition(ctx context.Context, p TransitionParams) (Record, Action, error)
}
