package hackernews

// store.go declares the data store used by the resolvers and how it reaches them

import (
	"context"
	"errors"

	"github.com/andrewwphillips/hackernews/internal/store"
)

// Store is the persistence used by the resolvers. Lookups return nil (and no error) when
// there is no row with the id. CreateComment returns an error matching store.ErrReferenceViolated
// when the link does not exist.
type Store interface {
	Feed(ctx context.Context, f store.Filter) ([]store.Link, error)
	Link(ctx context.Context, id int64) (*store.Link, error)
	CreateLink(ctx context.Context, url, description string) (*store.Link, error)
	Comment(ctx context.Context, id int64) (*store.Comment, error)
	CreateComment(ctx context.Context, linkID int64, body string) (*store.Comment, error)
	CommentsByLink(ctx context.Context, linkID int64) ([]store.Comment, error)
}

type storeKey struct{}

// WithStore returns a context that carries the store for the resolvers of a request
func WithStore(ctx context.Context, st Store) context.Context {
	return context.WithValue(ctx, storeKey{}, st)
}

// StoreFrom returns the store attached by WithStore
func StoreFrom(ctx context.Context) (Store, bool) {
	st, ok := ctx.Value(storeKey{}).(Store)
	return st, ok && st != nil
}

var errNoStore = errors.New("no data store for request")

func storeFrom(ctx context.Context) (Store, error) {
	st, ok := StoreFrom(ctx)
	if !ok {
		return nil, errNoStore
	}
	return st, nil
}
