package hackernews

// query.go implements the resolvers of the root query

import (
	"context"

	"github.com/andrewwphillips/hackernews/internal/store"
)

const info = "This is the API of a Hacker News clone"

// Query is the root query type
type Query struct {
	Info    string
	Comment func(context.Context, string) (*Comment, error)           `egg:"comment(id)"`
	Link    func(context.Context, *string) (*Link, error)             `egg:"link(id)"`
	Feed    func(context.Context, *string, *int, *int) ([]Link, error) `egg:"feed(filterNeedle,skip,take)"`
}

// NewQuery returns the root query resolvers
func NewQuery() *Query {
	return &Query{
		Info:    info,
		Comment: comment,
		Link:    link,
		Feed:    feed,
	}
}

// comment returns null if id is not an integer (as if it is not found)
func comment(ctx context.Context, id string) (*Comment, error) {
	n, ok := ParseID(id)
	if !ok {
		return nil, nil
	}
	st, err := storeFrom(ctx)
	if err != nil {
		return nil, err
	}
	c, err := st.Comment(ctx, n)
	if err != nil || c == nil {
		return nil, err
	}
	return newComment(c), nil
}

func link(ctx context.Context, id *string) (*Link, error) {
	if id == nil {
		return nil, nil
	}
	n, ok := ParseID(*id)
	if !ok {
		return nil, nil
	}
	return findLink(ctx, n)
}

func feed(ctx context.Context, filterNeedle *string, skip, take *int) ([]Link, error) {
	page, err := PageFromArgs(skip, take)
	if err != nil {
		return nil, err
	}
	st, err := storeFrom(ctx)
	if err != nil {
		return nil, err
	}

	f := store.Filter{Skip: page.Skip, Take: page.Take}
	if filterNeedle != nil {
		f.Needle = *filterNeedle
	}
	rows, err := st.Feed(ctx, f)
	if err != nil {
		return nil, err
	}
	r := make([]Link, 0, len(rows))
	for i := range rows {
		r = append(r, *newLink(&rows[i]))
	}
	return r, nil
}
