package hackernews

// types.go has the GraphQL object types

import (
	"context"

	"github.com/andrewwphillips/hackernews/internal/store"
)

type (
	// Link is a URL posted to the site
	Link struct {
		ID          int64 `egg:"id"`
		Description string
		URL         string `egg:"url"`
		Comments    func(context.Context) ([]Comment, error)
	}

	// Comment is a remark on a link
	Comment struct {
		ID   int64 `egg:"id"`
		Body string
		Link func(context.Context) (*Link, error)
	}
)

func newLink(l *store.Link) *Link {
	id := l.ID
	return &Link{
		ID:          l.ID,
		Description: l.Description,
		URL:         l.URL,
		Comments: func(ctx context.Context) ([]Comment, error) {
			return commentsOf(ctx, id)
		},
	}
}

func newComment(c *store.Comment) *Comment {
	r := &Comment{ID: c.ID, Body: c.Body}
	if c.LinkID != nil {
		linkID := *c.LinkID
		r.Link = func(ctx context.Context) (*Link, error) {
			return findLink(ctx, linkID)
		}
	}
	// a nil Link resolver gives null for orphaned comments
	return r
}

func commentsOf(ctx context.Context, linkID int64) ([]Comment, error) {
	st, err := storeFrom(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := st.CommentsByLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	r := make([]Comment, 0, len(rows))
	for i := range rows {
		r = append(r, *newComment(&rows[i]))
	}
	return r, nil
}

func findLink(ctx context.Context, id int64) (*Link, error) {
	st, err := storeFrom(ctx)
	if err != nil {
		return nil, err
	}
	l, err := st.Link(ctx, id)
	if err != nil || l == nil {
		return nil, err
	}
	return newLink(l), nil
}
