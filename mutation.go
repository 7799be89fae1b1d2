package hackernews

// mutation.go implements the resolvers of the root mutation

import (
	"context"
	"errors"

	"github.com/andrewwphillips/hackernews/internal/store"
)

// Mutation is the root mutation type
type Mutation struct {
	PostLink          func(context.Context, string, string) (*Link, error)    `egg:"postLink(url,description)"`
	PostCommentOnLink func(context.Context, string, string) (*Comment, error) `egg:"postCommentOnLink(linkId,body)"`
}

// NewMutation returns the root mutation resolvers
func NewMutation() *Mutation {
	return &Mutation{
		PostLink:          postLink,
		PostCommentOnLink: postCommentOnLink,
	}
}

func postLink(ctx context.Context, url, description string) (*Link, error) {
	valid, ok := ParseHTTPURL(url)
	if !ok {
		return nil, errorf(InvalidLink, "cannot post link with invalid url %q", url)
	}
	st, err := storeFrom(ctx)
	if err != nil {
		return nil, err
	}
	l, err := st.CreateLink(ctx, valid, description)
	if err != nil {
		return nil, err
	}
	return newLink(l), nil
}

func postCommentOnLink(ctx context.Context, linkID, body string) (*Comment, error) {
	id, ok := ParseID(linkID)
	if !ok {
		return nil, errorf(LinkNotFound, "cannot post comment on link with invalid id %q", linkID)
	}
	if body == "" {
		return nil, errorf(EmptyComment, "cannot post empty comment")
	}
	st, err := storeFrom(ctx)
	if err != nil {
		return nil, err
	}
	c, err := st.CreateComment(ctx, id, body)
	if err != nil {
		if errors.Is(err, store.ErrReferenceViolated) {
			return nil, errorf(LinkNotFound, "cannot post comment on non-existent link with id %q", linkID)
		}
		return nil, err // opaque
	}
	return newComment(c), nil
}
