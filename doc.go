// Package hackernews is the GraphQL API of a Hacker News clone - links that
// users post and the comments made on them.

// The API is served by the handler returned from New, which takes the
// data store to use (see internal/store for the gorm implementation):

//	st, err := store.Open(&store.Config{Driver: "sqlite", DSN: "hackernews.db"})
//	...
//	http.Handle("/graphql", hackernews.New(st))

// Links are listed with the feed query, which pages through them using the
// skip and take arguments:
// {
//    feed(filterNeedle: "golang", take: 10) { id url description comments { body } }
// }

// Links and comments are added with the postLink and postCommentOnLink
// mutations. Arguments are checked before the store is touched: a link must
// have an http(s) url with a path, a comment must have a body and must be on a
// link with a numeric id that exists. These failures are returned as GraphQL
// errors with a code (eg LINK_NOT_FOUND) in the error extensions.

package hackernews
