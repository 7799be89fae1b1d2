package hackernews

// hackernews.go creates the HTTP handler for the GraphQL API

import (
	"net/http"

	"github.com/andrewwphillips/hackernews/internal/handler"
	"github.com/rs/zerolog"
)

// New returns an HTTP handler that executes GraphQL requests against the schema, with the
// resolvers using st for all data access. See options.go for the available options.
func New(st Store, opts ...func(*options)) http.Handler {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	h := handler.New(Schema, NewQuery(), NewMutation(),
		handler.NoIntrospection(o.noIntrospection),
		handler.NoConcurrency(o.noConcurrency),
		handler.Logger(o.logger),
	)
	return storeHandler{st: st, next: h}
}

// storeHandler attaches the store to the context of each request
type storeHandler struct {
	st   Store
	next http.Handler
}

func (h storeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), h.st)))
}
