package handler

// options.go handles setting of handler options

// The use of closures for options makes it simple for the caller to add any desired options, but the mechanism
// (which they need not understand) is not simple: The handler.New() function takes as its last (variadic) parameter
// a slice of closures each with the signature func(*Handler).  The option functions below (NoIntrospection, etc)
// return such a closure which captures any options (parameters passed to the option function) so that the handler
// can be modified when the closure is run.  So for example in this call:
//
//   handler.New(schema, &query, &mutation, handler.NoConcurrency(true))
//
// handler.NoConcurrency() is called and the generated closure is returned then passed as the last parameter to
// handler.New().  The SetOptions() method is called within handler.New() which executes all the options
// closures which in the above case will set the noConcurrency field of the handler to true.
//
// A pitfall is that if the same option function is used more than once then only the last use has any effect.

import (
	"github.com/rs/zerolog"
)

// SetOptions takes a slice of handler options (closures) and executes them
func (h *Handler) SetOptions(options ...func(*Handler)) {
	for _, option := range options {
		option(h)
	}
}

// NoIntrospection turns off all introspection queries (__schema and __type)
func NoIntrospection(on bool) func(*Handler) {
	return func(h *Handler) {
		h.noIntrospection = on
	}
}

// NoConcurrency turns off concurrent execution of queries
func NoConcurrency(on bool) func(*Handler) {
	return func(h *Handler) {
		h.noConcurrency = on
	}
}

// Logger sets the logger used to report resolver panics and other internal problems
func Logger(log zerolog.Logger) func(*Handler) {
	return func(h *Handler) {
		h.log = log
	}
}
