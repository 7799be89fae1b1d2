package hackernews

// options.go handles options that can be used to control the GraphQL handler.
// These options are just passed on to the engine. (See internal/handler/options.go
// for details on how closures are used to handle options.)

import (
	"github.com/rs/zerolog"
)

type options struct {
	noIntrospection, noConcurrency bool
	logger                         zerolog.Logger
}

// NoIntrospection controls whether introspection queries are permitted
func NoIntrospection(on bool) func(*options) {
	return func(opt *options) {
		opt.noIntrospection = on
	}
}

// NoConcurrency controls whether concurrent execution of queries (but not mutations) is permitted
func NoConcurrency(on bool) func(*options) {
	return func(opt *options) {
		opt.noConcurrency = on
	}
}

// Logger sets where resolver panics and engine problems are logged (the default discards them)
func Logger(logger zerolog.Logger) func(*options) {
	return func(opt *options) {
		opt.logger = logger
	}
}
