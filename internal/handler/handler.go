// Package handler implements an HTTP handler to process GraphQL queries (and
// mutations) given instances of query and mutation structs and a corresponding
// GraphQL schema.
package handler

// handler.go implements the handler and it's ServeHTTP method

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

type (
	// Handler stores the invariants (schema and structs) used in the GraphQL requests
	Handler struct {
		schema        *ast.Schema
		qData         interface{}
		mData         interface{}
		introspection interface{} // resolvers for __schema and __type

		resolverLookup lookupTables

		noIntrospection bool
		noConcurrency   bool
		log             zerolog.Logger
	}
)

// New is the main handler function that returns an HTTP handler given a schema PLUS corresponding
// instances of the query and (optionally nil) mutation structs. Options are closures created by the
// option functions in options.go (NoIntrospection etc).
// New panics if the schema is invalid or a field of the schema has no matching resolver,
// as both are programming errors that should be found at startup.
func New(schemaString string, qData, mData interface{}, options ...func(*Handler)) *Handler {
	schema, err := gqlparser.LoadSchema(&ast.Source{
		Name:  "schema",
		Input: schemaString,
	})
	if err != nil {
		panic("handler.New - error making schema: " + err.Error())
	}

	h := &Handler{
		schema: schema,
		qData:  qData,
		mData:  mData,
		log:    zerolog.Nop(),
	}
	h.SetOptions(options...)
	h.introspection = newIntrospection(schema)
	h.makeResolverTables()

	if err := h.checkResolvers(); err != nil {
		panic("handler.New - " + err.Error())
	}
	return h
}

// ServeHTTP receives a GraphQL query as an HTTP request, executes the
// query (or mutation) and generates an HTTP response or error message
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	g := gqlRequest{h: h}
	switch r.Method {
	case http.MethodPost:
		decoder := json.NewDecoder(r.Body)
		decoder.UseNumber() // allows us to distinguish ints from floats (see FixNumberVariables() below)
		if err := decoder.Decode(&g); err != nil {
			writeError(w, http.StatusBadRequest, "Error decoding JSON request: "+err.Error())
			return
		}
	case http.MethodGet:
		// GET requests are read-only - a mutation is rejected in Execute
		g.readOnly = true
		q := r.URL.Query()
		g.Query = q.Get("query")
		g.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			decoder := json.NewDecoder(strings.NewReader(vars))
			decoder.UseNumber()
			if err := decoder.Decode(&g.Variables); err != nil {
				writeError(w, http.StatusBadRequest, "Error decoding variables: "+err.Error())
				return
			}
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s is not supported", r.Method))
		return
	}
	if g.Query == "" {
		writeError(w, http.StatusBadRequest, "no query supplied")
		return
	}

	// Since variables are sent as JSON (which does not distinguish int/float) we need to decide
	if err := FixNumberVariables(g.Variables); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := g.Execute(r.Context())
	buf, err := json.Marshal(result)
	if err != nil {
		h.log.Error().Err(err).Msg("encoding GraphQL response")
		writeError(w, http.StatusInternalServerError, "Error encoding JSON response: "+err.Error())
		return
	}
	if result.status != 0 {
		w.WriteHeader(result.status)
	}
	_, _ = w.Write(buf)
}

// writeError sends a response with no data and a single error message
func writeError(w http.ResponseWriter, status int, message string) {
	buf, _ := json.Marshal(gqlResult{Errors: gqlerror.List{{Message: message}}})
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// FixNumberVariables goes through the structure created by the JSON decoder, converting any json.Number values to
// either an int64 or a float64.  This assumes that all the JSON numbers were decoded into a json.Number type, rather
// than int/float, by use of the json.Decode.UseNumber() method.
func FixNumberVariables(m map[string]interface{}) error {
	for key, val := range m {
		fixed, err := fixNumber(val)
		if err != nil {
			return fmt.Errorf("%w in variable %q", err, key)
		}
		m[key] = fixed
	}
	return nil
}

// fixNumber converts a single value, recursing into objects (maps) and lists
func fixNumber(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", v)
		}
		return f, nil

	case map[string]interface{}:
		if err := FixNumberVariables(v); err != nil {
			return nil, err
		}

	case []interface{}:
		for i := range v {
			var err error
			if v[i], err = fixNumber(v[i]); err != nil {
				return nil, err
			}
		}
	}
	return val, nil
}

// checkResolvers makes sure that every field of the query and mutation types (and any object types
// reachable from them) has a matching resolver in the Go structs
func (h *Handler) checkResolvers() error {
	if h.qData == nil {
		return fmt.Errorf("no query resolver supplied for schema type %q", h.schema.Query.Name)
	}
	seen := make(map[string]bool)
	if err := h.checkType(h.schema.Query, derefType(reflect.TypeOf(h.qData)), seen); err != nil {
		return err
	}
	if h.schema.Mutation == nil {
		return nil
	}
	if h.mData == nil {
		return fmt.Errorf("no mutation resolver supplied for schema type %q", h.schema.Mutation.Name)
	}
	return h.checkType(h.schema.Mutation, derefType(reflect.TypeOf(h.mData)), seen)
}

func (h *Handler) checkType(def *ast.Definition, t reflect.Type, seen map[string]bool) error {
	if seen[def.Name] {
		return nil
	}
	seen[def.Name] = true
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("resolver for %q must be a struct not %v", def.Name, t)
	}
	for _, f := range def.Fields {
		if strings.HasPrefix(f.Name, "__") {
			continue // introspection fields added by the validator
		}
		rd, ok := h.resolverLookup[t][f.Name]
		if !ok {
			return fmt.Errorf("field %q of %q has no resolver in %v", f.Name, def.Name, t)
		}
		if fieldDef := h.schema.Types[f.Type.Name()]; fieldDef != nil && fieldDef.Kind == ast.Object {
			if err := h.checkType(fieldDef, rd.info.ResultType, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// derefType follows pointers to get to the underlying type
func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
