package handler

// lookup.go is used to build lookup tables for quick lookup of resolvers

import (
	"reflect"

	"github.com/andrewwphillips/hackernews/internal/field"
)

type (
	// lookupTables allows a resolver to be found given the Go struct type and the GraphQL field name
	lookupTables map[reflect.Type]map[string]resolverData

	// resolverData is what we need to know about a resolver (field of a Go struct)
	resolverData struct {
		index int         // index of the field within the struct
		info  *field.Info // metadata obtained from the field's type and "egg:" tag
	}
)

// makeResolverTables builds lookup tables for the query, mutation and introspection structs.
// This allows us to quickly find the index of a field (resolver) given the struct type and resolver name.
// At the top level we have a map indexed by all the struct's (its reflect.Type) used for the schema, then
// for each struct we have a map indexed by the resolver name and giving the index of the field in the struct.
// The tables are only written here (in New) so may be read concurrently while handling requests.
func (h *Handler) makeResolverTables() {
	h.resolverLookup = make(lookupTables)
	for _, data := range []interface{}{h.qData, h.mData, h.introspection} {
		if data == nil {
			continue
		}
		h.addLookup(reflect.TypeOf(data))
	}
}

// addLookup gets info on all resolvers (public fields) in the parameter t.
// If t is not (a pointer to, or list of) a struct it does nothing.
// It recursively adds the struct types of the resolvers found.
func (h *Handler) addLookup(t reflect.Type) {
	t = field.BaseType(t)
	if t.Kind() != reflect.Struct {
		return
	}
	if _, ok := h.resolverLookup[t]; ok {
		return // already done (or being done if nil)
	}
	h.resolverLookup[t] = nil // Reserve this entry, so we don't do it again in recursive calls

	r := make(map[string]resolverData, t.NumField())
	// Find all the fields that are resolvers
	for i := 0; i < t.NumField(); i++ {
		tField := t.Field(i)
		fieldInfo, err := field.Get(&tField)
		if err != nil {
			panic(err)
		}
		if fieldInfo == nil {
			continue // ignore unexported field
		}
		r[fieldInfo.Name] = resolverData{index: i, info: fieldInfo}
		h.addLookup(fieldInfo.ResultType)
	}
	h.resolverLookup[t] = r
}
