package handler

// result.go is used to generate the query output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/dolmen-go/jsonmap"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

type (
	// gqlOperation controls an operation (query/mutation) of a GraphQL request
	gqlOperation struct {
		*Handler // required for resolver lookups, options etc

		isMutation bool
		variables  map[string]interface{} // variables valid for this op (extracted from the request)

		mu     sync.Mutex // protects errors and done as resolvers may run in parallel
		errors gqlerror.List
		done   bool // set once the result is built - resolvers still running after a cancel are ignored
	}

	// gqlValue contains the result of resolving one field
	gqlValue struct {
		value interface{} // scalar, nested result (jsonmap.Ordered), list ([]interface{}) or nil
		ok    bool        // false if a null has to propagate to the parent (null in a non-null position)
	}

	// collected is a field of a selection set after fragments have been expanded
	collected struct {
		key   string     // name of the entry in the result (alias or name)
		field *ast.Field // first field with this key - any further ones have their selections merged
	}
)

// codeError is implemented by resolver errors that provide a code for the "extensions" of the GraphQL error
type codeError interface {
	Code() string
}

// GetSelections resolves the selections in a query by finding and evaluating the corresponding resolver(s)
// Returns a jsonmap.Ordered (a map of values and a slice that remembers the order they were added) that contains an
// entry for each selection, where the map "key" is the name (or alias) of the entry and the value is:
//
//	a) scalar value (stored in an interface})
//	b) a nested jsonmap.Ordered if the resolver is a nested struct
//	c) a slice (ie []interface{}) if the resolver is a slice or array.
//
// The 2nd return value is false if a null from a non-null field means the object itself has to be null.
func (op *gqlOperation) GetSelections(ctx context.Context, set ast.SelectionSet, v reflect.Value,
	def *ast.Definition, path ast.Path,
) (jsonmap.Ordered, bool) {
	fields := op.collectFields(set, def.Name, nil, make(map[string]bool))

	resultChans := make([]<-chan gqlValue, 0, len(fields))
	for _, f := range fields {
		ch := make(chan gqlValue, 1) // buffered so that resolvers never block if we stop waiting
		fieldPath := appendPath(path, ast.PathName(f.key))
		if op.isMutation || op.noConcurrency {
			op.wrapResolve(ctx, f.field, v, def, fieldPath, ch) // mutations are run sequentially
		} else {
			// Calling wrapResolve as a go routine allows resolvers to run in parallel
			go op.wrapResolve(ctx, f.field, v, def, fieldPath, ch)
		}
		resultChans = append(resultChans, ch)
	}

	// Now extract the values (will block until all channels have a value)
	r := jsonmap.Ordered{
		Data:  make(map[string]interface{}, len(fields)),
		Order: make([]string, 0, len(fields)),
	}
	ok := true
	for i, ch := range resultChans {
		var value gqlValue
		select {
		case value = <-ch:
		case <-ctx.Done():
			f := fields[i].field
			op.addError(ctx.Err(), appendPath(path, ast.PathName(fields[i].key)), f)
			value = nullValue(f.Definition.Type)
		}
		if !value.ok {
			ok = false
		}
		r.Order = append(r.Order, fields[i].key)
		r.Data[fields[i].key] = value.value
	}
	return r, ok
}

// collectFields expands fragments and merges fields with the same response key, keeping the order in which
// they first appear in the query
func (op *gqlOperation) collectFields(set ast.SelectionSet, typeName string, fields []*collected,
	visited map[string]bool,
) []*collected {
	for _, s := range set {
		switch sel := s.(type) {
		case *ast.Field:
			if op.directiveBypass(sel.Directives) {
				continue
			}
			key := sel.Alias
			if key == "" {
				key = sel.Name
			}
			found := false
			for _, c := range fields {
				if c.key == key {
					// Same key requested again so add any sub-selections to the earlier field
					merged := *c.field
					merged.SelectionSet = append(append(ast.SelectionSet{}, c.field.SelectionSet...), sel.SelectionSet...)
					c.field = &merged
					found = true
					break
				}
			}
			if !found {
				fields = append(fields, &collected{key: key, field: sel})
			}

		case *ast.InlineFragment:
			if op.directiveBypass(sel.Directives) || (sel.TypeCondition != "" && sel.TypeCondition != typeName) {
				continue
			}
			fields = op.collectFields(sel.SelectionSet, typeName, fields, visited)

		case *ast.FragmentSpread:
			if op.directiveBypass(sel.Directives) || visited[sel.Name] || sel.Definition == nil {
				continue
			}
			visited[sel.Name] = true
			if sel.Definition.TypeCondition != typeName {
				continue
			}
			fields = op.collectFields(sel.Definition.SelectionSet, typeName, fields, visited)
		}
	}
	return fields
}

// wrapResolve calls resolveField putting the return value on a chan and converting any panic to an error
func (op *gqlOperation) wrapResolve(ctx context.Context, astField *ast.Field, v reflect.Value,
	def *ast.Definition, path ast.Path, ch chan<- gqlValue,
) {
	defer func() {
		// Convert any panics in resolvers into an (internal) error
		if recoverValue := recover(); recoverValue != nil {
			op.log.Error().
				Str("path", path.String()).
				Interface("panic", recoverValue).
				Msg("resolver panic")
			op.addError(errors.New("internal error"), path, astField)
			ch <- nullValue(astField.Definition.Type)
		}
	}()
	ch <- op.resolveField(ctx, astField, v, def, path)
}

// resolveField finds the resolver for a query field in the struct v and calls it (if a func) to get the value
// which is then converted to the result according to the field's type in the schema
func (op *gqlOperation) resolveField(ctx context.Context, astField *ast.Field, v reflect.Value,
	def *ast.Definition, path ast.Path,
) gqlValue {
	if astField.Name == "__typename" {
		return gqlValue{value: def.Name, ok: true}
	}
	if strings.HasPrefix(astField.Name, "__") && def == op.schema.Query {
		if op.noIntrospection {
			op.addError(errors.New("introspection is disabled"), path, astField)
			return nullValue(astField.Definition.Type)
		}
		v = derefValue(op.introspection)
	}

	rd, found := op.resolverLookup[v.Type()][astField.Name]
	if !found {
		// Should not happen as resolvers are checked against the schema when the handler is created
		op.addError(fmt.Errorf("no resolver found for field %q of %q", astField.Name, def.Name), path, astField)
		return nullValue(astField.Definition.Type)
	}

	value := v.Field(rd.index)
	if value.Kind() == reflect.Func {
		if value.IsNil() {
			value = reflect.Value{} // nil resolver func gives null
		} else {
			var err error
			// For function fields, we have to call it to get the resolver value to use
			if value, err = op.fromFunc(ctx, astField, value, rd.info); err != nil {
				op.addError(err, path, astField)
				return nullValue(astField.Definition.Type)
			}
		}
	}
	return op.completeValue(ctx, astField, astField.Definition.Type, value, path)
}

// completeValue converts a Go value to the result for a GraphQL type - a scalar, list or object (jsonmap.Ordered)
func (op *gqlOperation) completeValue(ctx context.Context, astField *ast.Field, t *ast.Type, v reflect.Value,
	path ast.Path,
) gqlValue {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			v = reflect.Value{}
			break
		}
		v = v.Elem() // follow indirection
	}
	if !v.IsValid() || (v.Kind() == reflect.Slice && v.IsNil() && t.Elem != nil) {
		if t.NonNull {
			op.addError(fmt.Errorf("non-nullable field %s.%s resolved to null",
				astField.ObjectDefinition.Name, astField.Name), path, astField)
		}
		return nullValue(t)
	}

	// Lists
	if t.Elem != nil {
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			op.addError(fmt.Errorf("list field %q resolved to %v", astField.Name, v.Type()), path, astField)
			return nullValue(t)
		}
		results := make([]interface{}, 0, v.Len()) // to distinguish empty slice from nil slice
		for i := 0; i < v.Len(); i++ {
			value := op.completeValue(ctx, astField, t.Elem, v.Index(i), appendPath(path, ast.PathIndex(i)))
			if !value.ok {
				return nullValue(t) // a null element in a non-null position nulls the whole list
			}
			results = append(results, value.value)
		}
		return gqlValue{value: results, ok: true}
	}

	def := op.schema.Types[t.NamedType]
	if def == nil {
		panic("type " + t.NamedType + " not found in schema") // validated schema so this is a bug
	}
	switch def.Kind {
	case ast.Object:
		if v.Kind() != reflect.Struct {
			op.addError(fmt.Errorf("object field %q resolved to %v", astField.Name, v.Type()), path, astField)
			return nullValue(t)
		}
		// Look up all sub-queries in this object
		result, ok := op.GetSelections(ctx, astField.SelectionSet, v, def, path)
		if !ok {
			return nullValue(t)
		}
		return gqlValue{value: result, ok: true}

	case ast.Scalar, ast.Enum:
		value, err := serialize(def.Name, v)
		if err != nil {
			op.addError(err, path, astField)
			return nullValue(t)
		}
		return gqlValue{value: value, ok: true}
	}
	op.addError(fmt.Errorf("%s type %q is not supported", strings.ToLower(string(def.Kind)), def.Name), path, astField)
	return nullValue(t)
}

// serialize converts a Go value to a scalar or enum value for the JSON result
func serialize(typeName string, v reflect.Value) (interface{}, error) {
	if m, ok := v.Interface().(json.Marshaler); ok {
		return m, nil // custom scalar
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if typeName == "ID" {
			return strconv.FormatInt(v.Int(), 10), nil // IDs are always serialized as strings
		}
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if typeName == "ID" {
			return strconv.FormatUint(v.Uint(), 10), nil
		}
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Bool:
		return v.Bool(), nil
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), nil
	}
	return nil, fmt.Errorf("cannot convert %v to %s", v.Type(), typeName)
}

// directiveBypass handles field directives - just standard "skip" and "include" for now
// Returns: true if a directive indicates the field is not to be processed
func (op *gqlOperation) directiveBypass(directives ast.DirectiveList) bool {
	for _, d := range directives {
		if d.Name != "skip" && d.Name != "include" {
			continue
		}
		reverse := d.Name == "skip"
		if arg := d.Arguments.ForName("if"); arg != nil {
			if rawValue, err := arg.Value.Value(op.variables); err == nil {
				if b, ok := rawValue.(bool); ok && b == reverse {
					return true
				}
			}
		}
	}
	return false
}

// addError records an error for a field including the location in the query and its path in the result
func (op *gqlOperation) addError(err error, path ast.Path, astField *ast.Field) {
	e := &gqlerror.Error{
		Err:     err,
		Message: err.Error(),
		Path:    path,
	}
	if astField.Position != nil {
		e.Locations = []gqlerror.Location{{Line: astField.Position.Line, Column: astField.Position.Column}}
	}
	var ce codeError
	if errors.As(err, &ce) {
		if code := ce.Code(); code != "" {
			e.Extensions = map[string]interface{}{"code": code}
		}
	}

	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.done {
		op.errors = append(op.errors, e)
	}
}

// finish stops further errors being recorded and returns those collected so far
func (op *gqlOperation) finish() gqlerror.List {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.done = true
	return append(gqlerror.List(nil), op.errors...)
}

// nullValue returns a null result which is only OK (ie does not propagate) if the type is nullable
func nullValue(t *ast.Type) gqlValue {
	return gqlValue{ok: t == nil || !t.NonNull}
}

// appendPath returns a new path so that paths of sibling fields never share a backing array
func appendPath(path ast.Path, elt ast.PathElement) ast.Path {
	r := make(ast.Path, len(path), len(path)+1)
	copy(r, path)
	return append(r, elt)
}

// derefValue returns the value pointed to by a (pointer to a) struct
func derefValue(data interface{}) reflect.Value {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		v = v.Elem() // follow indirection
	}
	return v
}
