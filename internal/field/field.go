// Package field is for analysing Go struct fields for use as GraphQL query fields (resolvers)
package field

// field.go generates GraphQL resolver info from a Go struct field

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Info is returned from Get() with info extracted from a struct field to be used as a GraphQL resolver.
// The info is obtained from the field's name, type and "egg:" (metadata) tag.
type Info struct {
	Name       string       // field name for use in GraphQL queries - from the tag or the Go field name
	ResultType reflect.Type // Go type the resolver produces = field type, func return type, or element type for slices

	// The following are for function resolvers only
	Params     []string // name(s) of args to the resolver function obtained from the tag
	HasContext bool     // 1st function parameter is a context.Context (not a query argument)
	HasError   bool     // has 2 return values the 2nd of which is a Go error
}

// contextType is used to check if a resolver function takes a context.Context (1st) parameter
var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// errorType is used to check if a resolver function returns a (2nd) error return value
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Get checks if a field in a Go struct is exported and, if so, returns the GraphQL field info, incl. the
// GraphQL field name, derived from the Go field name (with 1st char lower-cased) or taken from the tag.
// For a function it also checks that the number of parameters matches the arguments named in the tag.
// If the field is not exported or the tag is a dash (-) then nil is returned, but no error.
func Get(f *reflect.StructField) (*Info, error) {
	if f.PkgPath != "" {
		return nil, nil // unexported field
	}

	fieldInfo, err := GetTagInfo(f.Tag.Get("egg"))
	if err != nil {
		return nil, fmt.Errorf("%w getting tag info from field %q", err, f.Name)
	}
	if fieldInfo == nil {
		return nil, nil // explicitly omitted field
	}

	if fieldInfo.Name == "" {
		first, n := utf8.DecodeRuneInString(f.Name)
		fieldInfo.Name = string(unicode.ToLower(first)) + f.Name[n:]
	}

	t := f.Type
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() == reflect.Func {
		firstIndex := 0
		if t.NumIn() > 0 && t.In(0).Kind() == reflect.Interface && t.In(0).Implements(contextType) {
			// 1st param is a context so don't add it to the list of query arguments
			fieldInfo.HasContext = true
			firstIndex++
		}
		if t.NumIn()-firstIndex != len(fieldInfo.Params) {
			if len(fieldInfo.Params) == 0 {
				return nil, fmt.Errorf("no args found in tag for %q but %d required", f.Name, t.NumIn()-firstIndex)
			}
			return nil, fmt.Errorf("function %q argument count should be %d but is %d",
				f.Name, len(fieldInfo.Params), t.NumIn()-firstIndex)
		}

		switch t.NumOut() {
		case 1:
		case 2:
			if t2 := t.Out(1); t2.Kind() != reflect.Interface || !t2.Implements(errorType) {
				return nil, errors.New("resolver " + f.Name + " 2nd return must be error type")
			}
			fieldInfo.HasError = true
		case 0:
			return nil, errors.New("resolver " + f.Name + " must return a value (or 2)")
		default:
			return nil, errors.New("resolver " + f.Name + " returns too many values")
		}
		t = t.Out(0) // now use return type of func as resolver type
	} else if fieldInfo.Params != nil {
		return nil, errors.New("arguments cannot be supplied for non-function resolver " + f.Name)
	}

	fieldInfo.ResultType = BaseType(t)
	return fieldInfo, nil
}

// BaseType strips pointers, slices and arrays from t to get the type of the underlying value(s),
// which is a struct for GraphQL objects or the Go type of a scalar.
func BaseType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}
}
