package handler

// call.go uses reflection to call a Go function that implements a GraphQL resolver

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/andrewwphillips/hackernews/internal/field"
	"github.com/vektah/gqlparser/v2/ast"
)

// fromFunc calls a Go function (resolver) and returns the value it produces
// Parameters:
//
//	ctx - is a context.Context that may be cancelled at any time
//	astField - is the GraphQL query object field
//	v - the reflection "value" of the Go function
//	fieldInfo - contains the parameter names obtained from the Go field metadata
func (op *gqlOperation) fromFunc(ctx context.Context, astField *ast.Field, v reflect.Value, fieldInfo *field.Info,
) (reflect.Value, error) {
	t := v.Type()
	args := make([]reflect.Value, t.NumIn()) // list of arguments for the function call
	baseArg := 0                             // index of 1st query resolver argument (== 1 if function call needs ctx, else == 0)

	if fieldInfo.HasContext {
		args[0] = reflect.ValueOf(ctx)
		baseArg++
	}

	// GraphQL arguments are supplied by name not position so use the names from the tag to get the order
	for n, name := range fieldInfo.Params {
		rawValue, err := op.argValue(astField, name)
		if err != nil {
			return reflect.Value{}, err
		}
		// Now convert the "raw" value into the expected Go parameter type
		if args[baseArg+n], err = getValue(t.In(baseArg+n), name, rawValue); err != nil {
			return reflect.Value{}, err
		}
	}

	out := v.Call(args) // === the actual function call (using reflection) ===

	// Extract the error return value (if any)
	if fieldInfo.HasError {
		if iface := out[1].Interface(); iface != nil {
			return reflect.Value{}, iface.(error)
		}
	}
	return out[0], nil
}

// argValue gets the value of an argument as stored by the JSON decoder or ast.Value.Value(), where a GraphQL
// "object" is stored as a map[string]interface{} and a GraphQL list is stored as a []interface{}.
// If the argument is not supplied (or is a variable that was not supplied) the default from the schema is used,
// and if there is no default nil is returned.
func (op *gqlOperation) argValue(astField *ast.Field, name string) (interface{}, error) {
	if arg := astField.Arguments.ForName(name); arg != nil {
		if arg.Value.Kind != ast.Variable {
			return arg.Value.Value(op.variables)
		}
		if value, ok := op.variables[arg.Value.Raw]; ok {
			return value, nil
		}
	}
	if astField.Definition != nil {
		if def := astField.Definition.Arguments.ForName(name); def != nil && def.DefaultValue != nil {
			return def.DefaultValue.Value(nil)
		}
	}
	return nil, nil
}

// getValue returns a value (eg for a resolver argument) given an interface{} and an expected Go type
// Parameters:
//
//	t = expected type
//	name = corresponding name of the argument (for error messages)
//	value = what needs to be returned as a value of type t
//
// A pointer parameter is nil when the argument is null or absent, which allows a resolver to tell
// an absent argument from a zero value.
func getValue(t reflect.Type, name string, value interface{}) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		elem, err := getValue(t.Elem(), name, value)
		if err != nil {
			return reflect.Value{}, err
		}
		r := reflect.New(t.Elem())
		r.Elem().Set(elem)
		return r, nil
	case reflect.Interface:
		if v := reflect.ValueOf(value); v.Type().Implements(t) {
			return v, nil
		}
		return reflect.Value{}, fmt.Errorf("argument %q of type %T does not implement %v", name, value, t)
	}

	// Try to convert the type of the variable to the expected type
	switch v := value.(type) {
	case string:
		return getString(t, name, v)
	case bool:
		if t.Kind() != reflect.Bool {
			return reflect.Value{}, fmt.Errorf("argument %q: cannot use Boolean as %v", name, t)
		}
		return reflect.ValueOf(v).Convert(t), nil
	case int64:
		return getInt(t, name, v)
	case int:
		return getInt(t, name, int64(v))
	case float64:
		return getFloat(t, name, v)
	case []interface{}:
		return getList(t, name, v)
	case map[string]interface{}:
		return getStruct(t, name, v)
	}
	return reflect.Value{}, fmt.Errorf("argument %q is of unsupported type %T", name, value)
}

// getStruct converts a map (eg from the JSON decoder) to a struct for a GraphQL INPUT type.
// Parameters
//
//	t = type of the struct that we need to fill in from the GraphQL object
//	name = name of the argument
//	m = map key is field names of the object, map value is field values
func getStruct(t reflect.Type, name string, m map[string]interface{}) (reflect.Value, error) {
	if t.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("argument %q is not a GraphQL INPUT type", name)
	}

	// Create an instance of the struct and fill in the exported fields using m
	r := reflect.New(t).Elem()
	for idx := 0; idx < t.NumField(); idx++ {
		f := t.Field(idx)
		fieldInfo, err := field.Get(&f)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w getting field %q", err, f.Name)
		}
		if fieldInfo == nil {
			continue // ignore unexported field
		}
		value, ok := m[fieldInfo.Name]
		if !ok {
			continue
		}
		v, err := getValue(f.Type, name+"."+fieldInfo.Name, value)
		if err != nil {
			return reflect.Value{}, err
		}
		r.Field(idx).Set(v)
	}
	return r, nil
}

// getList converts a list of values from a GraphQL variable or literal into a Go slice
func getList(t reflect.Type, name string, list []interface{}) (reflect.Value, error) {
	if t.Kind() != reflect.Slice {
		return reflect.Value{}, fmt.Errorf("argument %q is not a list", name)
	}
	r := reflect.MakeSlice(t, len(list), len(list))
	for i, value := range list {
		v, err := getValue(t.Elem(), fmt.Sprintf("%s[%d]", name, i), value)
		if err != nil {
			return reflect.Value{}, err
		}
		r.Index(i).Set(v)
	}
	return r, nil
}

// getInt takes an integer and returns the value as the desired Go type (ints, floats and strings).
// An error is returned if the value does not fit in the type.
func getInt(t reflect.Type, name string, i int64) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if reflect.Zero(t).OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("argument %q: %d overflows %v", name, i, t)
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i < 0 || reflect.Zero(t).OverflowUint(uint64(i)) {
			return reflect.Value{}, fmt.Errorf("argument %q: %d overflows %v", name, i, t)
		}
		return reflect.ValueOf(uint64(i)).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(float64(i)).Convert(t), nil
	case reflect.String:
		// an ID may be supplied as an integer
		return reflect.ValueOf(strconv.FormatInt(i, 10)).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("argument %q: cannot use integer as %v", name, t)
}

// getFloat takes a float and returns the value as the desired Go type.
// A float can only be used for an integer type if it has no fractional part.
func getFloat(t reflect.Type, name string, f float64) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.String:
		return reflect.ValueOf(strconv.FormatFloat(f, 'g', -1, 64)).Convert(t), nil
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return reflect.Value{}, fmt.Errorf("argument %q: %g is not an integer", name, f)
	}
	return getInt(t, name, int64(f))
}

// getString converts a string into the expected type of a resolver function's parameter
func getString(t reflect.Type, name string, s string) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Bool:
		// The only GraphQL boolean literals are "true" and "false"
		switch s {
		case "false":
			return reflect.ValueOf(false).Convert(t), nil
		case "true":
			return reflect.ValueOf(true).Convert(t), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return getInt(t, name, i)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u, err := strconv.ParseUint(s, 10, 64); err == nil && !reflect.Zero(t).OverflowUint(u) {
			return reflect.ValueOf(u).Convert(t), nil
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return reflect.ValueOf(f).Convert(t), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("argument %q: cannot use %q as %v", name, s, t)
}
