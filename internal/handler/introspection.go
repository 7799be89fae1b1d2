package handler

// introspection.go implements the introspection type which handles the GraphQL __schema and __type queries

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

type (
	introspection struct {
		Schema  gqlSchema             `egg:"__schema"`
		GetType func(string) *gqlType `egg:"__type(name)"`
	}

	gqlSchema struct {
		Description      *string
		Types            func() []*gqlType
		QueryType        *gqlType
		MutationType     *gqlType
		SubscriptionType *gqlType
		Directives       func() []gqlDirective
	}

	// gqlType fields are funcs so that the (possibly recursive) type graph is only generated as it is queried.
	// A nil func resolves to null which is what is required for fields that don't apply to a kind of type.
	gqlType struct {
		Kind           string
		Name           *string
		Description    *string
		Fields         func(bool) []gqlField      `egg:"fields(includeDeprecated)"`
		Interfaces     func() []*gqlType
		PossibleTypes  func() []*gqlType
		EnumValues     func(bool) []gqlEnumValue `egg:"enumValues(includeDeprecated)"`
		InputFields    func() []gqlInputValue
		OfType         func() *gqlType
		SpecifiedByURL *string
	}

	gqlField struct {
		Name              string
		Description       *string
		Args              []gqlInputValue
		Type              func() *gqlType
		IsDeprecated      bool
		DeprecationReason *string
	}

	gqlInputValue struct {
		Name         string
		Description  *string
		Type         func() *gqlType
		DefaultValue *string
	}

	gqlEnumValue struct {
		Name              string
		Description       *string
		IsDeprecated      bool
		DeprecationReason *string
	}

	gqlDirective struct {
		Name         string
		Description  *string
		Locations    []string
		Args         []gqlInputValue
		IsRepeatable bool
	}
)

// newIntrospection returns the resolvers for the introspection fields of the query type
func newIntrospection(schema *ast.Schema) *introspection {
	i := &introspection{
		Schema: gqlSchema{
			Types: func() []*gqlType {
				names := make([]string, 0, len(schema.Types))
				for name := range schema.Types {
					names = append(names, name)
				}
				sort.Strings(names) // map order is random but the result should be repeatable
				r := make([]*gqlType, 0, len(names))
				for _, name := range names {
					r = append(r, definitionType(schema, schema.Types[name]))
				}
				return r
			},
			Directives: func() []gqlDirective {
				return getDirectives(schema)
			},
		},
	}
	if schema.Query != nil {
		i.Schema.QueryType = definitionType(schema, schema.Query)
	}
	if schema.Mutation != nil {
		i.Schema.MutationType = definitionType(schema, schema.Mutation)
	}
	if schema.Subscription != nil {
		i.Schema.SubscriptionType = definitionType(schema, schema.Subscription)
	}
	i.GetType = func(name string) *gqlType {
		defn := schema.Types[name]
		if defn == nil {
			return nil
		}
		return definitionType(schema, defn)
	}
	return i
}

// definitionType generates the introspection type for a named type
func definitionType(schema *ast.Schema, defn *ast.Definition) *gqlType {
	r := &gqlType{
		Kind:        string(defn.Kind),
		Name:        &defn.Name,
		Description: optional(defn.Description),
	}
	switch defn.Kind {
	case ast.Object, ast.Interface:
		r.Fields = func(includeDeprecated bool) []gqlField {
			return getFields(schema, defn.Fields, includeDeprecated)
		}
		r.Interfaces = func() []*gqlType {
			list := make([]*gqlType, 0, len(defn.Interfaces))
			for _, name := range defn.Interfaces {
				if iface := schema.Types[name]; iface != nil {
					list = append(list, definitionType(schema, iface))
				}
			}
			return list
		}
	}
	if defn.IsAbstractType() {
		r.PossibleTypes = func() []*gqlType {
			possible := schema.GetPossibleTypes(defn)
			list := make([]*gqlType, 0, len(possible))
			for _, p := range possible {
				list = append(list, definitionType(schema, p))
			}
			return list
		}
	}
	if defn.Kind == ast.Enum {
		r.EnumValues = func(includeDeprecated bool) []gqlEnumValue {
			list := make([]gqlEnumValue, 0, len(defn.EnumValues))
			for _, v := range defn.EnumValues {
				reason, deprecated := deprecation(v.Directives)
				if deprecated && !includeDeprecated {
					continue
				}
				list = append(list, gqlEnumValue{
					Name:              v.Name,
					Description:       optional(v.Description),
					IsDeprecated:      deprecated,
					DeprecationReason: reason,
				})
			}
			return list
		}
	}
	if defn.Kind == ast.InputObject {
		r.InputFields = func() []gqlInputValue {
			list := make([]gqlInputValue, 0, len(defn.Fields))
			for _, f := range defn.Fields {
				list = append(list, inputValue(schema, f.Name, f.Description, f.Type, f.DefaultValue))
			}
			return list
		}
	}
	return r
}

// typeRef generates the introspection type for a reference to a type, which may be a list or non-null wrapper
func typeRef(schema *ast.Schema, t *ast.Type) *gqlType {
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return &gqlType{Kind: "NON_NULL", OfType: func() *gqlType { return typeRef(schema, &inner) }}
	}
	if t.Elem != nil {
		return &gqlType{Kind: "LIST", OfType: func() *gqlType { return typeRef(schema, t.Elem) }}
	}
	if defn := schema.Types[t.NamedType]; defn != nil {
		return definitionType(schema, defn)
	}
	return &gqlType{Kind: string(ast.Scalar), Name: &t.NamedType}
}

func getFields(schema *ast.Schema, fields ast.FieldList, includeDeprecated bool) []gqlField {
	r := make([]gqlField, 0, len(fields))
	for _, f := range fields {
		if len(f.Name) > 1 && f.Name[:2] == "__" {
			continue // __schema and __type are not listed
		}
		reason, deprecated := deprecation(f.Directives)
		if deprecated && !includeDeprecated {
			continue
		}
		args := make([]gqlInputValue, 0, len(f.Arguments))
		for _, arg := range f.Arguments {
			args = append(args, inputValue(schema, arg.Name, arg.Description, arg.Type, arg.DefaultValue))
		}
		fieldType := f.Type
		r = append(r, gqlField{
			Name:              f.Name,
			Description:       optional(f.Description),
			Args:              args,
			Type:              func() *gqlType { return typeRef(schema, fieldType) },
			IsDeprecated:      deprecated,
			DeprecationReason: reason,
		})
	}
	return r
}

func inputValue(schema *ast.Schema, name, description string, t *ast.Type, defaultValue *ast.Value) gqlInputValue {
	r := gqlInputValue{
		Name:        name,
		Description: optional(description),
		Type:        func() *gqlType { return typeRef(schema, t) },
	}
	if defaultValue != nil {
		s := defaultValue.String()
		r.DefaultValue = &s
	}
	return r
}

func getDirectives(schema *ast.Schema) []gqlDirective {
	names := make([]string, 0, len(schema.Directives))
	for name := range schema.Directives {
		names = append(names, name)
	}
	sort.Strings(names)

	r := make([]gqlDirective, 0, len(names))
	for _, name := range names {
		d := schema.Directives[name]
		locations := make([]string, 0, len(d.Locations))
		for _, l := range d.Locations {
			locations = append(locations, string(l))
		}
		args := make([]gqlInputValue, 0, len(d.Arguments))
		for _, arg := range d.Arguments {
			args = append(args, inputValue(schema, arg.Name, arg.Description, arg.Type, arg.DefaultValue))
		}
		r = append(r, gqlDirective{
			Name:         d.Name,
			Description:  optional(d.Description),
			Locations:    locations,
			Args:         args,
			IsRepeatable: d.IsRepeatable,
		})
	}
	return r
}

// deprecation checks for the @deprecated directive returning the reason (if any)
func deprecation(directives ast.DirectiveList) (*string, bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return nil, false
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		reason = arg.Value.Raw
	}
	return &reason, true
}

// optional converts an empty string (eg a missing description) to null
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
