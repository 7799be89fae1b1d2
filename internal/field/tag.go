package field

// tag.go handles extracting info from the "egg:" tag string (from struct field metadata)

import (
	"errors"
	"fmt"
	"strings"
)

// GetTagInfo extracts the GraphQL field name and resolver argument names from a field's tag.
// The tag looks like `egg:"name(arg1,arg2)"` where the name and the bracketed args are both optional.
// If the tag just contains a dash (-) then nil is returned (no error).  If the tag string is empty
// (e.g. if no tag was supplied) then the returned Info is not nil but the Name field is empty.
func GetTagInfo(tag string) (*Info, error) {
	if tag == "-" {
		return nil, nil // this field is to be ignored
	}
	parts, err := SplitArgs(tag)
	if err != nil {
		return nil, fmt.Errorf("%w splitting tag %q", err, tag)
	}

	var fieldInfo *Info
	for i, part := range parts {
		if i == 0 {
			if fieldInfo, err = getMain(part); err != nil {
				return nil, fmt.Errorf("%w in resolver %q of tag %q", err, part, tag)
			}
			continue
		}
		if part == "" {
			continue // ignore empty sections
		}
		if strings.HasPrefix(part, "args") {
			return nil, errors.New(`args option is not supported - add arguments (in brackets) after resolver name`)
		}
		return nil, fmt.Errorf("unknown option %q in %q", part, tag)
	}
	return fieldInfo, nil
}

// getMain handles the first part of the tag which may just be the resolver name (or even empty), but can
// also include the resolver's argument names (comma-separated and within brackets).
func getMain(s string) (*Info, error) {
	r := &Info{}
	i := strings.IndexByte(s, '(')
	if i == -1 {
		r.Name = strings.TrimSpace(s)
		return r, nil
	}
	r.Name = strings.TrimSpace(s[:i])

	list, err := getBracketedList(s[i:])
	if err != nil {
		return nil, fmt.Errorf("%w getting resolver args", err)
	}
	r.Params = make([]string, 0, len(list))
	for _, arg := range list {
		if arg == "" {
			return nil, errors.New("empty argument name")
		}
		if strings.ContainsAny(arg, ":=#") {
			return nil, fmt.Errorf("argument %q should just be a name (types and defaults come from the schema)", arg)
		}
		r.Params = append(r.Params, arg)
	}
	return r, nil
}

// getBracketedList gets a list of values from a string enclosed in brackets.
// Eg for getBracketedList("(a,b)") it will return []string{"a", "b"}.
func getBracketedList(s string) ([]string, error) {
	last := len(s) - 1
	if last < 1 || s[0] != '(' || s[last] != ')' {
		return nil, errors.New("arguments not in brackets")
	}
	s = strings.TrimSpace(s[1:last])
	if s == "" {
		return []string{}, nil // empty parameter list
	}
	return SplitArgs(s)
}
