package builtins

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/informatter/flux/value"
)

func asStr(v value.Value, name string) (string, error) {
	s, ok := v.(value.Str)
	if !ok {
		return "", fmt.Errorf("%s: expected a String, got %s", name, v.Kind())
	}
	return string(s), nil
}

// upper/lower fold through golang.org/x/text/cases rather than strings.
// ToUpper/ToLower, which only special-case a handful of locales and get
// non-ASCII case mapping wrong for scripts like Turkish dotless-i.
func (r *registry) upper(args []value.Value) (value.Value, error) {
	if err := wantArgs("upper", args, 1); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "upper")
	if err != nil {
		return nil, err
	}
	return value.Str(cases.Upper(language.Und).String(s)), nil
}

func (r *registry) lower(args []value.Value) (value.Value, error) {
	if err := wantArgs("lower", args, 1); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "lower")
	if err != nil {
		return nil, err
	}
	return value.Str(cases.Lower(language.Und).String(s)), nil
}

func (r *registry) split(args []value.Value) (value.Value, error) {
	if err := wantArgs("split", args, 2); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "split")
	if err != nil {
		return nil, err
	}
	sep, err := asStr(args[1], "split")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.Str(p)
	}
	return r.fromSlice(out), nil
}

func (r *registry) join(args []value.Value) (value.Value, error) {
	if err := wantArgs("join", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	sep, err := asStr(args[1], "join")
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.(value.Str)
		if !ok {
			return nil, fmt.Errorf("join: element %d is not a String (got %s)", i, e.Kind())
		}
		parts[i] = string(s)
	}
	return value.Str(strings.Join(parts, sep)), nil
}

func (r *registry) trim(args []value.Value) (value.Value, error) {
	if err := wantArgs("trim", args, 1); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "trim")
	if err != nil {
		return nil, err
	}
	return value.Str(strings.TrimSpace(s)), nil
}

func (r *registry) contains(args []value.Value) (value.Value, error) {
	if err := wantArgs("contains", args, 2); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "contains")
	if err != nil {
		return nil, err
	}
	sub, err := asStr(args[1], "contains")
	if err != nil {
		return nil, err
	}
	return value.Boolean(strings.Contains(s, sub)), nil
}

func (r *registry) startsWith(args []value.Value) (value.Value, error) {
	if err := wantArgs("startsWith", args, 2); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "startsWith")
	if err != nil {
		return nil, err
	}
	prefix, err := asStr(args[1], "startsWith")
	if err != nil {
		return nil, err
	}
	return value.Boolean(strings.HasPrefix(s, prefix)), nil
}

func (r *registry) endsWith(args []value.Value) (value.Value, error) {
	if err := wantArgs("endsWith", args, 2); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "endsWith")
	if err != nil {
		return nil, err
	}
	suffix, err := asStr(args[1], "endsWith")
	if err != nil {
		return nil, err
	}
	return value.Boolean(strings.HasSuffix(s, suffix)), nil
}

func (r *registry) replace(args []value.Value) (value.Value, error) {
	if err := wantArgs("replace", args, 3); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "replace")
	if err != nil {
		return nil, err
	}
	old, err := asStr(args[1], "replace")
	if err != nil {
		return nil, err
	}
	new, err := asStr(args[2], "replace")
	if err != nil {
		return nil, err
	}
	return value.Str(strings.ReplaceAll(s, old, new)), nil
}

func (r *registry) toInt(args []value.Value) (value.Value, error) {
	if err := wantArgs("toInt", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case value.Integer:
		return value.Some{Inner: v}, nil
	case value.Float:
		return value.Some{Inner: value.Integer(int64(v))}, nil
	case value.Str:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return value.None, nil
		}
		return value.Some{Inner: value.Integer(n)}, nil
	default:
		return nil, fmt.Errorf("toInt: unsupported argument of kind %s", args[0].Kind())
	}
}

func (r *registry) toFloat(args []value.Value) (value.Value, error) {
	if err := wantArgs("toFloat", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case value.Float:
		return value.Some{Inner: v}, nil
	case value.Integer:
		return value.Some{Inner: value.Float(float64(v))}, nil
	case value.Str:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return value.None, nil
		}
		return value.Some{Inner: value.Float(f)}, nil
	default:
		return nil, fmt.Errorf("toFloat: unsupported argument of kind %s", args[0].Kind())
	}
}

func (r *registry) toString(args []value.Value) (value.Value, error) {
	if err := wantArgs("toString", args, 1); err != nil {
		return nil, err
	}
	return value.Str(args[0].String()), nil
}

// chars splits a string into a list of its individual runes, each as a
// one-character Str — the substring/indexing building block spec.md's
// string category names alongside split/join.
func (r *registry) chars(args []value.Value) (value.Value, error) {
	if err := wantArgs("chars", args, 1); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "chars")
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	out := make([]value.Value, len(runes))
	for i, c := range runes {
		out[i] = value.Str(string(c))
	}
	return r.fromSlice(out), nil
}

// substring extracts runes [start, end), clamped to the string's bounds the
// same way take/drop clamp their count rather than erroring on an
// out-of-range index.
func (r *registry) substring(args []value.Value) (value.Value, error) {
	if err := wantArgs("substring", args, 3); err != nil {
		return nil, err
	}
	s, err := asStr(args[0], "substring")
	if err != nil {
		return nil, err
	}
	start, err := asInt(args[1], "substring")
	if err != nil {
		return nil, err
	}
	end, err := asInt(args[2], "substring")
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > int64(len(runes)) {
		end = int64(len(runes))
	}
	if start >= end {
		return value.Str(""), nil
	}
	return value.Str(string(runes[start:end])), nil
}
