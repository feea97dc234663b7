package cache

import "maps"

// Args is the call signature of one invocation: positional values in order
// plus keyword values by name.
//
// Passing a value positionally or by keyword are different signatures, even
// when the wrapped function treats them as the same parameter.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Positional builds Args holding only positional values.
func Positional(values ...any) Args {
	return Args{Positional: values}
}

// Kw builds Args holding a single keyword value.
func Kw(name string, value any) Args {
	return Args{Keyword: map[string]any{name: value}}
}

// With returns a copy of a with the keyword name set to value.
func (a Args) With(name string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	maps.Copy(kw, a.Keyword)
	kw[name] = value
	return Args{Positional: a.Positional, Keyword: kw}
}

// Arg returns the positional value at index i.
func (a Args) Arg(i int) (any, bool) {
	if i < 0 || i >= len(a.Positional) {
		return nil, false
	}
	return a.Positional[i], true
}

// Kwarg returns the keyword value for name.
func (a Args) Kwarg(name string) (any, bool) {
	v, ok := a.Keyword[name]
	return v, ok
}

// Lookup resolves a parameter the way a function body would: by keyword first,
// then by position. It does not affect key derivation.
func (a Args) Lookup(name string, position int) (any, bool) {
	if v, ok := a.Kwarg(name); ok {
		return v, true
	}
	return a.Arg(position)
}

// Len returns the total number of values in the signature.
func (a Args) Len() int {
	return len(a.Positional) + len(a.Keyword)
}
