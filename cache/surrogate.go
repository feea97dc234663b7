package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Surrogate returns the displayable string form that stands in for a value the
// codec cannot encode.
//
// Values implementing fmt.Stringer or error render through those methods.
// Everything else is rendered by reflection: pointers are dereferenced,
// slices and arrays keep element order, maps are sorted by rendered key and
// structs list their exported fields. A reference met again while rendering
// itself renders as "cycle:<type>". Two distinct values that render the same
// share a cache key; that is the price of staying cacheable.
func Surrogate(v any) string {
	s := &surrogateRenderer{path: make(map[visit]struct{})}
	return s.render(v)
}

type surrogateRenderer struct {
	path map[visit]struct{}
}

func (s *surrogateRenderer) render(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return rt.Kind().String() + ":nil"
		}
	}

	switch rt.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		key := visit{ptr: rv.Pointer(), typ: rt}
		if _, seen := s.path[key]; seen {
			return "cycle:" + rt.String()
		}
		s.path[key] = struct{}{}
		defer delete(s.path, key)
	}

	switch val := v.(type) {
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}

	switch rt.Kind() {
	case reflect.Func:
		// stable only within one process
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Ptr, reflect.Interface:
		return s.render(rv.Elem().Interface())
	case reflect.Slice:
		return s.renderSequence("slice", rv)
	case reflect.Array:
		return s.renderSequence("array", rv)
	case reflect.Map:
		return s.renderMap(rv)
	case reflect.Struct:
		return s.renderStruct(rv, rt)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (s *surrogateRenderer) renderSequence(kind string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = s.renderValue(rv.Index(i))
	}
	return fmt.Sprintf("%s[%d]:{%s}", kind, length, strings.Join(parts, ","))
}

func (s *surrogateRenderer) renderMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.renderValue(iter.Key())+"="+s.renderValue(iter.Value()))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func (s *surrogateRenderer) renderStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+s.renderValue(rv.Field(i)))
	}
	return fmt.Sprintf("%s{%s}", rt.String(), strings.Join(parts, ","))
}

func (s *surrogateRenderer) renderValue(rv reflect.Value) string {
	if !rv.IsValid() || !rv.CanInterface() {
		return "invalid"
	}
	return s.render(rv.Interface())
}
