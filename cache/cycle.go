package cache

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	customEncoderType = reflect.TypeOf((*msgpack.CustomEncoder)(nil)).Elem()
	marshalerType     = reflect.TypeOf((*msgpack.Marshaler)(nil)).Elem()
)

// visit identifies a reference on the current path. The type is part of the
// identity because a struct and its first field share an address.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

// hasCycle reports whether v reaches itself through the pointers, maps or
// slices msgpack would follow. Values that encode themselves are opaque.
func hasCycle(v any) bool {
	if v == nil {
		return false
	}
	return cycleFrom(reflect.ValueOf(v), make(map[visit]struct{}))
}

func cycleFrom(rv reflect.Value, path map[visit]struct{}) bool {
	if encodesItself(rv.Type()) {
		return false
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return false
		}
		key := visit{ptr: rv.Pointer(), typ: rv.Type()}
		if _, seen := path[key]; seen {
			return true
		}
		path[key] = struct{}{}
		defer delete(path, key)
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return cycleFrom(rv.Elem(), path)
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() || field.Tag.Get("msgpack") == "-" {
				continue
			}
			if cycleFrom(rv.Field(i), path) {
				return true
			}
		}
	case reflect.Slice, reflect.Array:
		if elemIsScalar(rv.Type().Elem()) {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if cycleFrom(rv.Index(i), path) {
				return true
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if cycleFrom(iter.Key(), path) || cycleFrom(iter.Value(), path) {
				return true
			}
		}
	}
	return false
}

func encodesItself(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(customEncoderType) || t.Implements(marshalerType) ||
		reflect.PointerTo(t).Implements(customEncoderType) || reflect.PointerTo(t).Implements(marshalerType)
}
