package cache

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes values to bytes and back.
//
// Marshal must be deterministic: equal values produce equal bytes within and
// across processes. Key derivation depends on it.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// msgpackCodec encodes with msgpack, sorting map keys so maps are canonical.
//
// msgpack packs integers into the smallest wire type, so a value decoded into
// an interface comes back as int8, uint16 and so on. Unmarshal widens those
// back to int, which is what Go code puts into an any in the first place.
// Integers outside the int range stay uint64.
type msgpackCodec struct{}

// NewMsgpackCodec returns the default codec.
func NewMsgpackCodec() Codec {
	return msgpackCodec{}
}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	if hasCycle(v) {
		return nil, fmt.Errorf("msgpack: Encode(cyclic %T)", v)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return err
	}
	widenInterfaces(reflect.ValueOf(v))
	return nil
}

// widenInterfaces rewrites every empty interface slot reachable from rv with
// widenNumber applied to its dynamic value.
func widenInterfaces(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Ptr:
		if !rv.IsNil() {
			widenInterfaces(rv.Elem())
		}
	case reflect.Interface:
		// only an empty interface can take the widened value
		if rv.IsNil() || !rv.CanSet() || rv.Type().NumMethod() != 0 {
			return
		}
		rv.Set(reflect.ValueOf(widenNumber(rv.Elem().Interface())))
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if field := rv.Field(i); field.CanSet() {
				widenInterfaces(field)
			}
		}
	case reflect.Slice, reflect.Array:
		if elemIsScalar(rv.Type().Elem()) {
			return
		}
		for i := 0; i < rv.Len(); i++ {
			widenInterfaces(rv.Index(i))
		}
	case reflect.Map:
		if rv.IsNil() || elemIsScalar(rv.Type().Elem()) {
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			elem := reflect.New(rv.Type().Elem()).Elem()
			elem.Set(iter.Value())
			widenInterfaces(elem)
			rv.SetMapIndex(iter.Key(), elem)
		}
	}
}

// widenNumber maps the sized integers msgpack decodes into int, descending
// into the generic containers it builds for nested values.
func widenNumber(v any) any {
	switch n := v.(type) {
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		if n >= math.MinInt && n <= math.MaxInt {
			return int(n)
		}
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		if uint64(n) <= math.MaxInt {
			return int(n)
		}
	case uint64:
		if n <= math.MaxInt {
			return int(n)
		}
	case []any:
		for i := range n {
			n[i] = widenNumber(n[i])
		}
	case map[string]any:
		for k, e := range n {
			n[k] = widenNumber(e)
		}
	case map[any]any:
		for k, e := range n {
			n[k] = widenNumber(e)
		}
	}
	return v
}

func elemIsScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return false
	}
	return true
}
