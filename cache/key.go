package cache

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
)

// Key identifies one function + call signature combination.
type Key string

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// KeyDeriver builds cache keys from a function identity and its call arguments.
//
// Contract:
//   - Determinism: the same identity and arguments yield the same key, in this
//     process and in others using the same codec and hasher.
//   - ok=false means the call is not cacheable; the caller must run the
//     function without touching storage.
//   - Concurrency: implementations must be safe for concurrent use.
type KeyDeriver interface {
	DeriveKey(identity string, args Args, requiredKeys []string) (key Key, ok bool)
}

// DegradedFunc is notified when an argument had to be replaced by its
// surrogate. param is the keyword name, or "#<index>" for positionals.
type DegradedFunc func(identity, param string, err error)

const (
	modeFull     = "full"
	modeRequired = "required"

	formNative    byte = 'n'
	formSurrogate byte = 's'
)

// keyPart is one encoded argument.
type keyPart struct {
	_msgpack struct{} `msgpack:",as_array"`

	Name string
	Form byte
	Data []byte
}

// keyMaterial is the document that gets hashed into a Key.
type keyMaterial struct {
	_msgpack struct{} `msgpack:",as_array"`

	Identity   string
	Mode       string
	Positional []keyPart
	Keyword    []keyPart
}

type defaultKeyDeriver struct {
	codec      Codec
	hasher     Hasher
	onDegraded DegradedFunc
}

// NewDefaultKeyDeriver returns a KeyDeriver encoding arguments with codec and
// hashing with hasher. Nil arguments select the msgpack codec and SHA-256.
func NewDefaultKeyDeriver(codec Codec, hasher Hasher, onDegraded DegradedFunc) KeyDeriver {
	if codec == nil {
		codec = NewMsgpackCodec()
	}
	if hasher == nil {
		hasher = SHA256Hasher
	}
	return &defaultKeyDeriver{codec: codec, hasher: hasher, onDegraded: onDegraded}
}

// DeriveKey implements KeyDeriver.
//
// With requiredKeys set, only those keyword values (in the configured order)
// make up the key, and a call missing any of them by keyword is not
// cacheable. Without requiredKeys, all positional values plus the keyword
// values sorted by name make up the key.
func (d *defaultKeyDeriver) DeriveKey(identity string, args Args, requiredKeys []string) (Key, bool) {
	material := keyMaterial{Identity: identity, Mode: modeFull}

	if len(requiredKeys) > 0 {
		material.Mode = modeRequired
		material.Keyword = make([]keyPart, 0, len(requiredKeys))
		for _, name := range requiredKeys {
			v, ok := args.Keyword[name]
			if !ok {
				return "", false
			}
			material.Keyword = append(material.Keyword, d.encodePart(identity, name, name, v))
		}
	} else {
		material.Positional = make([]keyPart, len(args.Positional))
		for i, v := range args.Positional {
			material.Positional[i] = d.encodePart(identity, "", fmt.Sprintf("#%d", i), v)
		}

		names := make([]string, 0, len(args.Keyword))
		for name := range args.Keyword {
			names = append(names, name)
		}
		sort.Strings(names)

		material.Keyword = make([]keyPart, len(names))
		for i, name := range names {
			material.Keyword[i] = d.encodePart(identity, name, name, args.Keyword[name])
		}
	}

	data, err := d.codec.Marshal(&material)
	if err != nil {
		// only strings and byte slices remain at this point
		return "", false
	}
	return Key(d.hasher.Sum(data)), true
}

func (d *defaultKeyDeriver) encodePart(identity, name, param string, v any) keyPart {
	data, err := d.codec.Marshal(v)
	if err == nil {
		return keyPart{Name: name, Form: formNative, Data: data}
	}

	if d.onDegraded != nil {
		d.onDegraded(identity, param, err)
	}
	return keyPart{Name: name, Form: formSurrogate, Data: []byte(Surrogate(v))}
}

// FunctionIdentity returns the fully qualified name of fn, for example
// "github.com/acme/app/users.GetUser" or "github.com/acme/app/users.(*Repo).Get-fm".
// It returns "" when fn is not a non-nil function.
func FunctionIdentity(fn any) string {
	if fn == nil {
		return ""
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return ""
	}
	if f := runtime.FuncForPC(rv.Pointer()); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("func:%p", fn)
}
