package memoize

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-dcache/cache"
)

// Option configures a decorator built by Configure or ConfigureAsync.
type Option func(*options)

type options struct {
	name         string
	requiredKeys []string
	singleFlight bool
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// identity returns the configured name, or the qualified name of fn.
// Method values need a name: every receiver of r.Get reports the same one.
func (o options) identity(fn any) (string, error) {
	if o.name != "" {
		return o.name, nil
	}
	id := cache.FunctionIdentity(fn)
	if strings.HasSuffix(id, "-fm") {
		return "", fmt.Errorf("%w: %s", ErrMethodValue, id)
	}
	return id, nil
}

// WithRequiredKeys restricts caching to calls that pass every name as a
// keyword argument, and keys those calls on the named values only. Calls
// missing any of them run uncached. Order is kept and duplicates are dropped.
func WithRequiredKeys(names ...string) Option {
	return func(o *options) {
		seen := make(map[string]struct{}, len(o.requiredKeys)+len(names))
		for _, name := range o.requiredKeys {
			seen[name] = struct{}{}
		}
		for _, name := range names {
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			o.requiredKeys = append(o.requiredKeys, name)
		}
	}
}

// WithName overrides the function identity used in cache keys. Use it for
// closures built by a shared factory, which all report the same name, and to
// keep entries valid when a function is renamed or moved.
//
// Method values such as repo.Get require it. The receiver is not part of the
// key, so a.Get and b.Get must be given different names, for example
// WithName("users.Repo.Get:" + a.region). Without a name, calls return
// ErrMethodValue.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSingleFlight collapses concurrent misses for the same key into one
// call of the wrapped function. Callers sharing a call share its error.
// It has no effect on async decorators.
func WithSingleFlight() Option {
	return func(o *options) {
		o.singleFlight = true
	}
}
