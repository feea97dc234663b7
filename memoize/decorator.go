package memoize

import (
	"context"
	"errors"
	"reflect"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-dcache/cache"
)

var (
	// ErrNilFunc is returned by decorators wrapping a nil function.
	ErrNilFunc = errors.New("memoize: wrapped function is nil")

	// ErrNilFuture is returned when an AsyncFunc returns a nil Future.
	ErrNilFuture = errors.New("memoize: wrapped function returned a nil future")

	// ErrMethodValue is returned by decorators wrapping a method value
	// without WithName.
	ErrMethodValue = errors.New("memoize: method value needs WithName")
)

// Func is a synchronous function whose results can be cached.
type Func[R any] func(ctx context.Context, args cache.Args) (R, error)

// AsyncFunc is a function whose result resolves later.
type AsyncFunc[R any] func(ctx context.Context, args cache.Args) *Future[R]

// Wrap caches fn in svc with default options.
func Wrap[R any](svc cache.CacheService, fn Func[R]) Func[R] {
	return Configure[R](svc)(fn)
}

// WrapAsync caches fn in svc with default options.
func WrapAsync[R any](svc cache.CacheService, fn AsyncFunc[R]) AsyncFunc[R] {
	return ConfigureAsync[R](svc)(fn)
}

// Configure returns a decorator caching functions in svc with opts applied.
//
// A call served from the cache does not run the wrapped function. A call that
// runs it persists the result unless the function returned an error or ctx
// was done by the time it returned. Storage failures reach the caller as
// errors matching cache.ErrStorage.
func Configure[R any](svc cache.CacheService, opts ...Option) func(Func[R]) Func[R] {
	o := newOptions(opts)

	return func(fn Func[R]) Func[R] {
		if fn == nil {
			return func(context.Context, cache.Args) (R, error) {
				var zero R
				return zero, ErrNilFunc
			}
		}

		identity, err := o.identity(fn)
		if err == nil && isNilService(svc) {
			err = cache.ErrNilService
		}
		if err != nil {
			return func(context.Context, cache.Args) (R, error) {
				var zero R
				return zero, err
			}
		}

		var group *singleflight.Group
		if o.singleFlight {
			group = &singleflight.Group{}
		}

		return func(ctx context.Context, args cache.Args) (R, error) {
			key, ok := svc.DeriveKey(identity, args, o.requiredKeys)
			if !ok {
				return fn(ctx, args)
			}

			value, hit, err := cache.Get[R](ctx, svc, key)
			if err != nil || hit {
				return value, err
			}

			if group == nil {
				return execute(ctx, svc, key, fn, args)
			}

			shared, err, _ := group.Do(string(key), func() (any, error) {
				return execute(ctx, svc, key, fn, args)
			})
			if err != nil {
				var zero R
				return zero, err
			}
			result, _ := shared.(R)
			return result, nil
		}
	}
}

// execute runs fn on a miss and persists a successful result.
func execute[R any](ctx context.Context, svc cache.CacheService, key cache.Key, fn Func[R], args cache.Args) (R, error) {
	value, err := fn(ctx, args)
	if err != nil {
		return value, err
	}
	if ctx.Err() != nil {
		return value, nil
	}

	if err := cache.Put(ctx, svc, key, value); err != nil {
		var zero R
		return zero, err
	}
	return value, nil
}

// ConfigureAsync returns a decorator caching async functions in svc with opts
// applied. WithSingleFlight is ignored.
//
// Key derivation and lookup happen when the decorated function is called. A
// hit returns a resolved Future without calling the wrapped function. A miss
// calls it and returns a Future that, on its first Await, awaits the wrapped
// Future and persists the result. No entry is written when the wrapped Future
// fails or the awaiting context is done.
func ConfigureAsync[R any](svc cache.CacheService, opts ...Option) func(AsyncFunc[R]) AsyncFunc[R] {
	o := newOptions(opts)

	return func(fn AsyncFunc[R]) AsyncFunc[R] {
		if fn == nil {
			return func(context.Context, cache.Args) *Future[R] {
				return Rejected[R](ErrNilFunc)
			}
		}

		identity, err := o.identity(fn)
		if err == nil && isNilService(svc) {
			err = cache.ErrNilService
		}
		if err != nil {
			return func(context.Context, cache.Args) *Future[R] {
				return Rejected[R](err)
			}
		}

		call := func(ctx context.Context, args cache.Args) *Future[R] {
			if f := fn(ctx, args); f != nil {
				return f
			}
			return Rejected[R](ErrNilFuture)
		}

		return func(ctx context.Context, args cache.Args) *Future[R] {
			key, ok := svc.DeriveKey(identity, args, o.requiredKeys)
			if !ok {
				return call(ctx, args)
			}

			value, hit, err := cache.Get[R](ctx, svc, key)
			if err != nil {
				return Rejected[R](err)
			}
			if hit {
				return Resolved(value)
			}

			inner := fn(ctx, args)
			if inner == nil {
				return Rejected[R](ErrNilFuture)
			}

			return Defer(func(awaitCtx context.Context) (R, error) {
				value, err := inner.Await(awaitCtx)
				if err != nil {
					return value, err
				}
				if awaitCtx.Err() != nil || ctx.Err() != nil {
					return value, nil
				}

				if err := cache.Put(awaitCtx, svc, key, value); err != nil {
					var zero R
					return zero, err
				}
				return value, nil
			})
		}
	}
}

// isNilService also catches a nil *cache.Service stored in the interface.
func isNilService(svc cache.CacheService) bool {
	if svc == nil {
		return true
	}
	rv := reflect.ValueOf(svc)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
