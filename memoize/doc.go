// Package memoize wraps functions so their results are served from a
// persistent cache.CacheService.
//
// Wrapped functions take a context and a cache.Args call signature:
//
//	add := memoize.Wrap[int](svc, func(ctx context.Context, args cache.Args) (int, error) {
//		x, _ := args.Arg(0)
//		y, _ := args.Arg(1)
//		return x.(int) + y.(int), nil
//	})
//
//	sum, err := add(ctx, cache.Positional(5, 3)) // runs the function
//	sum, err = add(ctx, cache.Positional(5, 3))  // served from the cache
//
// Configure and ConfigureAsync accept options:
//
//	getUser := memoize.Configure[User](svc, memoize.WithRequiredKeys("user_id"))(loadUser)
//
//	getUser(ctx, cache.Kw("user_id", 123))                         // cached
//	getUser(ctx, cache.Kw("user_id", 123).With("details", true))   // same entry
//	getUser(ctx, cache.Positional(123))                            // runs uncached
//
// A function's identity is its qualified name. Method values all report the
// name of the method whatever their receiver, so wrapping one requires
// WithName:
//
//	get := memoize.Configure[User](svc, memoize.WithName("users.Repo.Get:eu"))(euRepo.Get)
//
// Entries never expire. Concurrent misses for the same key each run the
// wrapped function and the last write wins, unless WithSingleFlight is set.
package memoize
