package di

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/goliatone/go-dcache/cache"
	"github.com/goliatone/go-dcache/memoize"
)

// Container provides dependency injection for cache related components.
// It owns the logger and the cache service, and provides factory functions
// for wrapping functions with that service.
type Container struct {
	config  cache.Config
	logger  zerolog.Logger
	service *cache.Service
}

// Option customizes a Container.
type Option func(*containerOptions)

type containerOptions struct {
	logger        *zerolog.Logger
	meterProvider metric.MeterProvider
	serviceOpts   []cache.Option
}

// WithLogger replaces the logger built from Config.LogLevel.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *containerOptions) {
		o.logger = &logger
	}
}

// WithMeterProvider routes cache metrics to provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *containerOptions) {
		o.meterProvider = provider
	}
}

// WithServiceOptions passes extra options to cache.NewService.
func WithServiceOptions(opts ...cache.Option) Option {
	return func(o *containerOptions) {
		o.serviceOpts = append(o.serviceOpts, opts...)
	}
}

// NewContainer creates a new DI container with the provided cache configuration.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	var o containerOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := NewLogger(config.LogLevel)
	if o.logger != nil {
		logger = *o.logger
	}

	serviceOpts := []cache.Option{cache.WithLogger(logger)}
	if o.meterProvider != nil {
		serviceOpts = append(serviceOpts, cache.WithMeterProvider(o.meterProvider))
	}
	serviceOpts = append(serviceOpts, o.serviceOpts...)

	service, err := cache.NewService(config, serviceOpts...)
	if err != nil {
		return nil, err
	}

	return &Container{
		config:  config,
		logger:  logger,
		service: service,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
// Entries are kept under ./.dcache.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// NewContainerFromEnv creates a new DI container configured from DCACHE_*
// environment variables.
func NewContainerFromEnv(opts ...Option) (*Container, error) {
	config, err := cache.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewContainer(config, opts...)
}

var (
	defaultOnce      sync.Once
	defaultContainer *Container
	defaultErr       error
)

// Default returns the process-wide container, built from the environment on
// first use. It is never closed.
func Default() (*Container, error) {
	defaultOnce.Do(func() {
		defaultContainer, defaultErr = NewContainerFromEnv()
	})
	return defaultContainer, defaultErr
}

// NewLogger builds a timestamped stderr logger at level. Unknown or empty
// levels mean info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)
}

// Service returns the cache service owned by the container.
func (c *Container) Service() *cache.Service {
	return c.service
}

// CacheService returns the cache service as the interface decorators consume.
func (c *Container) CacheService() cache.CacheService {
	return c.service
}

// Logger returns the container logger.
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close closes the cache service.
func (c *Container) Close() error {
	return c.service.Close()
}

// Cached wraps fn with the container's cache service.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: Cached[User](container, loadUser, memoize.WithRequiredKeys("user_id"))
func Cached[R any](container *Container, fn memoize.Func[R], opts ...memoize.Option) memoize.Func[R] {
	return memoize.Configure[R](container.service, opts...)(fn)
}

// CachedAsync wraps an async fn with the container's cache service.
func CachedAsync[R any](container *Container, fn memoize.AsyncFunc[R], opts ...memoize.Option) memoize.AsyncFunc[R] {
	return memoize.ConfigureAsync[R](container.service, opts...)(fn)
}
