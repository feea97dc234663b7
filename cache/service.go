package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/goliatone/go-dcache/internal/cacheinfra"
)

// Store is the storage medium behind a Service.
type Store = cacheinfra.Store

// CacheService exposes the operations decorators need to serve calls from
// persisted results. It is exported so that other packages can provide
// alternate implementations or test doubles.
type CacheService interface {
	// DeriveKey returns ok=false when the call is not cacheable.
	DeriveKey(identity string, args Args, requiredKeys []string) (key Key, ok bool)

	// Load decodes the entry for key into dest. An absent entry is a miss,
	// not an error.
	Load(ctx context.Context, key Key, dest any) (hit bool, err error)

	// Save encodes value and overwrites the entry for key. It returns an
	// error matching ErrUnencodable when the codec cannot encode value.
	Save(ctx context.Context, key Key, value any) error

	// SaveSurrogate persists text as the entry for key.
	SaveSurrogate(ctx context.Context, key Key, text string) error
}

// Option customizes a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger        zerolog.Logger
	meterProvider metric.MeterProvider
	store         Store
	deriver       KeyDeriver
	codec         Codec
}

// WithLogger sets the logger. Default: zerolog.Nop()
func WithLogger(logger zerolog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider. Default: noop
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *serviceOptions) {
		o.meterProvider = provider
	}
}

// WithStore replaces the storage medium selected by Config.Backend.
// The Service takes ownership and closes it.
func WithStore(store Store) Option {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// WithKeyDeriver replaces the default key deriver.
func WithKeyDeriver(deriver KeyDeriver) Option {
	return func(o *serviceOptions) {
		o.deriver = deriver
	}
}

// WithCodec replaces the msgpack codec used for arguments and results.
func WithCodec(codec Codec) Option {
	return func(o *serviceOptions) {
		o.codec = codec
	}
}

// Service is the cache store: it derives keys, reads and writes framed entries
// and keeps counters. A Service is safe for concurrent use.
type Service struct {
	cfg     Config
	store   Store
	memo    *cacheinfra.MemoStore
	codec   Codec
	deriver KeyDeriver
	logger  zerolog.Logger
	metrics *metrics
	stats   *counters

	closeOnce sync.Once
	closeErr  error
}

var _ CacheService = (*Service)(nil)

// NewService validates cfg, opens its storage medium and returns a Service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid config: %w", err)
	}

	o := serviceOptions{
		logger:        zerolog.Nop(),
		meterProvider: noop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := newMetrics(o.meterProvider.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("cache: init metrics: %w", err)
	}

	store := o.store
	if store == nil {
		store, err = openStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("cache: open %s store: %w", cfg.backend(), err)
		}
	}

	s := &Service{
		cfg:     cfg,
		store:   store,
		codec:   o.codec,
		logger:  o.logger.With().Str("component", "dcache").Logger(),
		metrics: m,
		stats:   newCounters(),
	}
	if s.codec == nil {
		s.codec = NewMsgpackCodec()
	}

	if cfg.Memory.Enabled {
		memo, err := cacheinfra.NewMemoStore(store, cfg.Memory.toInternal())
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("cache: memory layer: %w", err)
		}
		s.memo = memo
		s.store = memo
	}

	s.deriver = o.deriver
	if s.deriver == nil {
		hasher, err := HasherFor(cfg.Digest)
		if err != nil {
			_ = s.store.Close()
			return nil, err
		}
		s.deriver = NewDefaultKeyDeriver(s.codec, hasher, s.argumentDegraded)
	}

	s.logger.Debug().
		Str("backend", cfg.backend()).
		Str("dir", cfg.Dir).
		Bool("memory", cfg.Memory.Enabled).
		Msg("cache service ready")

	return s, nil
}

func openStore(cfg Config) (Store, error) {
	switch cfg.backend() {
	case BackendFile:
		return cacheinfra.NewFileStore(cfg.Dir)
	case BackendBolt:
		return cacheinfra.OpenBoltStore(cfg.boltPath(), "")
	case BackendSQLite:
		if err := ensureDir(cfg.Dir); err != nil {
			return nil, err
		}
		return cacheinfra.OpenSQLStore(context.Background(), "file:"+cfg.sqlitePath()+"?_busy_timeout=5000")
	case BackendMemory:
		return cacheinfra.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return nil
}

// Config returns the configuration the Service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// DeriveKey implements CacheService.
func (s *Service) DeriveKey(identity string, args Args, requiredKeys []string) (Key, bool) {
	key, ok := s.deriver.DeriveKey(identity, args, requiredKeys)
	if !ok {
		s.stats.uncacheable.Inc()
		s.metrics.lookup(context.Background(), LookupUncacheable)
		s.logger.Debug().Str("function", identity).Strs("required_keys", requiredKeys).Msg("call not cacheable")
	}
	return key, ok
}

// Load implements CacheService.
func (s *Service) Load(ctx context.Context, key Key, dest any) (bool, error) {
	if dest == nil || reflect.ValueOf(dest).Kind() != reflect.Pointer {
		return false, fmt.Errorf("%w: destination must be a non-nil pointer, got %T", ErrInvalidResultType, dest)
	}

	data, err := s.store.Read(ctx, string(key))
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			s.stats.misses.Inc()
			s.metrics.lookup(ctx, LookupMiss)
			s.logger.Debug().Str("key", string(key)).Msg("cache miss")
			return false, nil
		}
		return false, s.fail(ctx, "read", key, err)
	}

	payload, err := unframeEntry(data)
	if err != nil {
		return false, s.fail(ctx, "decode", key, err)
	}
	if err := s.codec.Unmarshal(payload, dest); err != nil {
		return false, s.fail(ctx, "decode", key, fmt.Errorf("%w: %v", ErrCorruptEntry, err))
	}

	s.stats.hits.Inc()
	s.metrics.lookup(ctx, LookupHit)
	s.logger.Debug().Str("key", string(key)).Msg("cache hit")
	return true, nil
}

// Save implements CacheService.
func (s *Service) Save(ctx context.Context, key Key, value any) error {
	payload, err := s.codec.Marshal(value)
	if err != nil {
		s.stats.degraded.Inc()
		s.metrics.degrade(ctx, "result")
		s.logger.Warn().
			Str("key", string(key)).
			Str("type", fmt.Sprintf("%T", value)).
			Err(err).
			Msg("result is not natively encodable")
		return fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return s.write(ctx, key, payload)
}

// SaveSurrogate implements CacheService.
func (s *Service) SaveSurrogate(ctx context.Context, key Key, text string) error {
	payload, err := s.codec.Marshal(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	s.logger.Warn().Str("key", string(key)).Msg("persisting result surrogate")
	return s.write(ctx, key, payload)
}

// Contains reports whether an entry exists for key.
func (s *Service) Contains(ctx context.Context, key Key) (bool, error) {
	ok, err := s.store.Exists(ctx, string(key))
	if err != nil {
		return false, s.fail(ctx, "exists", key, err)
	}
	return ok, nil
}

// Stats returns a snapshot of the Service's counters.
func (s *Service) Stats() Stats {
	st := s.stats.snapshot()
	if s.memo != nil {
		st.Mirrored = s.memo.Mirrored()
	}
	return st
}

// Close releases the storage medium. It is safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.store.Close()
	})
	return s.closeErr
}

func (s *Service) write(ctx context.Context, key Key, payload []byte) error {
	if err := s.store.Write(ctx, string(key), frameEntry(payload)); err != nil {
		return s.fail(ctx, "write", key, err)
	}
	s.stats.writes.Inc()
	s.metrics.write(ctx)
	s.logger.Debug().Str("key", string(key)).Int("bytes", len(payload)).Msg("entry written")
	return nil
}

func (s *Service) fail(ctx context.Context, op string, key Key, err error) error {
	s.stats.storageErrors.Inc()
	s.metrics.storageError(ctx, op)
	s.logger.Error().Str("op", op).Str("key", string(key)).Err(err).Msg("cache storage failure")
	return storageError(op, key, err)
}

func (s *Service) argumentDegraded(identity, param string, err error) {
	s.stats.degraded.Inc()
	s.metrics.degrade(context.Background(), "argument")
	s.logger.Warn().
		Str("function", identity).
		Str("param", param).
		Err(err).
		Msg("argument not natively encodable, keyed by its string form")
}

// Get loads the entry for key as a T. It returns hit=false on a miss.
func Get[T any](ctx context.Context, svc CacheService, key Key) (T, bool, error) {
	var value T
	hit, err := svc.Load(ctx, key, &value)
	if err != nil || !hit {
		var zero T
		return zero, false, err
	}
	return value, true, nil
}

// Put persists value under key.
//
// A value the codec cannot encode is stored as its Surrogate text, but only
// when a later Get can decode that text back into a T (string kinds and
// interfaces string satisfies). Otherwise nothing is written and Put returns
// nil; the caller still has the value.
func Put[T any](ctx context.Context, svc CacheService, key Key, value T) error {
	err := svc.Save(ctx, key, value)
	if err == nil || !errors.Is(err, ErrUnencodable) {
		return err
	}
	if !surrogateDecodesAs[T]() {
		return nil
	}
	return svc.SaveSurrogate(ctx, key, Surrogate(value))
}

func surrogateDecodesAs[T any]() bool {
	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.String {
		return true
	}
	return rt.Kind() == reflect.Interface && reflect.TypeFor[string]().Implements(rt)
}
