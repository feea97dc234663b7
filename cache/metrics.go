package cache

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/goliatone/go-dcache"

// Lookup outcomes reported on the dcache.lookups counter.
const (
	LookupHit         = "hit"
	LookupMiss        = "miss"
	LookupUncacheable = "uncacheable"
)

// Stats is a snapshot of a Service's counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Uncacheable   int64
	Writes        int64
	Degraded      int64
	StorageErrors int64

	// Mirrored is the number of entries held by the memory layer, when enabled.
	Mirrored int
}

// counters are the in-process totals behind Stats.
type counters struct {
	hits          *xsync.Counter
	misses        *xsync.Counter
	uncacheable   *xsync.Counter
	writes        *xsync.Counter
	degraded      *xsync.Counter
	storageErrors *xsync.Counter
}

func newCounters() *counters {
	return &counters{
		hits:          xsync.NewCounter(),
		misses:        xsync.NewCounter(),
		uncacheable:   xsync.NewCounter(),
		writes:        xsync.NewCounter(),
		degraded:      xsync.NewCounter(),
		storageErrors: xsync.NewCounter(),
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:          c.hits.Value(),
		Misses:        c.misses.Value(),
		Uncacheable:   c.uncacheable.Value(),
		Writes:        c.writes.Value(),
		Degraded:      c.degraded.Value(),
		StorageErrors: c.storageErrors.Value(),
	}
}

// metrics records cache activity as OpenTelemetry counters.
type metrics struct {
	lookups       metric.Int64Counter
	writes        metric.Int64Counter
	storageErrors metric.Int64Counter
	degraded      metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	lookups, err := meter.Int64Counter(
		"dcache.lookups",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	writes, err := meter.Int64Counter(
		"dcache.writes",
		metric.WithDescription("Entries persisted"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	storageErrors, err := meter.Int64Counter(
		"dcache.storage_errors",
		metric.WithDescription("Storage read or write failures, including corrupt entries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	degraded, err := meter.Int64Counter(
		"dcache.degraded",
		metric.WithDescription("Values replaced by their string surrogate"),
		metric.WithUnit("{value}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		lookups:       lookups,
		writes:        writes,
		storageErrors: storageErrors,
		degraded:      degraded,
	}, nil
}

func (m *metrics) lookup(ctx context.Context, result string) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) write(ctx context.Context) {
	m.writes.Add(ctx, 1)
}

func (m *metrics) storageError(ctx context.Context, op string) {
	m.storageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *metrics) degrade(ctx context.Context, subject string) {
	m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
}
