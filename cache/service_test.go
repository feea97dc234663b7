package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-dcache/internal/cacheinfra"
	"github.com/goliatone/go-dcache/pkg/testsupport"
)

var errDiskGone = errors.New("disk gone")

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (s failingStore) Exists(context.Context, string) (bool, error) { return false, s.err }
func (s failingStore) Read(context.Context, string) ([]byte, error) { return nil, s.err }
func (s failingStore) Write(context.Context, string, []byte) error  { return s.err }
func (s failingStore) Close() error                                 { return nil }

func newMemoryService(t *testing.T, opts ...Option) (*Service, *cacheinfra.MemoryStore) {
	t.Helper()

	store := cacheinfra.NewMemoryStore()
	svc, err := NewService(Config{Backend: BackendMemory}, append([]Option{WithStore(store)}, opts...)...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store
}

func TestService_MissThenHit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	key, ok := svc.DeriveKey("pkg.add", Positional(1, 2), nil)
	if !ok {
		t.Fatal("call not cacheable")
	}

	if _, hit, err := Get[int](ctx, svc, key); err != nil || hit {
		t.Fatalf("first Get() hit=%v err=%v, want miss", hit, err)
	}
	if err := Put(ctx, svc, key, 3); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, hit, err := Get[int](ctx, svc, key)
	if err != nil || !hit {
		t.Fatalf("second Get() hit=%v err=%v, want hit", hit, err)
	}
	if got != 3 {
		t.Errorf("Get() = %d, want 3", got)
	}

	stats := svc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Writes != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestService_StructResult(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	type user struct {
		ID      int
		Name    string
		Details map[string]string
	}
	in := user{ID: 123, Name: "John Doe", Details: map[string]string{"email": "john@example.com"}}

	key, _ := svc.DeriveKey("pkg.getUser", Kw("user_id", 123), []string{"user_id"})
	if err := Put(ctx, svc, key, in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	out, hit, err := Get[user](ctx, svc, key)
	if err != nil || !hit {
		t.Fatalf("Get() hit=%v err=%v", hit, err)
	}
	if out.Name != in.Name || out.Details["email"] != in.Details["email"] {
		t.Errorf("Get() = %+v, want %+v", out, in)
	}
}

func TestService_CorruptEntryFailsClosed(t *testing.T) {
	ctx := context.Background()
	svc, store := newMemoryService(t)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "garbage", data: []byte("garbage")},
		{name: "truncated", data: frameEntry([]byte{0x92, 0x01})[:13]},
		{name: "wrong type", data: func() []byte {
			payload, _ := NewMsgpackCodec().Marshal("not an int")
			return frameEntry(payload)
		}()},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Key(fmt.Sprintf("corrupt%d", i))
			if err := store.Write(ctx, string(key), tt.data); err != nil {
				t.Fatal(err)
			}

			_, hit, err := Get[int](ctx, svc, key)
			if hit {
				t.Fatal("corrupt entry served as a hit")
			}
			if !errors.Is(err, ErrStorage) || !errors.Is(err, ErrCorruptEntry) {
				t.Fatalf("Get() error = %v, want storage error wrapping ErrCorruptEntry", err)
			}

			var se *StorageError
			if !errors.As(err, &se) || se.Key != key || se.Op != "decode" {
				t.Errorf("unexpected StorageError %+v", se)
			}
		})
	}
}

func TestService_StorageFailureIsNotAMiss(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(Config{Backend: BackendMemory}, WithStore(failingStore{err: errDiskGone}))
	if err != nil {
		t.Fatal(err)
	}

	key, _ := svc.DeriveKey("pkg.fn", Positional(1), nil)

	_, hit, err := Get[int](ctx, svc, key)
	if hit || !errors.Is(err, ErrStorage) || !errors.Is(err, errDiskGone) {
		t.Errorf("Get() hit=%v err=%v, want storage failure", hit, err)
	}
	if errors.Is(err, ErrCorruptEntry) {
		t.Error("read failure must not look like corruption")
	}
	if err := Put(ctx, svc, key, 1); !errors.Is(err, ErrStorage) {
		t.Errorf("Put() error = %v, want storage failure", err)
	}
	if _, err := svc.Contains(ctx, key); !errors.Is(err, ErrStorage) {
		t.Errorf("Contains() error = %v, want storage failure", err)
	}
	if svc.Stats().StorageErrors != 3 {
		t.Errorf("StorageErrors = %d, want 3", svc.Stats().StorageErrors)
	}
}

func TestPut_UnencodableResult(t *testing.T) {
	ctx := context.Background()

	t.Run("interface result stores surrogate", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		key := Key("surrogate")

		var value any = nonSerializable{id: 1}
		if err := Put(ctx, svc, key, value); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, hit, err := Get[any](ctx, svc, key)
		if err != nil || !hit {
			t.Fatalf("Get() hit=%v err=%v", hit, err)
		}
		if got != "NonSerializable object" {
			t.Errorf("Get() = %#v, want surrogate text", got)
		}
		if svc.Stats().Degraded != 1 {
			t.Errorf("Degraded = %d, want 1", svc.Stats().Degraded)
		}
	})

	t.Run("concrete result skips write", func(t *testing.T) {
		svc, store := newMemoryService(t)
		key := Key("skipped")

		if err := Put(ctx, svc, key, nonSerializable{id: 1}); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if store.Len() != 0 {
			t.Errorf("expected no entry, store holds %d", store.Len())
		}
		if ok, _ := svc.Contains(ctx, key); ok {
			t.Error("Contains() = true for a skipped write")
		}
	})
}

func TestService_LoadRequiresPointer(t *testing.T) {
	svc, _ := newMemoryService(t)

	for _, dest := range []any{nil, 3} {
		if _, err := svc.Load(context.Background(), Key("k"), dest); !errors.Is(err, ErrInvalidResultType) {
			t.Errorf("Load(%v) error = %v, want ErrInvalidResultType", dest, err)
		}
	}
}

func TestService_UncacheableCounted(t *testing.T) {
	svc, _ := newMemoryService(t)

	if _, ok := svc.DeriveKey("pkg.getUser", Positional(123), []string{"user_id"}); ok {
		t.Fatal("expected not cacheable")
	}
	if svc.Stats().Uncacheable != 1 {
		t.Errorf("Uncacheable = %d, want 1", svc.Stats().Uncacheable)
	}
}

func TestService_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{BackendFile, BackendBolt, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Dir = testsupport.CacheDir(t)
			cfg.Backend = backend

			first, err := NewService(cfg)
			if err != nil {
				t.Fatalf("NewService() error = %v", err)
			}
			key, _ := first.DeriveKey("pkg.add", Positional(1, 2), nil)
			if err := Put(ctx, first, key, 3); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := first.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			second, err := NewService(cfg)
			if err != nil {
				t.Fatalf("NewService() error = %v", err)
			}
			defer second.Close()

			again, _ := second.DeriveKey("pkg.add", Positional(1, 2), nil)
			if again != key {
				t.Fatalf("key changed across instances: %s vs %s", again, key)
			}
			got, hit, err := Get[int](ctx, second, key)
			if err != nil || !hit || got != 3 {
				t.Errorf("Get() = %d hit=%v err=%v, want 3 from the first instance", got, hit, err)
			}
		})
	}
}

func TestService_CorruptFileOnDisk(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Dir = testsupport.CacheDir(t)

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	key, _ := svc.DeriveKey("pkg.fn", Positional("x"), nil)
	if err := Put(ctx, svc, key, "value"); err != nil {
		t.Fatal(err)
	}
	if n := testsupport.CorruptFiles(t, cfg.Dir); n != 1 {
		t.Fatalf("expected one entry file, found %d", n)
	}

	if _, _, err := Get[string](ctx, svc, key); !errors.Is(err, ErrCorruptEntry) {
		t.Errorf("Get() error = %v, want ErrCorruptEntry", err)
	}
}

func TestService_MemoryLayer(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Backend = BackendMemory
	cfg.Memory.Enabled = true

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	key, _ := svc.DeriveKey("pkg.fn", Positional(1), nil)
	if err := Put(ctx, svc, key, 10); err != nil {
		t.Fatal(err)
	}

	if got := svc.Stats().Mirrored; got != 1 {
		t.Errorf("Mirrored = %d, want 1", got)
	}
	if v, hit, err := Get[int](ctx, svc, key); err != nil || !hit || v != 10 {
		t.Errorf("Get() = %d hit=%v err=%v", v, hit, err)
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown backend", cfg: Config{Dir: "x", Backend: "redis"}},
		{name: "file without dir", cfg: Config{Backend: BackendFile}},
		{name: "unknown digest", cfg: Config{Backend: BackendMemory, Digest: "md5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestService_CloseIsIdempotent(t *testing.T) {
	svc, _ := newMemoryService(t)

	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
