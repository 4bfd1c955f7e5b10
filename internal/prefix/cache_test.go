package prefix

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/store"
)

// fakeStore is an in-memory Store. getHook, when set, runs inside
// GetTenantConfig before the map is read.
type fakeStore struct {
	mu      sync.Mutex
	rows    map[uint64]model.TenantConfig
	gets    atomic.Int32
	upserts atomic.Int32

	getErr    error
	upsertErr error
	getHook   func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uint64]model.TenantConfig)}
}

func (f *fakeStore) GetTenantConfig(_ context.Context, tenantID uint64) (*model.TenantConfig, error) {
	f.gets.Add(1)
	if f.getHook != nil {
		f.getHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.rows[tenantID]
	if !ok {
		return nil, fmt.Errorf("get: %w", store.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeStore) UpsertTenantConfig(_ context.Context, cfg *model.TenantConfig) error {
	f.upserts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cfg.UpdatedAt = time.Now()
	f.rows[cfg.TenantID] = *cfg
	return nil
}

func (f *fakeStore) stored(tenantID uint64) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[tenantID]
	return c.Prefix, ok
}

func TestGet_DefaultOnAbsence(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, Config{}, nil)

	p, src, err := c.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p != model.DefaultPrefix || src != SourceDefault {
		t.Fatalf("Get = %q/%v, want %q/default", p, src, model.DefaultPrefix)
	}
	if _, ok := c.lookup(1); ok {
		t.Fatal("absence must not be cached")
	}

	// Every lookup for an unset tenant goes back to the store.
	if _, _, err := c.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := fs.gets.Load(); got != 2 {
		t.Fatalf("store gets = %d, want 2", got)
	}
	if _, ok := fs.stored(1); ok {
		t.Fatal("Get must not create a row")
	}
}

func TestGet_ReadThroughThenHit(t *testing.T) {
	fs := newFakeStore()
	fs.rows[7] = model.TenantConfig{TenantID: 7, Prefix: "!"}
	c := New(fs, Config{}, nil)

	p, src, err := c.Get(context.Background(), 7)
	if err != nil || p != "!" || src != SourceStore {
		t.Fatalf("first Get = %q/%v/%v, want !/store/nil", p, src, err)
	}
	p, src, err = c.Get(context.Background(), 7)
	if err != nil || p != "!" || src != SourceCache {
		t.Fatalf("second Get = %q/%v/%v, want !/cache/nil", p, src, err)
	}
	if got := fs.gets.Load(); got != 1 {
		t.Fatalf("store gets = %d, want 1", got)
	}
}

func TestGet_StoreFailureIsNotMasked(t *testing.T) {
	fs := newFakeStore()
	fs.getErr = errors.New("connection refused")
	c := New(fs, Config{}, nil)

	p, _, err := c.Get(context.Background(), 1)
	if !errors.Is(err, model.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if p != "" {
		t.Fatalf("expected no prefix on failure, got %q", p)
	}
}

func TestGet_KeepsTransientClassification(t *testing.T) {
	fs := newFakeStore()
	fs.getErr = fmt.Errorf("get: %w", model.ErrLockUnavailable)
	c := New(fs, Config{}, nil)

	_, _, err := c.Get(context.Background(), 1)
	if !errors.Is(err, model.ErrLockUnavailable) {
		t.Fatalf("expected ErrLockUnavailable, got %v", err)
	}
	if errors.Is(err, model.ErrStore) {
		t.Fatalf("lock timeout must not be reclassified: %v", err)
	}
}

func TestSet_ReadAfterWrite(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, Config{}, nil)
	ctx := context.Background()

	if err := c.Set(ctx, 3, "Guild", "$"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	p, src, err := c.Get(ctx, 3)
	if err != nil || p != "$" || src != SourceCache {
		t.Fatalf("Get after Set = %q/%v/%v", p, src, err)
	}
	if got, _ := fs.stored(3); got != "$" {
		t.Fatalf("stored = %q, want $", got)
	}
	if fs.gets.Load() != 0 {
		t.Fatal("Get after Set must be served from the cache")
	}
}

func TestSet_StoreFailureLeavesCacheUnchanged(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, Config{}, nil)
	ctx := context.Background()

	if err := c.Set(ctx, 3, "", "!"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	fs.upsertErr = errors.New("disk full")

	err := c.Set(ctx, 3, "", "?")
	if !model.IsTransient(err) {
		t.Fatalf("expected transient store error, got %v", err)
	}
	if p, _ := c.lookup(3); p != "!" {
		t.Fatalf("cache = %q, want previous value !", p)
	}
}

func TestSet_FailureOnUncachedTenantCachesNothing(t *testing.T) {
	fs := newFakeStore()
	fs.upsertErr = errors.New("disk full")
	c := New(fs, Config{}, nil)

	if err := c.Set(context.Background(), 9, "", "?"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.lookup(9); ok {
		t.Fatal("failed Set must not populate the cache")
	}
}

func TestSet_InvalidPrefix(t *testing.T) {
	for _, p := range []string{"", "a b", "\t", "0123456789012345678901234567890123"} {
		t.Run(fmt.Sprintf("%q", p), func(t *testing.T) {
			fs := newFakeStore()
			c := New(fs, Config{}, nil)
			err := c.Set(context.Background(), 1, "", p)
			if !errors.Is(err, model.ErrInvalidPrefix) {
				t.Fatalf("expected ErrInvalidPrefix, got %v", err)
			}
			if fs.upserts.Load() != 0 {
				t.Fatal("invalid prefix must not reach the store")
			}
		})
	}
}

func TestGetOrSet(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, Config{Default: "!!"}, nil)
	ctx := context.Background()

	got, err := c.GetOrSet(ctx, 1, "", nil)
	if err != nil || got != "!!" {
		t.Fatalf("GetOrSet(nil) = %q/%v, want configured default", got, err)
	}

	np := ">"
	got, err = c.GetOrSet(ctx, 1, "Guild", &np)
	if err != nil || got != ">" {
		t.Fatalf("GetOrSet(>) = %q/%v", got, err)
	}
	got, err = c.GetOrSet(ctx, 1, "", nil)
	if err != nil || got != ">" {
		t.Fatalf("GetOrSet(nil) after set = %q/%v", got, err)
	}
}

func TestLockTimeout(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, Config{LockTimeout: 20 * time.Millisecond}, nil)

	unlock, err := c.locks.lock(context.Background(), 5)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	if _, _, err := c.Get(context.Background(), 5); !errors.Is(err, model.ErrLockUnavailable) {
		t.Fatalf("Get: expected ErrLockUnavailable, got %v", err)
	}
	if err := c.Set(context.Background(), 5, "", "!"); !errors.Is(err, model.ErrLockUnavailable) {
		t.Fatalf("Set: expected ErrLockUnavailable, got %v", err)
	}

	// Other tenants are unaffected.
	if _, _, err := c.Get(context.Background(), 6); err != nil {
		t.Fatalf("Get other tenant: %v", err)
	}
}

func TestConcurrentSetsAgree(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, Config{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Set(ctx, 1, "", fmt.Sprintf("p%d", i)); err != nil {
				t.Errorf("Set: %v", err)
			}
		}(i)
	}
	wg.Wait()

	cached, _ := c.lookup(1)
	stored, _ := fs.stored(1)
	if cached != stored {
		t.Fatalf("cache %q and store %q disagree", cached, stored)
	}
	if n := c.locks.size(); n != 0 {
		t.Fatalf("%d lock entries leaked", n)
	}
}

// A read-through that started before a Set must not overwrite the value
// the Set committed.
func TestSlowReadThroughDoesNotClobberSet(t *testing.T) {
	fs := newFakeStore()
	fs.rows[1] = model.TenantConfig{TenantID: 1, Prefix: "old"}

	inGet := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fs.getHook = func() {
		once.Do(func() {
			close(inGet)
			<-release
		})
	}
	c := New(fs, Config{}, nil)
	ctx := context.Background()

	getDone := make(chan struct{})
	go func() {
		defer close(getDone)
		if _, _, err := c.Get(ctx, 1); err != nil {
			t.Errorf("Get: %v", err)
		}
	}()
	<-inGet

	setDone := make(chan error, 1)
	go func() { setDone <- c.Set(ctx, 1, "", "new") }()

	select {
	case <-setDone:
		t.Fatal("Set completed while a read-through held the tenant lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-getDone
	if err := <-setDone; err != nil {
		t.Fatalf("Set: %v", err)
	}

	p, src, err := c.Get(ctx, 1)
	if err != nil || p != "new" || src != SourceCache {
		t.Fatalf("Get = %q/%v/%v, want new/cache", p, src, err)
	}
}

func TestDifferentTenantsDoNotBlock(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, Config{}, nil)

	unlock, err := c.locks.lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Set(ctx, 2, "", "!"); err != nil {
		t.Fatalf("Set on tenant 2 blocked by tenant 1: %v", err)
	}
}

func TestSourceString(t *testing.T) {
	for src, want := range map[Source]string{
		SourceCache:   "cache",
		SourceStore:   "store",
		SourceDefault: "default",
		Source(42):    "unknown",
	} {
		if got := src.String(); got != want {
			t.Errorf("Source(%d).String() = %q, want %q", int(src), got, want)
		}
	}
}
