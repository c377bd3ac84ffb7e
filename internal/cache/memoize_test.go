package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/storage"
	"github.com/eugener/ghdash/internal/testutil"
)

func TestMemoize_MissThenHit(t *testing.T) {
	t.Parallel()
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	produce := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a", "b"}, nil
	}

	got, hit, err := Memoize(ctx, c, "k", 0, produce)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first call should miss")
	}
	if len(got) != 2 {
		t.Errorf("got %v", got)
	}

	got, hit, err = Memoize(ctx, c, "k", 0, produce)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("second call should hit")
	}
	if len(got) != 2 || got[1] != "b" {
		t.Errorf("got %v", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("produce called %d times, want 1", n)
	}
}

func TestMemoize_ErrorCachesNothing(t *testing.T) {
	t.Parallel()
	c, kv, _ := newTestCache(t)
	boom := errors.New("upstream down")

	_, _, err := Memoize(context.Background(), c, "k", 0, func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok := kv.Raw("k"); ok {
		t.Error("failed produce must not write to the cache")
	}
	if kv.Sets() != 0 {
		t.Errorf("sets = %d, want 0", kv.Sets())
	}
}

func TestMemoize_RefetchesAfterExpiry(t *testing.T) {
	t.Parallel()
	c, _, clk := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	produce := func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}

	v, _, _ := Memoize(ctx, c, "k", time.Minute, produce)
	if v != 1 {
		t.Fatalf("v = %d, want 1", v)
	}
	clk.Advance(time.Minute + time.Millisecond)
	v, hit, _ := Memoize(ctx, c, "k", time.Minute, produce)
	if hit || v != 2 {
		t.Errorf("after expiry = (%d, hit=%v), want (2, false)", v, hit)
	}
}

func TestMemoize_CorruptEntryIsReplaced(t *testing.T) {
	t.Parallel()
	c, kv, _ := newTestCache(t)
	kv.PutRaw("k", "not json")

	v, hit, err := Memoize(context.Background(), c, "k", 0, func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if hit || v != "fresh" {
		t.Errorf("got (%q, %v), want (fresh, false)", v, hit)
	}
	var again string
	if ok, err := c.Get(context.Background(), "k", &again); err != nil || !ok || again != "fresh" {
		t.Errorf("entry after repair = (%q, %v, %v)", again, ok, err)
	}
}

func TestMemoize_PutFailureStillReturnsValue(t *testing.T) {
	t.Parallel()
	c, kv, _ := newTestCache(t)
	kv.SetErr = dashboard.ErrQuotaExceeded

	v, _, err := Memoize(context.Background(), c, "k", 0, func(context.Context) (string, error) {
		return "payload", nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if v != "payload" {
		t.Errorf("v = %q", v)
	}
}

func TestMemoize_StoreReadErrorPropagates(t *testing.T) {
	t.Parallel()
	c, kv, _ := newTestCache(t)
	kv.GetErr = errors.New("io error")

	called := false
	_, _, err := Memoize(context.Background(), c, "k", 0, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("produce should not run when the store cannot be read")
	}
}

func TestMemoize_ConcurrentMissesShareProducer(t *testing.T) {
	t.Parallel()
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	release := make(chan struct{})
	var calls atomic.Int32
	produce := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Go(func() {
			v, _, err := Memoize(ctx, c, "k", 0, produce)
			if err != nil {
				t.Errorf("Memoize: %v", err)
			}
			results[i] = v
		})
	}

	// Let every goroutine reach the singleflight group before releasing.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("produce called %d times, want 1", got)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("results[%d] = %q", i, r)
		}
	}
}

// lateKV hides every entry from the first read, as if another caller stored
// it right after that read.
type lateKV struct {
	storage.KV
	reads atomic.Int32
}

func (l *lateKV) Get(ctx context.Context, key string) (string, bool, error) {
	if l.reads.Add(1) == 1 {
		return "", false, nil
	}
	return l.KV.Get(ctx, key)
}

func TestMemoize_EntryStoredAfterMissIsReused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := testutil.NewFakeKV()
	if err := New(kv).Put(ctx, "k", "stored", 0); err != nil {
		t.Fatal(err)
	}
	c := New(&lateKV{KV: kv})

	var calls atomic.Int32
	v, hit, err := Memoize(ctx, c, "k", 0, func(context.Context) (string, error) {
		calls.Add(1)
		return "fresh", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != "stored" || !hit {
		t.Errorf("got (%q, hit=%v), want (stored, true)", v, hit)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("produce called %d times, want 0", n)
	}
	if kv.Sets() != 1 {
		t.Errorf("sets = %d, want 1", kv.Sets())
	}
}
