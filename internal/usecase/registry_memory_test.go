package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadimbarashkov/url-registry/internal/adapter/store/memory"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

// allowVerifier treats every listed identity as proven.
type allowVerifier map[string]bool

func (v allowVerifier) RequireAuth(_ context.Context, identity string) error {
	if !v[identity] {
		return fmt.Errorf("identity %q: %w", identity, entity.ErrUnauthorized)
	}
	return nil
}

type stepClock struct {
	mu  sync.Mutex
	now uint64
}

func (c *stepClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now++
	return c.now
}

func setupRegistry(t testing.TB) (*Registry, *memory.Store) {
	t.Helper()

	store := memory.New(time.Hour)
	verifier := allowVerifier{"alice": true, "bob": true}
	clk := &stepClock{now: 1700000000}

	return New(store, verifier, clk, WithLifetime(Lifetime{Threshold: time.Hour, ExtendTo: 2 * time.Hour})), store
}

func TestRegistry_Scenario(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRegistry(t)

	code, err := r.CreateMapping(ctx, "go2x", "https://example.com", "alice")
	require.NoError(t, err)
	assert.Equal(t, "go2x", code)

	total, err := r.GetTotalMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	url, err := r.Resolve(ctx, "go2x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", url)

	m, err := r.GetMapping(ctx, "go2x")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.ClickCount)
	assert.Equal(t, "alice", m.Creator)
	assert.Equal(t, uint64(1700000001), m.CreatedAt)

	_, err = r.CreateMapping(ctx, "go2x", "https://other.com", "bob")
	assert.ErrorIs(t, err, entity.ErrShortCodeExists)

	url, err = r.ResolveOrSentinel(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, entity.NotFoundURL, url)
}

func TestRegistry_CreationUniqueness(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRegistry(t)

	_, err := r.CreateMapping(ctx, "go2x", "https://example.com", "alice")
	require.NoError(t, err)

	before, err := r.GetMapping(ctx, "go2x")
	require.NoError(t, err)

	_, err = r.CreateMapping(ctx, "go2x", "https://other.com", "bob")
	assert.ErrorIs(t, err, entity.ErrShortCodeExists)

	after, err := r.GetMapping(ctx, "go2x")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	total, err := r.GetTotalMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestRegistry_ResolveIncrementsOnce(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRegistry(t)

	_, err := r.CreateMapping(ctx, "go2x", "https://example.com", "alice")
	require.NoError(t, err)

	const n = 25
	for i := 0; i < n; i++ {
		url, err := r.Resolve(ctx, "go2x")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", url)
	}

	m, err := r.GetMapping(ctx, "go2x")
	require.NoError(t, err)
	assert.Equal(t, uint64(n), m.ClickCount)
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRegistry(t)

	_, err := r.CreateMapping(ctx, "go2x", "https://example.com", "alice")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Resolve(ctx, "go2x")
		}()
	}
	wg.Wait()

	m, err := r.GetMapping(ctx, "go2x")
	require.NoError(t, err)
	assert.Equal(t, uint64(n), m.ClickCount)
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRegistry(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.CreateMapping(ctx, "go2x", fmt.Sprintf("https://example.com/%d", i), "alice")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, entity.ErrShortCodeExists)
	}
	assert.Equal(t, 1, succeeded)

	total, err := r.GetTotalMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestRegistry_AbsenceSentinel(t *testing.T) {
	ctx := context.Background()
	r, store := setupRegistry(t)

	url, err := r.Resolve(ctx, "never-created")
	assert.ErrorIs(t, err, entity.ErrMappingNotFound)
	assert.Empty(t, url)

	m, err := r.LookupMapping(ctx, "never-created")
	require.NoError(t, err)
	assert.Zero(t, m.CreatedAt)
	assert.Zero(t, m.ClickCount)
	assert.Equal(t, entity.AbsentMapping(), m)

	_, err = store.Get(ctx, "mapping:never-created")
	assert.ErrorIs(t, err, entity.ErrEntryNotFound)

	total, err := r.GetTotalMappings(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRegistry_CounterMonotonicity(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRegistry(t)

	ops := []struct {
		code    string
		creator string
		ok      bool
	}{
		{"a", "alice", true},
		{"b", "bob", true},
		{"a", "bob", false},
		{"c", "mallory", false},
		{"", "alice", false},
		{"c", "alice", true},
	}

	var want, last uint64
	for _, op := range ops {
		_, err := r.CreateMapping(ctx, op.code, "https://example.com", op.creator)
		if op.ok {
			require.NoError(t, err)
			want++
		} else {
			require.Error(t, err)
		}

		_, _ = r.Resolve(ctx, "a")

		total, err := r.GetTotalMappings(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, total)
		assert.GreaterOrEqual(t, total, last)
		last = total
	}
}

func TestRegistry_AuthorizationGate(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRegistry(t)

	_, err := r.CreateMapping(ctx, "go2x", "https://example.com", "mallory")
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = r.CreateMapping(ctx, "go2x", "https://example.com", "alice")
	require.NoError(t, err)

	_, err = r.CreateMapping(ctx, "go2x", "https://example.com", "mallory")
	assert.ErrorIs(t, err, entity.ErrUnauthorized)
	assert.NotErrorIs(t, err, entity.ErrShortCodeExists)
}

func TestRegistry_LifetimeRenewal(t *testing.T) {
	ctx := context.Background()

	store := memory.New(time.Hour)
	r := New(store, allowVerifier{"alice": true}, &stepClock{now: 1700000000},
		WithLifetime(Lifetime{Threshold: 3 * time.Hour, ExtendTo: 5 * time.Hour}),
	)

	_, err := r.CreateMapping(ctx, "go2x", "https://example.com", "alice")
	require.NoError(t, err)

	for _, key := range []string{"mapping:go2x", "registry:total"} {
		ttl, err := store.TTL(ctx, key)
		require.NoError(t, err)
		assert.Greater(t, ttl, 4*time.Hour, key)
	}

	before, err := store.TTL(ctx, "mapping:go2x")
	require.NoError(t, err)

	_, err = r.GetMapping(ctx, "go2x")
	require.NoError(t, err)
	_, err = r.GetTotalMappings(ctx)
	require.NoError(t, err)

	after, err := store.TTL(ctx, "mapping:go2x")
	require.NoError(t, err)
	assert.LessOrEqual(t, after, before)
}
