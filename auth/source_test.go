package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// =============================================================================
// STATIC SOURCE
// =============================================================================

func TestStatic(t *testing.T) {
	source := Static("tok-123")

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

// =============================================================================
// CACHED SOURCE - TTL
// =============================================================================

func TestCachedSource_ServesFromCacheWithinWindow(t *testing.T) {
	// GIVEN: A source whose first fetch succeeded
	// WHEN: Asking again before the window expires
	// THEN: No second fetch happens

	var fetches int32
	source := NewCachedSource(func(ctx context.Context) (*oauth2.Token, error) {
		n := atomic.AddInt32(&fetches, 1)
		return &oauth2.Token{AccessToken: fmt.Sprintf("tok-%d", n)}, nil
	})

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	source.nowFn = func() time.Time { return now }

	first, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first)

	now = now.Add(TokenCacheDuration - time.Second)
	second, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestCachedSource_RefetchesAfterExpiry(t *testing.T) {
	var fetches int32
	source := NewCachedSource(func(ctx context.Context) (*oauth2.Token, error) {
		n := atomic.AddInt32(&fetches, 1)
		return &oauth2.Token{AccessToken: fmt.Sprintf("tok-%d", n)}, nil
	})

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	source.nowFn = func() time.Time { return now }

	_, err := source.Token(context.Background())
	require.NoError(t, err)

	now = now.Add(TokenCacheDuration)
	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestCachedSource_Invalidate(t *testing.T) {
	var fetches int32
	source := NewCachedSource(func(ctx context.Context) (*oauth2.Token, error) {
		atomic.AddInt32(&fetches, 1)
		return &oauth2.Token{AccessToken: "tok"}, nil
	})

	_, err := source.Token(context.Background())
	require.NoError(t, err)

	source.Invalidate()

	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

// =============================================================================
// CACHED SOURCE - FAILURE AND DEDUP
// =============================================================================

func TestCachedSource_ErrorIsNotCached(t *testing.T) {
	// GIVEN: A provider that fails once, then recovers
	// WHEN: Asking twice
	// THEN: The first error surfaces, the second call retries and wins

	var fetches int32
	source := NewCachedSource(func(ctx context.Context) (*oauth2.Token, error) {
		if atomic.AddInt32(&fetches, 1) == 1 {
			return nil, errors.New("provider unavailable")
		}
		return &oauth2.Token{AccessToken: "tok"}, nil
	})

	_, err := source.Token(context.Background())
	require.Error(t, err)

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestCachedSource_ConcurrentCallersShareOneFetch(t *testing.T) {
	// GIVEN: A slow provider and many concurrent callers
	// WHEN: All ask while the first fetch is outstanding
	// THEN: Exactly one fetch happens; everyone gets its token

	var fetches int32
	started := make(chan struct{})
	release := make(chan struct{})

	source := NewCachedSource(func(ctx context.Context) (*oauth2.Token, error) {
		atomic.AddInt32(&fetches, 1)
		close(started)
		<-release
		return &oauth2.Token{AccessToken: "tok-shared"}, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 10)
	errs := make([]error, 10)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = source.Token(context.Background())
	}()
	<-started

	for i := 1; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = source.Token(context.Background())
		}(i)
	}

	// Give the late callers time to park on the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-shared", results[i])
	}
}

func TestCachedSource_WaiterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	source := NewCachedSource(func(ctx context.Context) (*oauth2.Token, error) {
		close(started)
		<-release
		return &oauth2.Token{AccessToken: "tok"}, nil
	})
	defer close(release)

	go func() { _, _ = source.Token(context.Background()) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := source.Token(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
