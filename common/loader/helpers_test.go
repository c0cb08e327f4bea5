package loader

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ordview/ordview/common/cache"
	"github.com/ordview/ordview/common/clients"
	"github.com/ordview/ordview/common/content"
	"github.com/ordview/ordview/common/failures"
	"github.com/ordview/ordview/common/logger"
)

const testID = "6fb976ab49dcec017f1e201e84395983204ae1a7c2abf7ced0a85d692e442799i0"

// fakeNetwork serves canned responses and counts calls
type fakeNetwork struct {
	mu      sync.Mutex
	calls   atomic.Int64
	status  int
	data    []byte
	ctype   string
	gate    chan struct{} // when set, Fetch blocks until it is closed
	entered chan struct{} // receives once per call, if set
}

func (n *fakeNetwork) respond(status int, data []byte, contentType string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status, n.data, n.ctype = status, data, contentType
}

func (n *fakeNetwork) Fetch(ctx context.Context, contentID string) (*clients.Content, error) {
	n.calls.Add(1)
	if n.entered != nil {
		n.entered <- struct{}{}
	}
	if n.gate != nil {
		<-n.gate
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status != http.StatusOK {
		return nil, &clients.NetworkError{URL: n.ContentURL(contentID), StatusCode: n.status, Err: errors.New(http.StatusText(n.status))}
	}
	return &clients.Content{Data: n.data, ContentType: n.ctype}, nil
}

func (n *fakeNetwork) ContentURL(contentID string) string {
	return "https://ordinals.test/content/" + contentID
}

// fakeWallet records calls
type fakeWallet struct {
	available bool
	payload   Payload
	err       error
	checks    atomic.Int64
	gets      atomic.Int64
}

func (w *fakeWallet) IsAvailable(ctx context.Context) bool {
	w.checks.Add(1)
	return w.available
}

func (w *fakeWallet) GetContent(ctx context.Context, contentID string) (Payload, error) {
	w.gets.Add(1)
	return w.payload, w.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	orch    *Orchestrator
	network *fakeNetwork
	cache   *cache.ContentCache
	store   *cache.MemoryStore
	memo    *failures.MemoryMemo
	handles *HandleStore
	clock   *fakeClock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil, opts...)
}

// newTestEnvWithStore builds an env whose content cache writes through wrap,
// when given, instead of straight into the memory store
func newTestEnvWithStore(t *testing.T, wrap func(*cache.MemoryStore) cache.Store, opts ...Option) *testEnv {
	t.Helper()
	log := logger.Discard()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryStore(100, 1<<20)
	var backend cache.Store = store
	if wrap != nil {
		backend = wrap(store)
	}
	contentCache := cache.NewContentCache(backend, log)
	memo := failures.NewMemoryMemo(failures.DefaultWindows(), 100, failures.WithClock(clock.Now))
	network := &fakeNetwork{status: http.StatusOK, data: []byte("hello"), ctype: "text/plain"}
	handles := NewHandleStore()
	analyzer := content.NewAnalyzer(nil, log)

	return &testEnv{
		orch:    NewOrchestrator(contentCache, memo, network, analyzer, handles, log, opts...),
		network: network,
		cache:   contentCache,
		store:   store,
		memo:    memo,
		handles: handles,
		clock:   clock,
	}
}

// gatedStore counts writes and can hold the first one until gate is closed
type gatedStore struct {
	*cache.MemoryStore
	sets    atomic.Int64
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *gatedStore) Set(ctx context.Context, key string, entry cache.Entry) error {
	s.sets.Add(1)
	s.once.Do(func() {
		if s.entered != nil {
			close(s.entered)
		}
		if s.gate != nil {
			<-s.gate
		}
	})
	return s.MemoryStore.Set(ctx, key, entry)
}
