// Package loader resolves content identifiers to bytes through a prioritized
// chain of sources: the failure memo, the content cache, an optional custom
// fetcher, an optional wallet, and finally the network. Results are classified,
// cached, and handed out as releasable handles.
package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ordview/ordview/common/cache"
	"github.com/ordview/ordview/common/clients"
	"github.com/ordview/ordview/common/content"
	"github.com/ordview/ordview/common/failures"
	"github.com/ordview/ordview/common/metrics"
)

// Logger interface for loader logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Recorder receives load timings and events
type Recorder interface {
	RecordDuration(operation string, start time.Time, attrs ...any)
	RecordEvent(event string, attrs map[string]any)
}

type nopRecorder struct{}

func (nopRecorder) RecordDuration(string, time.Time, ...any) {}
func (nopRecorder) RecordEvent(string, map[string]any)      {}

// LoadedContent is the result of a load. Handle is owned by the caller, who
// must release it (directly or through a Guard). Data is shared and must not
// be modified.
type LoadedContent struct {
	ContentID   string           `json:"content_id"`
	Handle      *Handle          `json:"-"`
	Data        []byte           `json:"-"`
	Text        string           `json:"-"`
	ContentType string           `json:"content_type"`
	Analysis    content.Analysis `json:"analysis"`
	Source      Source           `json:"source"`
}

// IsText reports whether the content was decoded as text
func (l *LoadedContent) IsText() bool {
	return cache.IsTextLike(l.ContentType)
}

// resolution is the outcome of one pass through the source chain,
// shared by every caller that joined it
type resolution struct {
	data        []byte
	contentType string
	source      Source
	analysis    content.Analysis
}

// Orchestrator loads content through the source chain
type Orchestrator struct {
	cache    *cache.ContentCache
	failures failures.Memo
	network  NetworkFetcher
	analyzer *content.Analyzer
	handles  *HandleStore
	fetcher  Fetcher
	wallet   WalletSource
	observer Observer
	recorder Recorder
	metrics  *metrics.LoadMetrics
	logger   Logger
	group    singleflight.Group

	liveMu sync.Mutex
	live   map[string]int // callers waiting on each in-flight identifier
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithFetcher installs a custom fetcher, tried after the cache
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
	}
}

// WithWallet installs a wallet source, tried after the custom fetcher
func WithWallet(w WalletSource) Option {
	return func(o *Orchestrator) {
		o.wallet = w
	}
}

// WithObserver installs an analysis observer
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithRecorder sends load timings to r
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithMetrics counts outcomes into m
func WithMetrics(m *metrics.LoadMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator wires the source chain
func NewOrchestrator(
	contentCache *cache.ContentCache,
	memo failures.Memo,
	network NetworkFetcher,
	analyzer *content.Analyzer,
	handles *HandleStore,
	logger Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		cache:    contentCache,
		failures: memo,
		network:  network,
		analyzer: analyzer,
		handles:  handles,
		recorder: nopRecorder{},
		metrics:  metrics.NewLoadMetrics(nil),
		logger:   logger,
		live:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Metrics returns the outcome counters
func (o *Orchestrator) Metrics() *metrics.LoadMetrics {
	return o.metrics
}

// Handles returns the handle registry
func (o *Orchestrator) Handles() *HandleStore {
	return o.handles
}

// Load resolves contentID. Concurrent loads of the same identifier share one
// pass through the source chain; each caller gets its own handle. If ctx is
// done by the time the result is ready nothing is delivered and no handle leaks.
func (o *Orchestrator) Load(ctx context.Context, contentID string) (*LoadedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	o.metrics.Inc(metrics.OutcomeLoad)

	result, err := o.await(ctx, contentID)
	if err != nil {
		o.metrics.Inc(metrics.OutcomeCancelled)
		return nil, err
	}

	if result.Shared {
		o.metrics.Inc(metrics.OutcomeShared)
	}
	if result.Err != nil {
		o.metrics.ObserveLoad("error", start)
		o.recorder.RecordDuration("content.load", start, "content_id", contentID, "error", result.Err.Error())
		return nil, result.Err
	}
	res := result.Val.(*resolution)

	if err := ctx.Err(); err != nil {
		o.metrics.Inc(metrics.OutcomeCancelled)
		return nil, err
	}

	handle := o.handles.Create(res.data, res.contentType)
	if err := ctx.Err(); err != nil {
		handle.Release()
		o.metrics.Inc(metrics.OutcomeCancelled)
		return nil, err
	}

	loaded := &LoadedContent{
		ContentID:   contentID,
		Handle:      handle,
		Data:        res.data,
		ContentType: res.contentType,
		Analysis:    res.analysis,
		Source:      res.source,
	}
	if loaded.IsText() {
		loaded.Text = string(res.data)
	}

	o.metrics.ObserveLoad(string(res.source), start)
	o.recorder.RecordDuration("content.load", start, "content_id", contentID, "source", string(res.source), "shared", result.Shared)
	return loaded, nil
}

// Retry clears a remembered temporary failure and loads again.
// A live permanent failure is returned unchanged.
func (o *Orchestrator) Retry(ctx context.Context, contentID string) (*LoadedContent, error) {
	if entry, ok := o.failures.Get(ctx, contentID); ok && entry.Permanent {
		o.metrics.Inc(metrics.OutcomeMemoHit)
		return nil, memoError(contentID, entry)
	}

	o.failures.Clear(ctx, contentID)
	return o.Load(ctx, contentID)
}

// Invalidate drops the cached content and any remembered failure for contentID
func (o *Orchestrator) Invalidate(ctx context.Context, contentID string) {
	o.group.Forget(contentID)
	o.cache.Delete(ctx, contentID)
	o.failures.Clear(ctx, contentID)
	o.recorder.RecordEvent("content_invalidated", map[string]any{"content_id": contentID})
}

// Analyze classifies content without creating a handle
func (o *Orchestrator) Analyze(ctx context.Context, contentID string) (content.Analysis, Source, error) {
	result, err := o.await(ctx, contentID)
	if err != nil {
		o.metrics.Inc(metrics.OutcomeCancelled)
		return content.Analysis{}, "", err
	}
	if result.Err != nil {
		return content.Analysis{}, "", result.Err
	}

	res := result.Val.(*resolution)
	return res.analysis, res.source, nil
}

// await joins the shared resolution of contentID and waits for it or for ctx.
// The caller counts as live until await returns.
func (o *Orchestrator) await(ctx context.Context, contentID string) (singleflight.Result, error) {
	o.join(contentID)
	defer o.leave(contentID)

	// the shared pass must not die with whichever caller started it
	ch := o.group.DoChan(contentID, func() (interface{}, error) {
		return o.resolveAndStore(context.WithoutCancel(ctx), contentID)
	})

	select {
	case <-ctx.Done():
		return singleflight.Result{}, ctx.Err()
	case result := <-ch:
		return result, nil
	}
}

// resolveAndStore runs the source chain and writes fresh content to the cache
// before the identifier leaves the group, so a load arriving during the write
// joins this pass instead of fetching again. The write is skipped when every
// caller has gone away.
func (o *Orchestrator) resolveAndStore(ctx context.Context, contentID string) (*resolution, error) {
	res, err := o.resolve(ctx, contentID)
	if err != nil || res.source == SourceCache {
		return res, err
	}

	if o.liveCallers(contentID) == 0 {
		o.metrics.Inc(metrics.OutcomeCacheSkipped)
		o.logger.Debug("no callers left, skipping cache write", "content_id", contentID, "source", string(res.source))
		return res, nil
	}

	o.cache.Put(ctx, contentID, res.data, res.contentType)
	return res, nil
}

func (o *Orchestrator) join(contentID string) {
	o.liveMu.Lock()
	o.live[contentID]++
	o.liveMu.Unlock()
}

func (o *Orchestrator) leave(contentID string) {
	o.liveMu.Lock()
	defer o.liveMu.Unlock()

	o.live[contentID]--
	if o.live[contentID] <= 0 {
		delete(o.live, contentID)
	}
}

func (o *Orchestrator) liveCallers(contentID string) int {
	o.liveMu.Lock()
	defer o.liveMu.Unlock()
	return o.live[contentID]
}

// resolve runs the source chain once. The first source that yields content wins.
func (o *Orchestrator) resolve(ctx context.Context, contentID string) (*resolution, error) {
	if entry, ok := o.failures.Get(ctx, contentID); ok {
		o.metrics.Inc(metrics.OutcomeMemoHit)
		o.logger.Debug("failure memo hit", "content_id", contentID, "permanent", entry.Permanent)
		return nil, memoError(contentID, entry)
	}

	if data, contentType, ok := o.cache.Load(ctx, contentID); ok {
		o.metrics.Inc(metrics.OutcomeCacheHit)
		return o.classify(contentID, data, contentType, SourceCache), nil
	}

	if res, ok := o.tryFetcher(ctx, contentID); ok {
		return res, nil
	}

	if res, ok := o.tryWallet(ctx, contentID); ok {
		return res, nil
	}

	fetched, err := o.network.Fetch(ctx, contentID)
	if err != nil {
		return nil, o.recordFailure(ctx, contentID, err)
	}
	o.metrics.Inc(metrics.OutcomeNetworkFetch)

	return o.classify(contentID, fetched.Data, fetched.ContentType, SourceNetwork), nil
}

func (o *Orchestrator) tryFetcher(ctx context.Context, contentID string) (*resolution, bool) {
	if o.fetcher == nil {
		return nil, false
	}

	payload, err := o.fetcher.Fetch(ctx, contentID)
	if err != nil {
		o.metrics.Inc(metrics.OutcomeSourceError)
		o.logger.Warn("custom fetcher failed, falling through", "content_id", contentID, "error", err)
		return nil, false
	}
	if payload == nil {
		return nil, false
	}

	data, contentType, err := Normalize(payload)
	if err != nil {
		o.metrics.Inc(metrics.OutcomeSourceError)
		o.logger.Warn("custom fetcher returned unusable payload", "content_id", contentID, "error", err)
		return nil, false
	}

	o.metrics.Inc(metrics.OutcomeFetcherHit)
	return o.classify(contentID, data, contentType, SourceFetcher), true
}

func (o *Orchestrator) tryWallet(ctx context.Context, contentID string) (*resolution, bool) {
	if o.wallet == nil || !o.wallet.IsAvailable(ctx) {
		return nil, false
	}

	payload, err := o.wallet.GetContent(ctx, contentID)
	if err != nil {
		o.metrics.Inc(metrics.OutcomeSourceError)
		o.logger.Warn("wallet content failed, falling through", "content_id", contentID, "error", err)
		return nil, false
	}
	if payload == nil {
		return nil, false
	}

	data, contentType, err := Normalize(payload)
	if err != nil {
		o.metrics.Inc(metrics.OutcomeSourceError)
		o.logger.Warn("wallet returned unusable payload", "content_id", contentID, "error", err)
		return nil, false
	}

	o.metrics.Inc(metrics.OutcomeWalletHit)
	return o.classify(contentID, data, contentType, SourceWallet), true
}

func (o *Orchestrator) classify(contentID string, data []byte, contentType string, source Source) *resolution {
	analysis := o.analyzer.AnalyzeBytes(data, contentType, o.network.ContentURL(contentID))
	if analysis.OK() && o.observer != nil {
		o.observer.OnAnalysis(contentID, analysis)
	}

	return &resolution{
		data:        data,
		contentType: contentType,
		source:      source,
		analysis:    analysis,
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, contentID string, err error) error {
	permanent := clients.IsPermanent(err)
	message := err.Error()

	o.failures.RecordFailure(ctx, contentID, message, permanent)
	o.metrics.Inc(metrics.OutcomeFailure)
	o.recorder.RecordEvent("content_failure", map[string]any{
		"content_id": contentID,
		"permanent":  permanent,
		"error":      message,
	})

	if permanent {
		o.logger.Info("content permanently unavailable", "content_id", contentID, "error", message)
	} else {
		o.logger.Warn("content fetch failed", "content_id", contentID, "error", message)
	}

	return &LoadError{
		ContentID: contentID,
		Message:   message,
		Permanent: permanent,
		Err:       err,
	}
}

func memoError(contentID string, entry failures.Entry) *LoadError {
	return &LoadError{
		ContentID: contentID,
		Message:   entry.Error,
		Permanent: entry.Permanent,
		Memoized:  true,
	}
}

// IsPermanent reports whether err is a permanent load failure
func IsPermanent(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr) && loadErr.Permanent
}
