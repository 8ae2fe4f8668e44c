package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"persona_studio/logger"
)

// Orchestrator 负责一次批量生成：为每个选中的分身并发发起一次调用，
// 各自独立地把结果合并回当前展示的结果集。
type Orchestrator struct {
	gen      Generator
	personas PersonaLookup
	log      *logger.Logger
	clock    func() time.Time
	metrics  *Metrics

	mu         sync.Mutex
	current    int64
	lastStamp  int64
	generating bool
	order      []string
	results    map[string]*GeneratedContent
	subs       map[int]chan Snapshot
	nextSub    int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock lets tests control batch timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(gen Generator, personas PersonaLookup, opts ...Option) (*Orchestrator, error) {
	if gen == nil {
		return nil, errors.New("orchestrator: generator is required")
	}
	if personas == nil {
		return nil, errors.New("orchestrator: persona lookup is required")
	}
	o := &Orchestrator{
		gen:      gen,
		personas: personas,
		log:      logger.Nop(),
		clock:    time.Now,
		results:  make(map[string]*GeneratedContent),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.log = o.log.With("component", "orchestrator")
	return o, nil
}

// Batch is a handle on one dispatched generation batch.
type Batch struct {
	Timestamp int64
	Initial   Snapshot
	done      chan struct{}
}

// Done is closed once every request of the batch has settled.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch settles or ctx ends.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunBatch replaces the displayed result set with one loading record per
// persona and dispatches all generations concurrently. It returns as soon as
// the loading records exist. Blank drafts and empty selections are rejected
// without touching the current results.
//
// In-flight requests are detached from ctx's cancellation: a caller going
// away does not abort them, and there is no deadline.
func (o *Orchestrator) RunBatch(ctx context.Context, draft string, personaIDs []string) (*Batch, error) {
	if strings.TrimSpace(draft) == "" {
		return nil, ErrEmptyDraft
	}
	ids := dedupe(personaIDs)
	if len(ids) == 0 {
		return nil, ErrNoPersonas
	}

	o.mu.Lock()
	ts := o.clock().UnixMilli()
	if ts <= o.lastStamp {
		ts = o.lastStamp + 1
	}
	o.lastStamp = ts
	o.current = ts
	o.generating = true
	o.order = make([]string, 0, len(ids))
	o.results = make(map[string]*GeneratedContent, len(ids))
	for _, id := range ids {
		o.order = append(o.order, id)
		o.results[id] = &GeneratedContent{
			ID:            ResultID(id, ts),
			PersonaID:     id,
			OriginalDraft: draft,
			Status:        StatusLoading,
			Timestamp:     ts,
		}
	}
	initial := o.snapshotLocked()
	o.publishLocked(initial)
	o.mu.Unlock()

	o.metrics.batchStarted()
	o.log.Info("batch started", "timestamp", ts, "personas", len(ids))

	batch := &Batch{Timestamp: ts, Initial: initial, done: make(chan struct{})}
	runCtx := context.WithoutCancel(ctx)
	go o.run(runCtx, batch, draft, ids)
	return batch, nil
}

func (o *Orchestrator) run(ctx context.Context, batch *Batch, draft string, ids []string) {
	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			o.apply(o.generateOne(ctx, batch.Timestamp, draft, id))
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	if o.current == batch.Timestamp {
		o.generating = false
		o.publishLocked(o.snapshotLocked())
	}
	o.mu.Unlock()
	o.metrics.batchFinished()
	o.log.Info("batch settled", "timestamp", batch.Timestamp)
	close(batch.done)
}

func (o *Orchestrator) generateOne(ctx context.Context, ts int64, draft, personaID string) update {
	p, ok := o.personas.Get(personaID)
	if !ok {
		// 选中后又被删除的分身：直接记为失败，避免记录永远停在 loading
		o.log.Warn("persona vanished before dispatch", "persona_id", personaID, "timestamp", ts)
		return update{personaID: personaID, timestamp: ts, err: ErrPersonaNotFound}
	}
	start := time.Now()
	res, err := o.gen.Generate(ctx, draft, p)
	o.metrics.observeGeneration(err, time.Since(start))
	if err != nil {
		o.log.Warn("generation failed", "persona_id", personaID, "timestamp", ts, "error", err)
	}
	return update{personaID: personaID, timestamp: ts, result: res, err: err}
}

// apply merges one settled generation into the displayed set. Updates whose
// (personaID, timestamp) no longer names a loading record are dropped.
func (o *Orchestrator) apply(u update) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.results[u.personaID]
	if !ok || u.timestamp != o.current || rec.Timestamp != u.timestamp || rec.Status != StatusLoading {
		o.metrics.staleUpdate()
		o.log.Debug("dropping stale update", "persona_id", u.personaID, "timestamp", u.timestamp, "current", o.current)
		return false
	}
	if u.err != nil {
		rec.Status = StatusError
		rec.Error = u.err.Error()
	} else {
		rec.Status = StatusSuccess
		rec.Content = u.result.Content
		rec.Analysis = u.result.Analysis
		rec.Tags = append([]string{}, u.result.Tags...)
	}
	o.publishLocked(o.snapshotLocked())
	return true
}

// Result returns one record of the current set by its id.
func (o *Orchestrator) Result(id string) (GeneratedContent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, pid := range o.order {
		rec := o.results[pid]
		if rec.ID == id {
			return cloneRecord(rec), true
		}
	}
	return GeneratedContent{}, false
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
