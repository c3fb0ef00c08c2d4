// Package worker implements the per-goroutine work-queue consumer (C5):
// dequeue, rate-limit refresh, eligibility sleep, classify-then-probe,
// and result emission.
package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/classify"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
	"github.com/rohmanhakim/linkcheck/internal/observe"
	"github.com/rohmanhakim/linkcheck/internal/prober"
	"github.com/rohmanhakim/linkcheck/internal/ratelimit"
	"github.com/rohmanhakim/linkcheck/internal/workqueue"
	"github.com/rohmanhakim/linkcheck/pkg/timeutil"
	"github.com/rohmanhakim/linkcheck/pkg/urlutil"
)

// pollInterval is the fixed sleep a worker takes when the item at hand
// isn't due yet, avoiding a busy loop while letting other workers make
// progress.
const pollInterval = 1 * time.Second

// Prober is the narrow interface a worker needs from C4, letting tests
// substitute a fake without driving real HTTP traffic.
type Prober interface {
	Probe(ctx context.Context, link hyperlink.Hyperlink) prober.Outcome
}

// Worker pulls from a shared work queue, consults the shared rate-limit
// table, runs the classify-then-probe pipeline, and emits to the shared
// result queue. A Worker is daemonic: it runs until it dequeues the
// shutdown sentinel.
type Worker struct {
	id          int
	workQueue   *workqueue.Queue
	resultQueue *workqueue.ResultQueue
	limiter     *ratelimit.Limiter
	classifyCfg classify.Config
	prober      Prober
	transport   http.RoundTripper
	sleeper     timeutil.Sleeper
	clock       timeutil.Clock
	sink        observe.Sink
	runID       string
}

// New builds a Worker. transport is the worker's own HTTP transport,
// closed on shutdown; it is not shared with other workers, matching the
// one-session-per-worker resource model.
func New(
	id int,
	workQueue *workqueue.Queue,
	resultQueue *workqueue.ResultQueue,
	limiter *ratelimit.Limiter,
	classifyCfg classify.Config,
	p Prober,
	transport http.RoundTripper,
	sleeper timeutil.Sleeper,
	clock timeutil.Clock,
	sink observe.Sink,
	runID string,
) *Worker {
	return &Worker{
		id:          id,
		workQueue:   workQueue,
		resultQueue: resultQueue,
		limiter:     limiter,
		classifyCfg: classifyCfg,
		prober:      p,
		transport:   transport,
		sleeper:     sleeper,
		clock:       clock,
		sink:        sink,
		runID:       runID,
	}
}

// Run dequeues and processes work items until it receives the shutdown
// sentinel, then closes its HTTP resources and returns.
func (w *Worker) Run(ctx context.Context) {
	for {
		req := w.workQueue.Pop()
		if req.IsSentinel() {
			w.workQueue.TaskDone()
			w.closeTransport()
			return
		}
		w.process(ctx, req)
	}
}

func (w *Worker) closeTransport() {
	if t, ok := w.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

func (w *Worker) process(ctx context.Context, req checkresult.CheckRequest) {
	link := *req.Hyperlink
	host := urlutil.Host(link.URI)

	nextCheck := req.NextCheck
	if freshNextCheck, ok := w.limiter.NextCheck(host); ok {
		nextCheck = freshNextCheck.Unix()
	}

	now := w.clock.Now().Unix()
	if nextCheck > now {
		w.sleeper.Sleep(pollInterval)
		w.workQueue.Push(checkresult.CheckRequest{NextCheck: nextCheck, Hyperlink: req.Hyperlink})
		w.workQueue.TaskDone()
		return
	}

	outcome := w.check(ctx, link)

	if outcome.RateLimited {
		w.workQueue.Push(checkresult.CheckRequest{NextCheck: outcome.NextCheck.Unix(), Hyperlink: req.Hyperlink})
		w.sink.RecordRateLimited(w.runID, link.URI, host, outcome.NextCheck)
		w.workQueue.TaskDone()
		return
	}

	w.sink.RecordResult(w.runID, outcome.Result)
	w.resultQueue.Push(outcome.Result)
	w.workQueue.TaskDone()
}

// check runs the C3-then-C4 pipeline: the classifier may settle the
// link outright (ignored, unchecked, local-path verdict), in which case
// the prober never runs at all.
func (w *Worker) check(ctx context.Context, link hyperlink.Hyperlink) prober.Outcome {
	classified := classify.Classify(link, w.classifyCfg)
	if !classified.Pass {
		return prober.Outcome{Result: classified.Result}
	}
	return w.prober.Probe(ctx, link)
}
