// Package checker implements the checking engine's orchestrator (C6):
// it seeds the work queue, launches the worker pool, drains the result
// queue into a lazy output stream, and shuts the workers down once every
// link has produced a terminal result.
package checker

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/classify"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
	"github.com/rohmanhakim/linkcheck/internal/observe"
	"github.com/rohmanhakim/linkcheck/internal/prober"
	"github.com/rohmanhakim/linkcheck/internal/ratelimit"
	"github.com/rohmanhakim/linkcheck/internal/worker"
	"github.com/rohmanhakim/linkcheck/internal/workqueue"
	"github.com/rohmanhakim/linkcheck/pkg/timeutil"
)

// Config is everything the orchestrator needs to build its queues,
// shared state tables, and worker pool.
type Config struct {
	NumWorkers       int
	Ignore           []*regexp.Regexp
	Hooks            hyperlink.ProcessURIHooks
	ClassifyCfg      classify.Config
	ProberCfg        prober.Config
	BreakerThreshold uint32
	BreakerOpenFor   time.Duration
	Sink             observe.Sink
	Clock            timeutil.Clock
	Sleeper          timeutil.Sleeper
	// Transport, when set, is used by every worker's prober in place of
	// the per-worker transports built by prober.NewTransport. Left nil in
	// production; tests set it to point at an httptest.Server without
	// touching the network.
	Transport http.RoundTripper
}

// Checker runs one check of a hyperlink set end to end. It is not meant
// to be reused across multiple calls to Check.
type Checker struct {
	cfg         Config
	workQueue   *workqueue.Queue
	resultQueue *workqueue.ResultQueue
	limiter     *ratelimit.Limiter
	breakers    *ratelimit.Breakers
	transport   http.RoundTripper
	runID       string
	workers     []*worker.Worker
	wg          sync.WaitGroup
}

// New builds a Checker. Defaults: NumWorkers <= 0 becomes 5, Clock
// becomes the real wall clock, Sleeper becomes the real sleeper, Sink
// becomes a no-op sink.
func New(cfg Config) *Checker {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 5
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.NewRealClock()
	}
	if cfg.Sleeper == nil {
		sleeper := timeutil.NewRealSleeper()
		cfg.Sleeper = &sleeper
	}
	if cfg.Sink == nil {
		cfg.Sink = observe.NopSink{}
	}

	return &Checker{
		cfg:         cfg,
		workQueue:   workqueue.New(),
		resultQueue: workqueue.NewResultQueue(),
		limiter:     ratelimit.New(cfg.ProberCfg.RateLimitTimeout, cfg.Clock),
		breakers:    ratelimit.NewBreakers(cfg.BreakerThreshold, cfg.BreakerOpenFor),
		transport:   cfg.Transport,
		runID:       uuid.NewString(),
	}
}

// RunID returns the correlation id every log line and metric from this
// Checker's run is tagged with.
func (c *Checker) RunID() string {
	return c.runID
}

// invokeThreads spawns num_workers workers sharing the work queue,
// result queue, rate-limit table, and circuit breakers. Each worker gets
// its own HTTP transport unless Config.Transport overrides it.
func (c *Checker) invokeThreads(ctx context.Context) {
	c.workers = make([]*worker.Worker, c.cfg.NumWorkers)
	for i := 0; i < c.cfg.NumWorkers; i++ {
		transport := c.transport
		if transport == nil {
			transport = prober.NewTransport(c.cfg.ProberCfg)
		}
		p := prober.New(c.cfg.ProberCfg, transport, c.limiter, c.breakers, c.cfg.Sink, c.cfg.Clock, c.runID)
		w := worker.New(i, c.workQueue, c.resultQueue, c.limiter, c.cfg.ClassifyCfg, p, transport, c.cfg.Sleeper, c.cfg.Clock, c.cfg.Sink, c.runID)
		c.workers[i] = w
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			w.Run(ctx)
		}()
	}
}

// shutdownThreads awaits full work-queue drain, then enqueues one
// sentinel per worker and waits for every worker goroutine to exit.
func (c *Checker) shutdownThreads() {
	c.workQueue.Wait()
	for range c.workers {
		c.workQueue.Push(checkresult.CheckRequest{Hyperlink: nil})
	}
	c.wg.Wait()
}

// Check launches the worker pool and returns a channel that yields one
// CheckResult per link in links. Ignore-pattern matches are yielded
// immediately, in input order, without ever touching the work queue;
// every other link's result arrives in nondeterministic completion
// order. The channel is closed once every link has produced a result
// and the worker pool has shut down.
func (c *Checker) Check(ctx context.Context, links []hyperlink.Hyperlink) <-chan checkresult.CheckResult {
	out := make(chan checkresult.CheckResult)
	c.invokeThreads(ctx)

	go func() {
		defer close(out)

		totalLinks := 0
		for _, link := range links {
			if replacement := c.cfg.Hooks.Apply(link.URI); replacement != link.URI {
				link.URI = replacement
			}
			if matchesAny(link.URI, c.cfg.Ignore) {
				out <- checkresult.CheckResult{
					URI:     link.URI,
					Docname: link.Docname,
					Lineno:  link.Lineno,
					Status:  checkresult.Ignored,
					Message: "matched ignore pattern",
				}
				continue
			}
			l := link
			c.workQueue.Push(checkresult.CheckRequest{Hyperlink: &l})
			totalLinks++
			c.cfg.Sink.RecordQueueDepth(c.runID, c.workQueue.Len())
		}

		for i := 0; i < totalLinks; i++ {
			out <- c.resultQueue.Pop()
		}

		c.shutdownThreads()
	}()

	return out
}

func matchesAny(uri string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(uri) {
			return true
		}
	}
	return false
}
