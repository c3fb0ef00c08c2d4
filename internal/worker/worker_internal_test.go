package worker

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/classify"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
	"github.com/rohmanhakim/linkcheck/internal/observe"
	"github.com/rohmanhakim/linkcheck/internal/prober"
	"github.com/rohmanhakim/linkcheck/internal/ratelimit"
	"github.com/rohmanhakim/linkcheck/internal/workqueue"
)

type stubSleeper struct {
	calls []time.Duration
}

func (s *stubSleeper) Sleep(d time.Duration) {
	s.calls = append(s.calls, d)
}

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time {
	return c.now
}

type stubProber struct {
	outcome prober.Outcome
	calls   int
}

func (p *stubProber) Probe(ctx context.Context, link hyperlink.Hyperlink) prober.Outcome {
	p.calls++
	return p.outcome
}

func TestWorker_ProcessSleepsAndReenqueuesWhenNotYetDue(t *testing.T) {
	workQueue := workqueue.New()
	resultQueue := workqueue.NewResultQueue()
	clock := &stubClock{now: time.Unix(1000, 0)}
	limiter := ratelimit.New(90*time.Second, clock)
	fp := &stubProber{}
	sleeper := &stubSleeper{}

	w := New(
		1, workQueue, resultQueue, limiter,
		classify.Config{}, fp, http.DefaultTransport,
		sleeper, clock,
		observe.NopSink{}, "run-1",
	)

	link := hyperlink.New("http://example.com", "index", "docs/index.rst", 1)
	workQueue.Push(checkresult.CheckRequest{NextCheck: 2000, Hyperlink: &link})

	done := make(chan struct{})
	go func() {
		w.process(context.Background(), workQueue.Pop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("process never returned")
	}

	require.Len(t, sleeper.calls, 1)
	assert.Equal(t, 0, fp.calls)

	req := workQueue.Pop()
	assert.Equal(t, int64(2000), req.NextCheck)
}

func TestWorker_ProcessUsesFresherLimiterEntryOverQueuedNextCheck(t *testing.T) {
	workQueue := workqueue.New()
	resultQueue := workqueue.NewResultQueue()
	clock := &stubClock{now: time.Unix(1000, 0)}
	limiter := ratelimit.New(90*time.Second, clock)
	limiter.Limit("example.com", "", clock.now)

	fp := &stubProber{}
	sleeper := &stubSleeper{}

	w := New(
		1, workQueue, resultQueue, limiter,
		classify.Config{}, fp, http.DefaultTransport,
		sleeper, clock,
		observe.NopSink{}, "run-1",
	)

	link := hyperlink.New("http://example.com/page", "index", "docs/index.rst", 1)
	workQueue.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: &link})

	done := make(chan struct{})
	go func() {
		w.process(context.Background(), workQueue.Pop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("process never returned")
	}

	require.Len(t, sleeper.calls, 1)
	assert.Equal(t, 0, fp.calls, "fresh limiter entry should have deferred the probe even though the queued NextCheck was 0")
}
