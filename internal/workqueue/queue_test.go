package workqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
	"github.com/rohmanhakim/linkcheck/internal/workqueue"
)

func link(uri string) *hyperlink.Hyperlink {
	l := hyperlink.New(uri, "index", "docs/index.rst", 1)
	return &l
}

func TestQueue_OrdersByNextCheck(t *testing.T) {
	q := workqueue.New()
	q.Push(checkresult.CheckRequest{NextCheck: 30, Hyperlink: link("c")})
	q.Push(checkresult.CheckRequest{NextCheck: 10, Hyperlink: link("a")})
	q.Push(checkresult.CheckRequest{NextCheck: 20, Hyperlink: link("b")})

	first := q.Pop()
	second := q.Pop()
	third := q.Pop()

	assert.Equal(t, "a", first.Hyperlink.URI)
	assert.Equal(t, "b", second.Hyperlink.URI)
	assert.Equal(t, "c", third.Hyperlink.URI)
}

func TestQueue_TiesBreakByInsertionOrder(t *testing.T) {
	q := workqueue.New()
	q.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: link("first")})
	q.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: link("second")})
	q.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: link("third")})

	assert.Equal(t, "first", q.Pop().Hyperlink.URI)
	assert.Equal(t, "second", q.Pop().Hyperlink.URI)
	assert.Equal(t, "third", q.Pop().Hyperlink.URI)
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := workqueue.New()
	done := make(chan checkresult.CheckRequest, 1)

	go func() {
		done <- q.Pop()
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before any Push")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: link("late")})

	select {
	case req := <-done:
		assert.Equal(t, "late", req.Hyperlink.URI)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Push")
	}
}

func TestQueue_WaitDrainsAfterTaskDone(t *testing.T) {
	q := workqueue.New()
	q.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: link("a")})
	q.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: link("b")})

	drained := make(chan struct{})
	go func() {
		q.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatal("Wait returned before all tasks were done")
	case <-time.After(20 * time.Millisecond):
	}

	q.Pop()
	q.TaskDone()

	select {
	case <-drained:
		t.Fatal("Wait returned after only one of two tasks was done")
	case <-time.After(20 * time.Millisecond):
	}

	q.Pop()
	q.TaskDone()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after both tasks were done")
	}
}

func TestQueue_Len(t *testing.T) {
	q := workqueue.New()
	require.Equal(t, 0, q.Len())
	q.Push(checkresult.CheckRequest{NextCheck: 0, Hyperlink: link("a")})
	assert.Equal(t, 1, q.Len())
	q.Pop()
	assert.Equal(t, 0, q.Len())
}
