package workqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
	"github.com/rohmanhakim/linkcheck/internal/workqueue"
)

func TestResultQueue_FIFO(t *testing.T) {
	q := workqueue.NewResultQueue()
	q.Push(checkresult.CheckResult{URI: "a"})
	q.Push(checkresult.CheckResult{URI: "b"})

	assert.Equal(t, "a", q.Pop().URI)
	assert.Equal(t, "b", q.Pop().URI)
}

func TestResultQueue_PopBlocksUntilPush(t *testing.T) {
	q := workqueue.NewResultQueue()
	done := make(chan checkresult.CheckResult, 1)

	go func() { done <- q.Pop() }()

	select {
	case <-done:
		t.Fatal("Pop returned before any Push")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push(checkresult.CheckResult{URI: "late"})

	select {
	case result := <-done:
		assert.Equal(t, "late", result.URI)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Push")
	}
}
