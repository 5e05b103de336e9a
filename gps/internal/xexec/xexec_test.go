package xexec

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestInlineRunsSynchronously(t *testing.T) {
	ran := false
	Inline{}.Post(func() { ran = true })
	if !ran {
		t.Fatal("expected Inline.Post to run fn before returning")
	}
}

func TestPoolRunsAllPostedWork(t *testing.T) {
	p := NewPool(3)
	defer p.Close()

	const n = 50
	var count int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Post(func() {
			atomic.AddInt32(&count, 1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pool to run all posted work")
	}

	if got := atomic.LoadInt32(&count); got != n {
		t.Errorf("ran %d tasks, want %d", got, n)
	}
}

func TestNewPoolClampsToAtLeastOne(t *testing.T) {
	p := NewPool(0)
	defer p.Close()

	done := make(chan struct{})
	p.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool with n=0 never ran posted work")
	}
}
