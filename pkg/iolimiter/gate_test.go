package iolimiter_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unpacker/pkg/iolimiter"
)

func TestGate_AdmitReleaseRespectsLimit(t *testing.T) {
	t.Parallel()

	g := iolimiter.NewGate(1, 8, 2)

	g.Admit()
	g.Admit()
	assert.Equal(t, 2, g.Active())

	done := make(chan struct{})
	go func() {
		g.Admit()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("third admit should have blocked at limit 2")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("third admit should have unblocked after a release")
	}

	assert.Equal(t, 2, g.Active())
}

func TestGate_SetLimitClampsToBounds(t *testing.T) {
	t.Parallel()

	g := iolimiter.NewGate(2, 8, 4)

	g.SetLimit(100)
	assert.Equal(t, 8, g.Limit())

	g.SetLimit(0)
	assert.Equal(t, 2, g.Limit())
}

func TestGate_SetLimitWakesBlockedWaiters(t *testing.T) {
	t.Parallel()

	g := iolimiter.NewGate(1, 8, 1)
	g.Admit()

	var wg sync.WaitGroup
	wg.Add(1)

	unblocked := make(chan struct{})
	go func() {
		defer wg.Done()
		g.Admit()
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("should still be blocked at limit 1")
	case <-time.After(50 * time.Millisecond):
	}

	g.SetLimit(2)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("raising the limit should wake the blocked waiter")
	}

	wg.Wait()
}

func TestGate_NewGateClampsStartLimit(t *testing.T) {
	t.Parallel()

	g := iolimiter.NewGate(2, 8, 100)
	assert.Equal(t, 8, g.Limit())

	g2 := iolimiter.NewGate(2, 8, 0)
	assert.Equal(t, 2, g2.Limit())
}

func TestGate_Bounds(t *testing.T) {
	t.Parallel()

	g := iolimiter.NewGate(2, 8, 4)
	require.Equal(t, 2, g.MinWorkers())
	require.Equal(t, 8, g.MaxCap())
}
