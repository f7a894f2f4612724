package poller_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hardhat-shell/internal/poller"
)

type scriptedChecker struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (c *scriptedChecker) CheckHealth(_ context.Context) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.calls < len(c.results) {
		err = c.results[c.calls]
	}
	c.calls++
	if err != nil {
		return nil, err
	}
	return json.RawMessage(`{"status":"healthy"}`), nil
}

func (c *scriptedChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingSink struct {
	mu      sync.Mutex
	updates []bool
	notify  chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{notify: make(chan struct{}, 16)}
}

func (s *recordingSink) SetAPIStatus(connected bool, _ json.RawMessage, _ int64) {
	s.mu.Lock()
	s.updates = append(s.updates, connected)
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *recordingSink) snapshot() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.updates))
	copy(out, s.updates)
	return out
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status update")
	}
}

func TestFirstCheckIsImmediate(t *testing.T) {
	checker := &scriptedChecker{}
	sink := newRecordingSink()
	p := poller.New(checker, sink, poller.Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, sink.notify)
	require.Equal(t, []bool{true}, sink.snapshot())

	cancel()
	<-done
	require.Equal(t, 1, checker.callCount())
}

func TestChecksRepeatOnInterval(t *testing.T) {
	checker := &scriptedChecker{results: []error{nil, context.DeadlineExceeded, nil}}
	sink := newRecordingSink()
	p := poller.New(checker, sink, poller.Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, sink.notify)
	waitFor(t, sink.notify)
	waitFor(t, sink.notify)
	cancel()
	<-done

	got := sink.snapshot()[:3]
	require.Equal(t, []bool{true, false, true}, got)
}

func TestRunStopsOnCancel(t *testing.T) {
	checker := &scriptedChecker{}
	sink := newRecordingSink()
	p := poller.New(checker, sink, poller.Options{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, sink.notify)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	settled := checker.callCount()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, settled, checker.callCount())
}
