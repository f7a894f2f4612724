package poller

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// HealthChecker is the slice of the remote client the poller needs.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (json.RawMessage, error)
}

// StatusSink receives the outcome of each connectivity check.
type StatusSink interface {
	SetAPIStatus(connected bool, payload json.RawMessage, checkedAt int64)
}

// Poller probes the detection service on a fixed interval. Checks run
// one at a time on a single goroutine; a slow probe delays the next tick
// rather than stacking a second one on top.
type Poller struct {
	checker  HealthChecker
	sink     StatusSink
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

type Options struct {
	Interval time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

func New(checker HealthChecker, sink StatusSink, opts Options) *Poller {
	p := &Poller{
		checker:  checker,
		sink:     sink,
		interval: opts.Interval,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if p.interval <= 0 {
		p.interval = 30 * time.Second
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run performs an immediate first check, then one per interval until the
// context is cancelled. It blocks; callers run it on its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	p.check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Poller) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	payload, err := p.checker.CheckHealth(ctx)
	checkedAt := p.now().UnixMilli()
	if err != nil {
		p.log.Debug("connectivity check failed", zap.Error(err))
		p.sink.SetAPIStatus(false, nil, checkedAt)
		return
	}
	p.sink.SetAPIStatus(true, payload, checkedAt)
}
