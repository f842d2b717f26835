package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is used when Loop.Interval is not set.
const DefaultInterval = time.Second

// Loop runs controllers at a fixed interval, sequentially, forever.
// The first iteration starts immediately, the following ones at every
// tick, so iterations are Interval apart start-to-start.
type Loop struct {
	Interval time.Duration

	controllers []Controller
	runners     []Runnable
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	ctx   context.Context
	time  time.Time
	index uint64
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop. They run in
// registration order.
func (l *Loop) AddController(ctls ...Controller) *Loop {
	l.controllers = append(l.controllers, ctls...)
	return l
}

// AddRunnable adds Runnable implementions which run in background as long
// as the loop runs.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. It returns when ctx is done or any controller
// fails, the error of the controller is returned as is.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	runner := NewRunnerWith(ctx)
	defer runner.Wait()
	defer cancel()
	runner.Go(l.runners...)

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	now := time.Now()
	for index := uint64(0); ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.runIteration(ctx, index, now); err != nil {
			glog.Errorf("controller error at iteration %d: %v", index, err)
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now = <-ticker.C:
		}
	}
}

func (l *Loop) runIteration(ctx context.Context, index uint64, now time.Time) error {
	iter := &loopIteration{ctx: ctx, time: now, index: index}
	for _, ctl := range l.controllers {
		if err := ctl.Control(iter); err != nil {
			return err
		}
	}
	return nil
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Iteration() uint64 {
	return t.index
}
