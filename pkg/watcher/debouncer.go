package watcher

import (
	"context"
	"time"

	"github.com/ritzau/depscope/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive rescans.
// A batch is emitted once no event arrived for quietPeriod, or maxWait after
// its first event, whichever comes first.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run owns all state; timers are only touched from this goroutine
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet       *time.Timer
		deadline    *time.Timer
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	stop := func() {
		if quiet != nil {
			quiet.Stop()
			quiet = nil
		}
		if deadline != nil {
			deadline.Stop()
			deadline = nil
		}
	}

	flush := func() {
		stop()
		if eventCount == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", eventCount)

		// Reply directory changes first, they may add watches
		for _, changeType := range []ChangeType{ChangeTypeReplyDir, ChangeTypeIndex} {
			if paths := accumulated[changeType]; len(paths) > 0 {
				select {
				case d.output <- ChangeEvent{Type: changeType, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
				}
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			if quiet != nil {
				quiet.Stop()
			}
			quiet = time.NewTimer(d.quietPeriod)
			if deadline == nil {
				deadline = time.NewTimer(d.maxWait)
			}

		case <-timerC(quiet):
			flush()

		case <-timerC(deadline):
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
