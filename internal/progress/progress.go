// Package progress reports completed-event milestones during long
// batches. A Reporter is driven by the engine's per-event listener, so
// it adds no goroutines of its own.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/muonworks/tomography-simulator/internal/logging"
)

// Reporter logs one progress line every `every` completed events, and a
// final line when the batch total is reached. Additional listeners can
// piggyback on the same cadence.
type Reporter struct {
	log   logging.Logger
	total int
	every int
	start time.Time
	now   func() time.Time

	listeners []func(completed int)
}

// NewReporter constructs a reporter for a batch of total events. A
// non-positive cadence defaults to a tenth of the batch (at least one).
func NewReporter(log logging.Logger, total, every int) *Reporter {
	if log == nil {
		log = logging.Noop()
	}
	if every <= 0 {
		every = total / 10
	}
	if every <= 0 {
		every = 1
	}
	return &Reporter{
		log:   log,
		total: total,
		every: every,
		start: time.Now(),
		now:   time.Now,
	}
}

// AddListener registers a hook invoked at every reported milestone.
func (r *Reporter) AddListener(fn func(completed int)) {
	if fn != nil {
		r.listeners = append(r.listeners, fn)
	}
}

// OnEvent is the engine event listener: call it once per completed
// event with the running count.
func (r *Reporter) OnEvent(completed int) {
	if completed%r.every != 0 && completed != r.total {
		return
	}

	elapsed := r.now().Sub(r.start)
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(completed) / secs
	}
	r.log.Info(context.Background(), "run progress",
		logging.Int("completed", completed),
		logging.Int("total", r.total),
		logging.String("elapsed", elapsed.Round(time.Millisecond).String()),
		logging.String("rate", fmt.Sprintf("%.0f events/s", rate)),
	)

	for _, fn := range r.listeners {
		fn(completed)
	}
}
