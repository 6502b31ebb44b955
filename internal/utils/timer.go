package utils

import (
	"math"
	"time"

	"github.com/Harvey-Liu/mvfst/internal/monotime"
)

// Timer is a wrapper around time.Timer that behaves correctly across
// repeated Reset calls, including the drain-before-reset dance required by
// the stdlib docs. Grounded on quic-go's internal/utils.Timer.
type Timer struct {
	t        *time.Timer
	read     bool
	deadline monotime.Time
}

// NewTimer creates a timer that is not armed.
func NewTimer() *Timer {
	t := time.NewTimer(time.Duration(math.MaxInt64))
	t.Stop()
	return &Timer{t: t}
}

// Chan returns the underlying fire channel.
func (t *Timer) Chan() <-chan time.Time { return t.t.C }

// Reset arms the timer for deadline unless it is already armed for that
// exact deadline and hasn't fired since, avoiding needless timer churn.
func (t *Timer) Reset(deadline monotime.Time) {
	if deadline.Equal(t.deadline) && !t.read {
		return
	}
	if !t.t.Stop() && !t.read {
		select {
		case <-t.t.C:
		default:
		}
	}
	if !deadline.IsZero() {
		t.t.Reset(time.Until(deadline.AsTime()))
	}
	t.read = false
	t.deadline = deadline
}

// SetRead must be called once the fire value has been consumed from Chan().
func (t *Timer) SetRead() { t.read = true }

// Deadline returns the currently armed deadline (zero if unarmed).
func (t *Timer) Deadline() monotime.Time { return t.deadline }

// Stop disarms the timer.
func (t *Timer) Stop() {
	if !t.t.Stop() && !t.read {
		select {
		case <-t.t.C:
		default:
		}
	}
	t.read = true
	t.deadline = monotime.Time{}
}
