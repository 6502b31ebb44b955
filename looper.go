package mvfst

import "time"

// EventLoop is the general event-loop primitive the core is deliberately
// not implementing itself. RunInLoop executes fn before the loop next
// blocks (same turn if called from within one); RunAsync
// schedules fn for a later turn; RunAfter arms a one-shot delayed call and
// returns a canceler.
type EventLoop interface {
	RunInLoop(fn func())
	RunAsync(fn func())
	RunAfter(d time.Duration, fn func()) (cancel func())
}

// LoopDetector observes anomalies a Looper can see but shouldn't act on
// itself: an "empty loop" is a scheduled write that produced nothing, a
// "stale read" is a scheduled read where no ack-state version change
// occurred.
type LoopDetector interface {
	OnEmptyLoop()
	OnStaleRead()
}

// PacingFn returns the delay before the write looper's work function may
// run again; a non-positive delay means "run on the next turn".
type PacingFn func() time.Duration

// Looper wraps a work function so it runs at most once per event-loop
// turn, and is idempotent to call while already scheduled.
type Looper struct {
	name string
	loop EventLoop
	work func()
	running bool
	scheduled bool

	// pacing, if non-nil, is consulted before scheduling: a positive
	// delay routes scheduling through pacingTimer instead of RunAsync.
	pacing PacingFn
	pacingTimer func(d time.Duration, fn func()) (cancel func())
	cancelPacing func()
}

// NewLooper builds a looper bound to loop, invoking work at most once per
// turn.
func NewLooper(name string, loop EventLoop, work func()) *Looper {
	return &Looper{name: name, loop: loop, work: work}
}

// SetPacingFn installs the write looper's pacing function and the timer
// primitive it schedules through.
func (l *Looper) SetPacingFn(pacing PacingFn, pacingTimer func(d time.Duration, fn func()) (cancel func())) {
	l.pacing = pacing
	l.pacingTimer = pacingTimer
}

// SetEventLoop rebinds the looper to a different EventLoop, or detaches it
// (loop == nil) so a subsequent Run/RunInline is a no-op until rebound.
// Used by DetachEventBase/AttachEventBase to move a connection between
// event bases without reconstructing its loopers.
func (l *Looper) SetEventLoop(loop EventLoop) { l.loop = loop }

// Run schedules the work function to execute on the next turn. Calling Run
// while already scheduled is a no-op. A detached looper (no EventLoop
// bound) silently drops the request.
func (l *Looper) Run() {
	if l.loop == nil || l.scheduled {
		return
	}
	l.scheduled = true
	if l.pacing != nil {
		if d := l.pacing(); d > 0 {
			l.cancelPacing = l.pacingTimer(d, l.fire)
			return
		}
	}
	l.loop.RunAsync(l.fire)
}

// RunInline executes the work function within the current turn, e.g. right
// after a read produced writable data.
func (l *Looper) RunInline() {
	if l.loop == nil || l.scheduled {
		return
	}
	l.scheduled = true
	l.loop.RunInLoop(l.fire)
}

func (l *Looper) fire() {
	if !l.scheduled {
		return
	}
	l.scheduled = false
	l.cancelPacing = nil
	if l.running {
		return
	}
	l.running = true
	defer func() { l.running = false }()
	l.work()
}

// Stop cancels any pending schedule without running the work function.
func (l *Looper) Stop() {
	l.scheduled = false
	if l.cancelPacing != nil {
		l.cancelPacing()
		l.cancelPacing = nil
	}
}

// IsRunning reports whether the work function is currently executing
// (used to guard against re-entrant scheduling causing a double-run).
func (l *Looper) IsRunning() bool { return l.running }

// IsScheduled reports whether a run is pending.
func (l *Looper) IsScheduled() bool { return l.scheduled }
