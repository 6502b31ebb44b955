package mvfst

import (
	"time"

	"github.com/Harvey-Liu/mvfst/internal/monotime"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/utils"
)

// timerName enumerates the eight named one-shot timers a connection owns.
type timerName uint8

const (
	timerLoss timerName = iota
	timerAck
	timerPathValidation
	timerIdle
	timerKeepalive
	timerDrain
	timerPing
	timerExcessWrite
	numTimers
)

// oneShotTimer arms a single on-fire callback through the EventLoop's
// RunAfter; the callback is a closure over the owning connection. The
// utils.Timer it holds is not used for scheduling.
type oneShotTimer struct {
	name timerName
	timer *utils.Timer
	onFire func()
	cancel func()
}

func newOneShotTimer(name timerName) *oneShotTimer {
	return &oneShotTimer{name: name, timer: utils.NewTimer()}
}

// Arm schedules onFire to run after d via loop; re-arming before the
// previous fire is a plain cancel-and-reschedule.
func (t *oneShotTimer) Arm(loop EventLoop, d time.Duration, onFire func()) {
	t.Cancel()
	t.onFire = onFire
	t.cancel = loop.RunAfter(d, func() {
		if t.onFire != nil {
			f := t.onFire
			t.onFire = nil
			f()
		}
	})
}

// Cancel disarms the timer if armed.
func (t *oneShotTimer) Cancel() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.onFire = nil
}

func (t *oneShotTimer) IsScheduled() bool { return t.cancel != nil }

// TimerSet owns the connection's eight timers and the guard state their
// policies need (forced-idle scheduling, ack-timer already-scheduled
// check).
type TimerSet struct {
	loss oneShotTimer
	ack oneShotTimer
	pathValidation oneShotTimer
	idle oneShotTimer
	keepalive oneShotTimer
	drain oneShotTimer
	ping oneShotTimer
	excessWrite oneShotTimer

	forcedIdleTimeoutScheduled bool
	lastIdleArm monotime.Time
}

func newTimerSet() *TimerSet {
	return &TimerSet{
		loss: *newOneShotTimer(timerLoss),
		ack: *newOneShotTimer(timerAck),
		pathValidation: *newOneShotTimer(timerPathValidation),
		idle: *newOneShotTimer(timerIdle),
		keepalive: *newOneShotTimer(timerKeepalive),
		drain: *newOneShotTimer(timerDrain),
		ping: *newOneShotTimer(timerPing),
		excessWrite: *newOneShotTimer(timerExcessWrite),
	}
}

// CancelAllExceptDrain cancels every timer except drain, used while a
// connection transitions into its drain period.
func (t *TimerSet) CancelAllExceptDrain() {
	t.loss.Cancel()
	t.ack.Cancel()
	t.pathValidation.Cancel()
	t.idle.Cancel()
	t.keepalive.Cancel()
	t.ping.Cancel()
	t.excessWrite.Cancel()
}

// CancelAll disarms every timer, including drain.
func (t *TimerSet) CancelAll() {
	t.CancelAllExceptDrain()
	t.drain.Cancel()
}

// ptoFromRTT computes the Probe Timeout as defined in the Glossary:
// srtt + max(4*rttvar, granularity) + maxAckDelay.
func ptoFromRTT(srtt, rttvar, maxAckDelay time.Duration) time.Duration {
	rttvarTerm := 4 * rttvar
	if rttvarTerm < protocol.TimerGranularity {
		rttvarTerm = protocol.TimerGranularity
	}
	return srtt + rttvarTerm + maxAckDelay
}

// rearmIdleTimer arms the idle timer with duration = min(local, peer if
// >0), rearmed on ack-state-version change or a new send from quiescence.
func (c *Connection) rearmIdleTimer() {
	d := c.idleTimeoutDuration()
	if d <= 0 {
		return
	}
	c.timers.lastIdleArm = monotime.Now()
	c.timers.idle.Arm(c.eventLoop, d, c.onIdleTimeout)
}

func (c *Connection) idleTimeoutDuration() time.Duration {
	local := c.settings.IdleTimeout
	peer := c.peerIdleTimeout
	if peer > 0 && peer < local {
		return peer
	}
	return local
}

func (c *Connection) onIdleTimeout() {
	if c.closeState != Open {
		return
	}
	c.logger.Infof("idle timeout after %s", c.idleTimeoutDuration())
	c.closeImpl(quicErrorIdleTimeout(), closeOptions{DrainConnection: true, SendCloseImmediately: true})
}

// maybeForceIdleTimeout handles the case where a write pass observes that
// the idle timer should already have fired: it schedules an async fire,
// at most once per idle period.
func (c *Connection) maybeForceIdleTimeout() {
	d := c.idleTimeoutDuration()
	if d <= 0 || c.timers.forcedIdleTimeoutScheduled {
		return
	}
	if monotime.Since(c.timers.lastIdleArm) < d {
		return
	}
	c.timers.forcedIdleTimeoutScheduled = true
	c.eventLoop.RunAsync(func() {
		c.timers.forcedIdleTimeoutScheduled = false
		c.onIdleTimeout()
	})
}

// rearmKeepaliveTimer arms the keepalive timer.
func (c *Connection) rearmKeepaliveTimer() {
	if !c.settings.KeepAliveEnabled {
		return
	}
	d := time.Duration(float64(c.idleTimeoutDuration()) * 0.85)
	if d <= 0 {
		return
	}
	c.timers.keepalive.Arm(c.eventLoop, d, c.onKeepaliveTimeout)
}

func (c *Connection) onKeepaliveTimeout() {
	if c.closeState != Open {
		return
	}
	c.pendingEvents.SendPing = true
	c.writeLooper.Run()
	c.rearmKeepaliveTimer()
}

// rearmLossTimer schedules the loss-detection alarm at the collaborator's
// requested deadline, clamped to at least one timer tick.
func (c *Connection) rearmLossTimer(deadline time.Duration) {
	if deadline <= 0 {
		c.timers.loss.Cancel()
		return
	}
	if deadline < protocol.TimerGranularity {
		deadline = protocol.TimerGranularity
	}
	c.timers.loss.Arm(c.eventLoop, deadline, c.onLossTimeout)
}

func (c *Connection) onLossTimeout() {
	if c.closeState != Open {
		return
	}
	if c.lossDetector != nil {
		if err := c.lossDetector.OnLossDetectionAlarm(); err != nil {
			c.closeWithMappedError(err, "loss detection alarm error")
			return
		}
	}
	c.pacedWriteDataToSocket()
}

// rearmAckTimer arms the ack timer only when pendingEvents.ScheduleAckTimeout
// is set and no ack timer is already scheduled.
func (c *Connection) rearmAckTimer() {
	if !c.pendingEvents.ScheduleAckTimeout || c.timers.ack.IsScheduled() {
		return
	}
	factor := c.settings.AckTimerFactor
	heuristic := time.Duration(float64(c.rttStats.SRTT) * factor)
	if c.ackFrequencyNegotiated {
		heuristic = c.settings.MaxAckDelay
	}
	d := heuristic
	if d > c.settings.MaxAckDelay {
		d = c.settings.MaxAckDelay
	}
	if d < protocol.TimerGranularity {
		d = protocol.TimerGranularity
	}
	c.timers.ack.Arm(c.eventLoop, d, c.onAckTimeout)
}

func (c *Connection) onAckTimeout() {
	if c.closeState != Open {
		return
	}
	c.pendingEvents.ScheduleAckTimeout = false
	c.pacedWriteDataToSocket()
}

// rearmPathValidationTimer arms the path validation timer for
// max(3*PTO, 6*initialRTT).
func (c *Connection) rearmPathValidationTimer() {
	if !c.outstandingPathValidation {
		c.timers.pathValidation.Cancel()
		return
	}
	pto := ptoFromRTT(c.rttStats.SRTT, c.rttStats.RTTVar, c.settings.MaxAckDelay)
	d := 3 * pto
	if six := 6 * c.rttStats.InitialRTT; six > d {
		d = six
	}
	c.timers.pathValidation.Arm(c.eventLoop, d, c.onPathValidationTimeout)
}

func (c *Connection) onPathValidationTimeout() {
	if c.closeState != Open {
		return
	}
	c.closeImpl(invalidMigrationError(), closeOptions{DrainConnection: false, SendCloseImmediately: true})
}

// armDrainTimer arms the drain timer for drainFactor * PTO.
func (c *Connection) armDrainTimer() {
	pto := ptoFromRTT(c.rttStats.SRTT, c.rttStats.RTTVar, c.settings.MaxAckDelay)
	d := time.Duration(c.settings.DrainFactor) * pto
	c.timers.drain.Arm(c.eventLoop, d, c.drainTimeoutExpired)
}

// SendPing arms the ping timer with an application-supplied timeout.
func (c *Connection) SendPing(timeout time.Duration) {
	c.pendingEvents.SendPing = true
	c.writeLooper.Run()
	if timeout > 0 && c.pingCallback != nil {
		c.timers.ping.Arm(c.eventLoop, timeout, c.onPingTimeout)
	}
}

func (c *Connection) cancelPingTimeout() { c.timers.ping.Cancel() }

func (c *Connection) onPingTimeout() {
	if c.pingCallback != nil {
		c.pingCallback.OnPingTimeout()
	}
}

// armExcessWriteTimer implements the 0-ms yield mechanism for excess writes.
func (c *Connection) armExcessWriteTimer() {
	if !c.settings.ScheduleTimerForExcessWrites {
		return
	}
	c.timers.excessWrite.Arm(c.eventLoop, 0, func() {
		c.writeLooper.Run()
	})
}
