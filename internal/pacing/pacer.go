// Package pacing implements TokenlessPacer, a token-bucket pacer whose
// burst budget is derived from the congestion controller's current
// bandwidth estimate rather than from a fixed cwnd fraction. Grounded on
// quic-go's internal/congestion.pacer, rebuilt on top of
// golang.org/x/time/rate's token bucket instead of hand-rolled budget
// arithmetic.
package pacing

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/Harvey-Liu/mvfst/internal/congestion"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// kMinCwndInMssForBbr is the minimum congestion window, in MSS-sized
// datagrams, the pacer will assume for a BBR-family controller. BBR
// starts far more aggressively than loss-based algorithms and a small
// minCwnd would otherwise stall it.
const kMinCwndInMssForBbr = 4

// RttFactor scales the pacing interval as a numerator/denominator pair.
type RttFactor struct {
	Num, Den int
}

var unityFactor = RttFactor{Num: 1, Den: 1}

// TokenlessPacer paces writes using a token bucket sized off the
// congestion controller's instantaneous bandwidth estimate.
type TokenlessPacer struct {
	limiter *rate.Limiter

	minCwndInMss protocol.ByteCount
	maxDatagramSize protocol.ByteCount

	experimentalPacer bool
	defaultRttFactor RttFactor
	startupRttFactor RttFactor
	fireLoopEarly bool

	getBandwidth func() uint64 // bytes/sec
	lastSent time.Time
}

// Config carries the fields forced together for the BBR2/BBRTesting case.
type Config struct {
	MinCwndInMss protocol.ByteCount
	ExperimentalPacer bool
	DefaultRttFactor RttFactor
	StartupRttFactor RttFactor
	FireLoopEarly bool
}

// SelectConfig implements the pacer-selection table:
// BBR-family controllers get the larger minCwnd; BBR2 and BBRTesting also
// force the experimental-pacer flags. Unpaced BBR is rejected by the
// caller (see ValidateControllerType) before this is reached.
func SelectConfig(controllerType congestion.Type, minCwndInMssFromSettings protocol.ByteCount) Config {
	cfg := Config{
		MinCwndInMss: minCwndInMssFromSettings,
		DefaultRttFactor: unityFactor,
		StartupRttFactor: unityFactor,
	}
	if controllerType.IsBBRFamily() {
		cfg.MinCwndInMss = kMinCwndInMssForBbr
	}
	if controllerType == congestion.BBR2 || controllerType == congestion.BBRTesting {
		cfg.ExperimentalPacer = true
		cfg.DefaultRttFactor = RttFactor{Num: 1, Den: 1}
		cfg.StartupRttFactor = RttFactor{Num: 1, Den: 1}
		cfg.FireLoopEarly = true
	}
	return cfg
}

// ValidateControllerType downgrades an unpaced BBR request to Cubic: BBR
// without a pacer is rejected and downgraded rather than left to run
// unpaced.
func ValidateControllerType(controllerType congestion.Type, isConnectionPaced bool) congestion.Type {
	if controllerType == congestion.BBR && !isConnectionPaced {
		return congestion.Cubic
	}
	return controllerType
}

// New builds a TokenlessPacer for the given controller type and transport
// setting, wiring getBandwidth (the connection passes its
// bandwidthEstimate) into the token-bucket refill rate.
func New(controllerType congestion.Type, minCwndInMssFromSettings, maxDatagramSize protocol.ByteCount, getBandwidth func() uint64) *TokenlessPacer {
	cfg := SelectConfig(controllerType, minCwndInMssFromSettings)
	p := &TokenlessPacer{
		minCwndInMss: cfg.MinCwndInMss,
		maxDatagramSize: maxDatagramSize,
		experimentalPacer: cfg.ExperimentalPacer,
		defaultRttFactor: cfg.DefaultRttFactor,
		startupRttFactor: cfg.StartupRttFactor,
		fireLoopEarly: cfg.FireLoopEarly,
		getBandwidth: getBandwidth,
	}
	p.rebuildLimiter()
	return p
}

func (p *TokenlessPacer) rebuildLimiter() {
	bw := p.getBandwidth()
	minBurst := float64(p.minCwndInMss * p.maxDatagramSize)
	if bw == 0 {
		p.limiter = rate.NewLimiter(rate.Inf, int(minBurst))
		return
	}
	p.limiter = rate.NewLimiter(rate.Limit(bw), int(minBurst))
}

// Reset re-derives the token bucket from the current bandwidth estimate,
// called by writeChain when the congestion controller was app-limited-or-
// idle.
func (p *TokenlessPacer) Reset() {
	p.rebuildLimiter()
	p.lastSent = time.Time{}
}

// GetTimeUntilNextWrite reports the delay before the next burst may be
// sent, consulted by the write looper's pacing function. A zero duration means "write now".
func (p *TokenlessPacer) GetTimeUntilNextWrite(now time.Time) time.Duration {
	r := p.limiter.ReserveN(now, int(p.maxDatagramSize))
	if !r.OK() {
		return 0
	}
	delay := r.DelayFrom(now)
	r.CancelAt(now) // peek only; OnPacketSent below consumes for real
	if delay < 0 {
		return 0
	}
	return delay
}

// OnPacketSent consumes one datagram's worth of token-bucket budget for an
// actually-transmitted burst.
func (p *TokenlessPacer) OnPacketSent(now time.Time, size protocol.ByteCount) {
	p.limiter.ReserveN(now, int(size))
	p.lastSent = now
}

// IsExperimental reports whether the BBR2/BBRTesting pacer overrides are
// active, surfaced for qlog/observer detail.
func (p *TokenlessPacer) IsExperimental() bool { return p.experimentalPacer }
func (p *TokenlessPacer) FireLoopEarly() bool { return p.fireLoopEarly }
