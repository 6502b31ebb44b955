package mvfst

import (
	"time"

	"github.com/Harvey-Liu/mvfst/internal/congestion"
	"github.com/Harvey-Liu/mvfst/internal/pacing"
)

// SetCongestionControl replaces the active congestion controller by type,
// re-running the same BBR-without-pacing downgrade and pacer construction
// NewConnection performs for the initial controller.
func (c *Connection) SetCongestionControl(t congestion.Type) {
	ct := pacing.ValidateControllerType(t, c.settings.IsConnectionPaced)
	c.settings.CongestionControllerType = ct
	c.congestionController = c.congestionFactory.New(ct, c.settings.UdpSendPacketLen)
	if c.settings.IsConnectionPaced {
		c.pacer = pacing.New(ct, c.settings.MinCwndInMss, c.settings.UdpSendPacketLen, c.bandwidthEstimate)
	}
}

// SetTransportSettings replaces the connection's TransportSettings after
// validating it and populating defaults for any zero-valued field, the same
// merge NewConnection performs at construction. The congestion controller
// is re-derived through SetCongestionControl so a mid-connection settings
// change ends up consistent with what a fresh connection would compute.
func (c *Connection) SetTransportSettings(s TransportSettings) error {
	if err := ValidateTransportSettings(&s); err != nil {
		return err
	}
	populated := PopulateTransportSettings(&s)
	c.settings = *populated
	c.SetCongestionControl(c.settings.CongestionControllerType)
	return nil
}

// SetMaxPacingRate caps the pacer's bandwidth estimate at bps; zero removes
// the cap.
func (c *Connection) SetMaxPacingRate(bps uint64) {
	c.settings.MaxPacingRateBytesPerSec = bps
}

// SetPacingTimer floors the delay the write looper waits between pacing
// checks; a zero duration restores consulting the pacer on every attempt.
func (c *Connection) SetPacingTimer(d time.Duration) {
	c.settings.PacingTickInterval = d
}

// SetAckRxTimestampsEnabled toggles negotiation of the
// ACK_RECEIVE_TIMESTAMPS transport parameter.
func (c *Connection) SetAckRxTimestampsEnabled(enabled bool) {
	c.settings.AckRxTimestampsEnabled = enabled
}

// SetThrottlingSignalProvider installs an external throttle-signal
// collaborator the pacer additionally consults.
func (c *Connection) SetThrottlingSignalProvider(p ThrottlingSignalProvider) {
	c.throttlingProvider = p
}
