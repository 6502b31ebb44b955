package congestion

import (
	"time"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// defaultController is a minimal stand-in congestion controller used when
// no external collaborator supplies one (e.g. in tests). It implements
// slow-start growth only: the window grows on every ack, whether or not
// the app-limited flag is set. Real Cubic/BBR math is left to an external
// collaborator.
type defaultController struct {
	kind Type
	maxDatagramSize protocol.ByteCount
	congestionWindow protocol.ByteCount
	bytesInFlight protocol.ByteCount
	appLimited bool
}

// NewDefault constructs the connection core's fallback controller. Real
// deployments inject their own Factory.
func NewDefault(kind Type, initialMaxDatagramSize protocol.ByteCount) Controller {
	return &defaultController{
		kind: kind,
		maxDatagramSize: initialMaxDatagramSize,
		congestionWindow: 10 * initialMaxDatagramSize,
	}
}

func (c *defaultController) Type() Type { return c.kind }

func (c *defaultController) GetCongestionWindow() protocol.ByteCount { return c.congestionWindow }

func (c *defaultController) BytesInFlight() protocol.ByteCount { return c.bytesInFlight }

func (c *defaultController) OnPacketSent(_ time.Time, bytesInFlight, size protocol.ByteCount, isRetransmittable bool) {
	if !isRetransmittable {
		return
	}
	c.bytesInFlight = bytesInFlight + size
}

func (c *defaultController) OnPacketAcked(_ protocol.PacketNumber, ackedBytes, _ protocol.ByteCount, _ time.Time) {
	if c.bytesInFlight >= ackedBytes {
		c.bytesInFlight -= ackedBytes
	} else {
		c.bytesInFlight = 0
	}
	// slow start: grow by one MSS per acked MSS-worth of data.
	c.congestionWindow += ackedBytes
}

func (c *defaultController) OnAppLimited(limited bool) { c.appLimited = limited }

func (c *defaultController) IsAppLimited() bool { return c.appLimited }

func (c *defaultController) TimeUntilSend(bytesInFlight protocol.ByteCount) time.Time {
	if bytesInFlight < c.congestionWindow {
		return time.Time{}
	}
	return time.Now().Add(protocol.TimerGranularity)
}

type defaultFactory struct{}

// DefaultFactory builds defaultController instances.
var DefaultFactory Factory = defaultFactory{}

func (defaultFactory) New(t Type, initialMaxDatagramSize protocol.ByteCount) Controller {
	return NewDefault(t, initialMaxDatagramSize)
}
