// Package congestion defines the congestion-controller collaborator
// surface the connection core drives. Grounded on
// quic-go's congestion.SendAlgorithm interface and congestion/bbr package
// naming.
package congestion

import (
	"time"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// Type names the algorithm a Controller implements. The math behind BBR,
// BBR2 and Cubic is an external collaborator's job; the core only needs to
// know which Type is active to pick a pacer.
type Type uint8

const (
	Cubic Type = iota
	Reno
	BBR
	BBRTesting
	BBR2
)

func (t Type) String() string {
	switch t {
	case Cubic:
		return "cubic"
	case Reno:
		return "reno"
	case BBR:
		return "bbr"
	case BBRTesting:
		return "bbr_testing"
	case BBR2:
		return "bbr2"
	default:
		return "unknown"
	}
}

// IsBBRFamily reports whether t is any BBR variant, which is the condition
// keys pacer minCwnd selection off of.
func (t Type) IsBBRFamily() bool { return t == BBR || t == BBRTesting || t == BBR2 }

// Controller is the minimal surface the connection core needs from a
// congestion controller: current window, in-flight accounting and
// app-limited signaling. A concrete algorithm is injected by the caller of
// this module; none is implemented here.
type Controller interface {
	Type() Type
	GetCongestionWindow() protocol.ByteCount
	BytesInFlight() protocol.ByteCount
	OnPacketSent(sentTime time.Time, bytesInFlight, size protocol.ByteCount, isRetransmittable bool)
	OnPacketAcked(number protocol.PacketNumber, ackedBytes protocol.ByteCount, priorInFlight protocol.ByteCount, eventTime time.Time)
	OnAppLimited(limited bool)
	IsAppLimited() bool
	TimeUntilSend(bytesInFlight protocol.ByteCount) time.Time
}

// Factory constructs a Controller of the requested Type, replacing the
// active controller on type change.
type Factory interface {
	New(t Type, initialMaxDatagramSize protocol.ByteCount) Controller
}
