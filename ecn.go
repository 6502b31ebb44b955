package mvfst

import "github.com/Harvey-Liu/mvfst/internal/protocol"

// ecnValidationThreshold is the minimum number of ack-eliciting packets
// that must be observed before the validator will commit to ECN or L4S.
const ecnValidationThreshold = 10

// EcnL4sTracker is the PacketProcessor installed on successful L4S
// validation; it has no cmsgs of its own to attach and exists purely as
// an installed marker other collaborators can type-assert for.
type EcnL4sTracker struct{}

func (EcnL4sTracker) OnPacketReceived(protocol.ECN) {}
func (EcnL4sTracker) PreWrite() CmsgSupplier { return nil }

// onEcnPacketProcessed drives the ECN/L4S validator state machine:
// attempt ECT(0) (or ECT(1) for L4S) marking, and after
// ecnValidationThreshold ack-eliciting packets, commit to Validated* or fall
// back to FailedValidation (clearing the TOS ECN nibble) by the rule in
// commitEcnValidation.
func (c *Connection) onEcnPacketProcessed(echoed protocol.ECN) {
	switch c.ecnState {
	case ECNNotAttempted:
		if c.settings.UseL4sEcn {
			c.ecnState = ECNAttemptingL4S
			c.socketTOSECN = protocol.ECNECT1
		} else if c.settings.UseECN {
			c.ecnState = ECNAttemptingECN
			c.socketTOSECN = protocol.ECNECT0
		} else {
			return
		}
		c.applySocketTOS()
	case ECNAttemptingECN, ECNAttemptingL4S:
		if c.ecnCounts.totalAckElicitingSent < ecnValidationThreshold {
			return
		}
		c.commitEcnValidation(echoed)
	}
}

// commitEcnValidation decides, after ecnValidationThreshold ack-eliciting
// packets have been sent, whether the echoed codepoints are consistent with
// the attempted path. CE is a legitimate counted mark on both paths (a
// congestion signal, not a validation failure); only echoing the wrong
// non-CE codepoint fails validation. markedPacketCount must fall within
// [ecnValidationThreshold, totalAckElicitingSent] since every ack-eliciting
// packet sent is either unmarked, or echoed back as ECT0/ECT1/CE.
func (c *Connection) commitEcnValidation(echoed protocol.ECN) {
	wantECT0 := c.ecnState == ECNAttemptingECN
	wantECT1 := c.ecnState == ECNAttemptingL4S
	markedPacketCount := c.ecnCounts.ceEchoed + c.ecnCounts.ect0Echoed + c.ecnCounts.ect1Echoed
	inRange := markedPacketCount >= ecnValidationThreshold && markedPacketCount <= c.ecnCounts.totalAckElicitingSent
	ok := inRange && ((wantECT0 && c.ecnCounts.ect1Echoed == 0) ||
		(wantECT1 && c.ecnCounts.ect0Echoed == 0))
	if !ok {
		c.failEcnValidation()
		return
	}
	from := c.ecnState.String()
	if wantECT0 {
		c.ecnState = ECNValidatedECN
	} else {
		c.ecnState = ECNValidatedL4S
		c.AddPacketProcessor(EcnL4sTracker{})
	}
	if c.qlog != nil {
		c.qlog.EmitECNTransition(from, c.ecnState.String())
	}
}

func (c *Connection) failEcnValidation() {
	from := c.ecnState.String()
	c.ecnState = ECNFailedValidation
	c.socketTOSECN = protocol.ECNNon
	c.applySocketTOS()
	if c.qlog != nil {
		c.qlog.EmitECNTransition(from, c.ecnState.String())
	}
}

func (c *Connection) applySocketTOS() {
	if c.socket == nil {
		return
	}
	c.socket.SetTOS(c.socketTOSDscp, uint8(c.socketTOSECN))
}
