package mvfst

// knobSpaceTransportInternal is the reserved knob space handled entirely
// within the transport rather than forwarded to the application.
const knobSpaceTransportInternal = 0

// SetKnobCallback installs the application's KnobCallback (External
// Interfaces, setKnobCallback).
func (c *Connection) SetKnobCallback(cb KnobCallback) { c.knobCallback = cb }

// SetKnob queues an outgoing knob frame for delivery to the peer on the
// next write pass (External Interfaces, setKnob()).
func (c *Connection) SetKnob(space, id uint64, blob []byte) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	if !c.knobsAdvertised {
		c.logger.Debugf("knob frame dropped, not advertised by peer: space=%d id=%d", space, id)
		return newLocalError(KnobFrameUnsupported)
	}
	c.pendingEvents.Knobs = append(c.pendingEvents.Knobs, pendingKnob{Space: space, ID: id, Blob: blob})
	c.writeLooper.Run()
	return nil
}

// dispatchKnob routes one received knob frame: space 0 is
// transport-internal and handled by onTransportKnobs; any other
// space reaches the application's OnKnob only if a callback is installed,
// otherwise it is silently dropped with a log line.
func (c *Connection) dispatchKnob(k pendingKnob) {
	for _, o := range c.observers {
		o.OnKnobReceived(k.Space, k.ID, k.Blob)
	}
	if k.Space == knobSpaceTransportInternal {
		if c.knobCallback != nil {
			c.knobCallback.OnTransportKnobs(k.Blob)
		}
		return
	}
	if c.knobCallback == nil {
		c.logger.Debugf("knob frame dropped, no application callback: space=%d id=%d", k.Space, k.ID)
		return
	}
	c.knobCallback.OnKnob(k.Space, k.ID, k.Blob)
}
