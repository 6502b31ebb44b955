package mvfst

import "github.com/Harvey-Liu/mvfst/internal/protocol"

// Priority is the root-level, wire-independent priority pair exposed to
// callers of SetStreamPriority, mirroring internal/streams.Priority.
type Priority struct {
	Level uint8
	Incremental bool
}

// DefaultPriority matches internal/streams.DefaultPriority.
var DefaultPriority = Priority{Level: 3, Incremental: false}

// SetBackgroundModeParameters enables background-mode stream
// prioritization: a non-control stream whose level is at or below
// maxPriority has factor added to its level (capped at 255).
func (c *Connection) SetBackgroundModeParameters(maxPriority uint8, factor float64) {
	c.backgroundMode.enabled = true
	c.backgroundMode.maxPriority = maxPriority
	c.backgroundMode.factor = factor
}

// ClearBackgroundModeParameters disables background-mode prioritization.
func (c *Connection) ClearBackgroundModeParameters() {
	c.backgroundMode.enabled = false
}

// effectivePriority returns the priority the scheduler should actually use
// for a stream, folding in background-mode's demotion factor.
func (c *Connection) effectivePriority(id protocol.StreamID) Priority {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return DefaultPriority
	}
	p := Priority{Level: st.Priority.Level, Incremental: st.Priority.Incremental}
	if st.IsControl || !c.backgroundMode.enabled || p.Level > c.backgroundMode.maxPriority {
		return p
	}
	demoted := float64(p.Level) + c.backgroundMode.factor
	if demoted > 255 {
		demoted = 255
	}
	p.Level = uint8(demoted)
	return p
}
