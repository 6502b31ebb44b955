package mvfst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

)

func TestSetKnobRejectedWhenNotAdvertised(t *testing.T) {
	c, _, _ := newTestConnection(t)
	err := c.SetKnob(1, 2, []byte("x"))
	assert.Error(t, err)
}

func TestSetKnobQueuesFrameWhenAdvertised(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.knobsAdvertised = true
	require.NoError(t, c.SetKnob(1, 2, []byte("x")))
	require.Len(t, c.pendingEvents.Knobs, 1)
	assert.Equal(t, uint64(1), c.pendingEvents.Knobs[0].Space)
}

func TestDispatchKnobRoutesSpaceZeroToTransportKnobs(t *testing.T) {
	c, _, _ := newTestConnection(t)
	kcb := &mockKnobCallback{}
	c.SetKnobCallback(kcb)

	c.dispatchKnob(pendingKnob{Space: knobSpaceTransportInternal, ID: 0, Blob: []byte("blob")})

	require.Len(t, kcb.TransportKnobs, 1)
	assert.Empty(t, kcb.Knobs)
}

func TestDispatchKnobRoutesOtherSpacesToApp(t *testing.T) {
	c, _, _ := newTestConnection(t)
	kcb := &mockKnobCallback{}
	c.SetKnobCallback(kcb)

	c.dispatchKnob(pendingKnob{Space: 5, ID: 9, Blob: []byte("blob")})

	require.Len(t, kcb.Knobs, 1)
	assert.Equal(t, uint64(5), kcb.Knobs[0].Space)
}

func TestDispatchKnobDropsSilentlyWithoutCallback(t *testing.T) {
	c, _, _ := newTestConnection(t)
	assert.NotPanics(t, func() {
		c.dispatchKnob(pendingKnob{Space: 5, ID: 9, Blob: []byte("blob")})
	})
}
