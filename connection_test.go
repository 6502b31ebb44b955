package mvfst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

func newTestConnection(t *testing.T) (*Connection, *mockEventLoop, *mockSocket) {
	t.Helper()
	loop := &mockEventLoop{}
	sock := &mockSocket{}
	settings := DefaultTransportSettings()
	c := NewConnection(protocol.PerspectiveClient, &settings, sock, loop, nil)
	c.AttachCollaborators(&mockPacketDecoder{}, &mockFrameScheduler{}, &mockLossDetector{}, &mockQLogSink{})
	return c, loop, sock
}

func TestNewConnectionStartsOpen(t *testing.T) {
	c, _, _ := newTestConnection(t)
	assert.Equal(t, Open, c.closeState)
	assert.True(t, c.good())
}

func TestNewConnectionDowngradesUnpacedBBR(t *testing.T) {
	loop := &mockEventLoop{}
	sock := &mockSocket{}
	settings := DefaultTransportSettings()
	settings.CongestionControllerType = 2 // congestion.BBR
	settings.IsConnectionPaced = false
	c := NewConnection(protocol.PerspectiveServer, &settings, sock, loop, nil)
	assert.Equal(t, "cubic", c.settings.CongestionControllerType.String())
	assert.Nil(t, c.pacer)
}

func TestNotifyTransportReadyFiresOnce(t *testing.T) {
	c, _, _ := newTestConnection(t)
	cb := &mockConnectionSetupCallback{}
	c.SetConnectionSetupCallback(cb)
	c.notifyTransportReady()
	c.notifyTransportReady()
	assert.True(t, cb.Ready)
	assert.True(t, c.transportReadyNotified)
}

func TestGoodReflectsCloseState(t *testing.T) {
	c, _, _ := newTestConnection(t)
	require.True(t, c.good())
	c.closeNow(quicErrorNoError())
	assert.False(t, c.good())
}
