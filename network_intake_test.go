package mvfst

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

func TestOnNetworkDataNotifiesTransportReadyOnce(t *testing.T) {
	c, _, _ := newTestConnection(t)
	decoder := &mockPacketDecoder{AckStateChanged: true}
	c.decoder = decoder
	setup := &mockConnectionSetupCallback{}
	c.SetConnectionSetupCallback(setup)

	c.OnNetworkData(&net.UDPAddr{}, []byte("packet"), protocol.ECNNon, time.Now())

	assert.True(t, setup.Ready)
	assert.Equal(t, 1, decoder.Calls)
	assert.Equal(t, int64(len("packet")), c.totalBytesRecvd)
}

func TestOnNetworkDataDispatchesReadable(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.decoder = &mockPacketDecoder{AckStateChanged: true}
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	rcb := &mockReadCallback{}
	require.NoError(t, c.SetReadCallback(id, rcb, nil))
	st, _ := c.streamMgr.GetStream(id)
	st.ReadBuffer = []byte("data")
	c.streamMgr.MarkReadable(id, true)

	c.OnNetworkData(&net.UDPAddr{}, []byte("p"), protocol.ECNNon, time.Now())

	assert.Contains(t, rcb.Available, id)
}

func TestOnNetworkDataClosesOnDecodeError(t *testing.T) {
	c, loop, sock := newTestConnection(t)
	c.decoder = &mockPacketDecoder{Err: assertErr{"bad packet"}}

	c.OnNetworkData(&net.UDPAddr{}, []byte("p"), protocol.ECNNon, time.Now())

	assert.Equal(t, Closed, c.closeState)
	// A decode error closes with draining: the socket stays bound until
	// the drain timer fires.
	assert.False(t, sock.Closed)
	loop.FireDelayed()
	assert.True(t, sock.Closed)
}

func TestOnNetworkDataNoopWhenClosed(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.closeState = Closed
	decoder := &mockPacketDecoder{}
	c.decoder = decoder

	c.OnNetworkData(&net.UDPAddr{}, []byte("p"), protocol.ECNNon, time.Now())

	assert.Equal(t, 0, decoder.Calls)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
