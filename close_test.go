package mvfst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

)

func TestCloseNowClosesImmediately(t *testing.T) {
	c, _, sock := newTestConnection(t)
	endCB := &mockConnectionEndCallback{}
	c.SetConnectionEndCallback(endCB)

	c.CloseNow(nil)

	assert.Equal(t, Closed, c.closeState)
	assert.True(t, endCB.Ended)
	assert.True(t, sock.Closed)
}

func TestCloseGracefullyWaitsForOpenStreams(t *testing.T) {
	c, _, sock := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)

	c.Close(nil)
	assert.Equal(t, GracefulClosing, c.closeState)
	assert.False(t, sock.Closed)

	c.streamMgr.MarkClosed(id)
	c.checkForClosedStream()

	assert.Equal(t, Closed, c.closeState)
}

func TestCloseGracefullyWithNoStreamsClosesNow(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.Close(nil)
	assert.Equal(t, Closed, c.closeState)
}

func TestCloseImplIsIdempotent(t *testing.T) {
	c, _, sock := newTestConnection(t)
	c.CloseNow(nil)
	sock.Closed = false // observe that a second close doesn't re-close
	c.CloseNow(nil)
	assert.False(t, sock.Closed)
}

func TestCloseCancelsAppCallbacks(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	rcb := &mockReadCallback{}
	require.NoError(t, c.SetReadCallback(id, rcb, nil))

	c.CloseNow(nil)

	require.Len(t, rcb.Errors, 1)
}
