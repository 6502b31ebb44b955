package mvfst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

)

func TestSetReadCallbackRejectsSecondInstall(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)

	rcb := &mockReadCallback{}
	require.NoError(t, c.SetReadCallback(id, rcb, nil))
	assert.Error(t, c.SetReadCallback(id, rcb, nil))
}

func TestSetReadCallbackNullWithoutExistingIsRejected(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	assert.Error(t, c.SetReadCallback(id, nil, nil))
}

func TestSetReadCallbackNullTriggersStopSending(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	rcb := &mockReadCallback{}
	require.NoError(t, c.SetReadCallback(id, rcb, nil))

	errCode := ApplicationErrorCode(7)
	require.NoError(t, c.SetReadCallback(id, nil, &errCode))

	assert.Contains(t, c.streamMgr.StopSendingPending(), id)
}

func TestSetReadCallbackAllowsPeerInitiatedUniStream(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id := c.streamMgr.GetOrOpenPeerStream(3, c.settings.StreamFlowControlWindow, 0, nil).ID
	rcb := &mockReadCallback{}
	require.NoError(t, c.SetReadCallback(id, rcb, nil))
}

func TestSetReadCallbackRejectsLocallyInitiatedUniStream(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateUnidirectionalStream()
	require.NoError(t, err)
	rcb := &mockReadCallback{}
	assert.Error(t, c.SetReadCallback(id, rcb, nil))
}

func TestPauseResumeReadTogglesPausedBit(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	rcb := &mockReadCallback{}
	require.NoError(t, c.SetReadCallback(id, rcb, nil))

	require.NoError(t, c.PauseRead(id))
	assert.True(t, c.callbacks.readCallbacks[id].paused)
	require.NoError(t, c.ResumeRead(id))
	assert.False(t, c.callbacks.readCallbacks[id].paused)
}

func TestNotifyPendingWriteOnConnectionRejectsDoubleInstall(t *testing.T) {
	c, _, _ := newTestConnection(t)
	wcb := &mockWriteCallback{}
	require.NoError(t, c.NotifyPendingWriteOnConnection(wcb))
	assert.Error(t, c.NotifyPendingWriteOnConnection(wcb))
}

func TestCancelAllAppCallbacksClearsRegistries(t *testing.T) {
	c, _, _ := newTestConnection(t)
	id, err := c.CreateBidirectionalStream()
	require.NoError(t, err)
	rcb := &mockReadCallback{}
	require.NoError(t, c.SetReadCallback(id, rcb, nil))

	c.cancelAllAppCallbacks(quicErrorNoError())

	require.Len(t, rcb.Errors, 1)
	assert.Empty(t, c.callbacks.readCallbacks)
}
