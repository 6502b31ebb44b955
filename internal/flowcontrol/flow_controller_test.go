package flowcontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

func TestSendWindowSize(t *testing.T) {
	fc := New(1000, 500, nil)
	require.Equal(t, protocol.ByteCount(500), fc.SendWindowSize())
	fc.AddBytesSent(300)
	assert.Equal(t, protocol.ByteCount(200), fc.SendWindowSize())
	fc.AddBytesSent(200)
	assert.Equal(t, protocol.ByteCount(0), fc.SendWindowSize())
}

func TestSendWindowSizeNeverNegative(t *testing.T) {
	fc := New(1000, 100, nil)
	fc.AddBytesSent(150)
	assert.Equal(t, protocol.ByteCount(0), fc.SendWindowSize())
}

func TestUpdateSendWindowIgnoresSmallerOffsets(t *testing.T) {
	fc := New(1000, 500, nil)
	assert.False(t, fc.UpdateSendWindow(400))
	assert.Equal(t, protocol.ByteCount(500), fc.PeerAdvertisedMaxOffset())
	assert.True(t, fc.UpdateSendWindow(900))
	assert.Equal(t, protocol.ByteCount(900), fc.PeerAdvertisedMaxOffset())
}

func TestReceiveWindowAutoTunes(t *testing.T) {
	var updated protocol.ByteCount
	fc := New(1000, 0, func(newOffset protocol.ByteCount) { updated = newOffset })
	assert.False(t, fc.AddBytesReceived(400))
	assert.True(t, fc.AddBytesReceived(200)) // 600 received, 400 remaining < 500
	fc.MaybeUpdateWindow()
	assert.Equal(t, protocol.ByteCount(1600), updated)
	assert.Equal(t, updated, fc.AdvertisedMaxOffset())
}

func TestSetWindowSizeNeverShrinks(t *testing.T) {
	fc := New(1000, 0, nil)
	fc.SetWindowSize(500)
	assert.Equal(t, protocol.ByteCount(1000), fc.WindowSize())
	fc.SetWindowSize(2000)
	assert.Equal(t, protocol.ByteCount(2000), fc.WindowSize())
}
