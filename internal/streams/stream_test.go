package streams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/testutils"
)

func TestOpenBidirectionalStreamIDsAreMonotonicAndClientOwned(t *testing.T) {
	m := NewManager(protocol.PerspectiveClient)
	s1, ok := m.OpenBidirectionalStream(1000, 1000, nil)
	require.True(t, ok)
	s2, ok := m.OpenBidirectionalStream(1000, 1000, nil)
	require.True(t, ok)
	assert.Equal(t, s1.ID.InitiatedBy(), protocol.PerspectiveClient)
	assert.Less(t, s1.ID, s2.ID)
	assert.False(t, s1.ID.IsUniDirectional())
}

func TestOpenBidirectionalStreamRespectsLimit(t *testing.T) {
	m := NewManager(protocol.PerspectiveServer)
	m.maxLocalBidi = 1
	_, ok := m.OpenBidirectionalStream(1000, 1000, nil)
	require.True(t, ok)
	_, ok = m.OpenBidirectionalStream(1000, 1000, nil)
	assert.False(t, ok)
}

func TestGetOrOpenPeerStreamIsIdempotent(t *testing.T) {
	m := NewManager(protocol.PerspectiveServer)
	s1 := m.GetOrOpenPeerStream(4, 1000, 1000, nil)
	s2 := m.GetOrOpenPeerStream(4, 1000, 1000, nil)
	assert.Same(t, s1, s2)
}

func TestMarkAndSnapshotSetsAreSortedAndIndependent(t *testing.T) {
	m := NewManager(protocol.PerspectiveClient)
	m.MarkReadable(8, true)
	m.MarkReadable(4, true)
	m.MarkReadable(12, true)
	assert.Equal(t, []protocol.StreamID{4, 8, 12}, m.Readable())

	m.MarkReadable(8, false)
	assert.Equal(t, []protocol.StreamID{4, 12}, m.Readable())
	assert.Empty(t, m.Writable())
}

func TestDeleteStreamClearsAllSets(t *testing.T) {
	m := NewManager(protocol.PerspectiveClient)
	s, _ := m.OpenBidirectionalStream(1000, 1000, nil)
	m.MarkReadable(s.ID, true)
	m.MarkDeliverable(s.ID, true)
	m.DeleteStream(s.ID)
	assert.False(t, m.StreamExists(s.ID))
	assert.Empty(t, m.Readable())
	assert.Empty(t, m.Deliverable())
}

func TestSetLocalStreamLimitsOnlyGrows(t *testing.T) {
	m := NewManager(protocol.PerspectiveClient)
	bidiInc, uniInc := m.SetLocalStreamLimits(50, 50)
	assert.False(t, bidiInc)
	assert.False(t, uniInc)
	bidiInc, uniInc = m.SetLocalStreamLimits(200, 50)
	assert.True(t, bidiInc)
	assert.False(t, uniInc)
}

func TestConcurrentOpenAndMarkProduceNoLostUpdates(t *testing.T) {
	m := NewManager(protocol.PerspectiveClient)
	m.maxLocalBidi = 64

	const n = 32
	err := testutils.RunN(n, 1, func(i int) error {
		s, ok := m.OpenBidirectionalStream(1000, 1000, nil)
		if !ok {
			return nil
		}
		m.MarkReadable(s.ID, true)
		m.MarkDeliverable(s.ID, true)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, n, m.Count())
	assert.Len(t, m.Readable(), n)
	assert.Len(t, m.Deliverable(), n)
}

func TestConcurrentGetOrOpenPeerStreamIsIdempotent(t *testing.T) {
	m := NewManager(protocol.PerspectiveServer)
	results := make([]*Stream, 8)

	fns := make([]func() error, len(results))
	for i := range fns {
		i := i
		fns[i] = func() error {
			results[i] = m.GetOrOpenPeerStream(4, 1000, 1000, nil)
			return nil
		}
	}
	require.NoError(t, testutils.RunConcurrently(fns...))

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	assert.Equal(t, 1, m.Count())
}
