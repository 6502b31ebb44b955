// Hand-rolled fakes for the collaborator interfaces the connection core
// depends on, used by this package's tests in place of a generated mocking
// framework -- grounded on quic-go's use of small hand-written fakes in its
// internal test helpers alongside gomock, and on this module's decision to
// keep the collaborator surface small enough that a generator adds no value.
package mvfst

import (
	"net"
	"time"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// mockSocket is a fake Socket collaborator that records every write.
type mockSocket struct {
	Writes    [][]byte
	WriteAddr []net.Addr
	TOSCalls  [][2]uint8
	Closed    bool
	WriteErr  error
}

func (s *mockSocket) WriteTo(b []byte, addr net.Addr) (int, error) {
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	cp := append([]byte(nil), b...)
	s.Writes = append(s.Writes, cp)
	s.WriteAddr = append(s.WriteAddr, addr)
	return len(b), nil
}

func (s *mockSocket) LocalAddr() net.Addr { return &net.UDPAddr{} }

func (s *mockSocket) SetTOS(dscp, ecn uint8) error {
	s.TOSCalls = append(s.TOSCalls, [2]uint8{dscp, ecn})
	return nil
}

func (s *mockSocket) Close() error {
	s.Closed = true
	return nil
}

// mockEventLoop is a synchronous fake: RunInLoop and RunAsync execute fn
// immediately (there is no separate turn to defer to in a test), and
// RunAfter records the scheduled call without a real timer so tests can
// fire it manually via FireDelayed.
type mockEventLoop struct {
	Pending []func()
}

func (e *mockEventLoop) RunInLoop(fn func()) { fn() }
func (e *mockEventLoop) RunAsync(fn func())  { fn() }

func (e *mockEventLoop) RunAfter(d time.Duration, fn func()) (cancel func()) {
	e.Pending = append(e.Pending, fn)
	idx := len(e.Pending) - 1
	cancelled := false
	return func() {
		if !cancelled {
			e.Pending[idx] = nil
			cancelled = true
		}
	}
}

// FireDelayed runs and clears every RunAfter callback that hasn't been
// cancelled.
func (e *mockEventLoop) FireDelayed() {
	pending := e.Pending
	e.Pending = nil
	for _, fn := range pending {
		if fn != nil {
			fn()
		}
	}
}

// mockFrameScheduler is a fake FrameScheduler returning a canned result
// queue, repeating a zero-packet result once exhausted.
type mockFrameScheduler struct {
	Results []WriteResult
	idx     int
	Err     error
}

func (f *mockFrameScheduler) WriteData() (WriteResult, error) {
	if f.Err != nil {
		return WriteResult{}, f.Err
	}
	if f.idx >= len(f.Results) {
		return WriteResult{}, nil
	}
	r := f.Results[f.idx]
	f.idx++
	return r, nil
}

// mockPacketDecoder is a fake PacketDecoder.
type mockPacketDecoder struct {
	AckStateChanged bool
	Err             error
	Calls           int
}

func (d *mockPacketDecoder) OnReadData(peer net.Addr, packet []byte, ecn protocol.ECN, rcvTime time.Time) (bool, error) {
	d.Calls++
	return d.AckStateChanged, d.Err
}

// mockObserver is a fake Observer recording every notification.
type mockObserver struct {
	CloseStarted         int
	PacketsReceived      []int
	PacketsWritten       []int
	AppLimited           int
	StreamsClosed        []protocol.StreamID
	KnobsReceived        int
	ByteEventsRegistered int
}

func (o *mockObserver) OnCloseStarted()                    { o.CloseStarted++ }
func (o *mockObserver) OnPacketsReceived(count, bytes int)  { o.PacketsReceived = append(o.PacketsReceived, bytes) }
func (o *mockObserver) OnAcksProcessed(count int)           {}
func (o *mockObserver) OnPacketsWritten(bytes, packets int) { o.PacketsWritten = append(o.PacketsWritten, bytes) }
func (o *mockObserver) OnStartWritingFromAppLimited()       {}
func (o *mockObserver) OnAppRateLimited()                   { o.AppLimited++ }
func (o *mockObserver) OnStreamClosed(id protocol.StreamID) { o.StreamsClosed = append(o.StreamsClosed, id) }
func (o *mockObserver) OnKnobReceived(space, id uint64, blob []byte) { o.KnobsReceived++ }
func (o *mockObserver) OnByteEventRegistered(id protocol.StreamID, offset protocol.ByteCount, t ByteEventType) {
	o.ByteEventsRegistered++
}

// mockLossDetector is a fake LossDetector.
type mockLossDetector struct {
	AlarmErr     error
	AlarmCalls   int
	NextDeadline time.Time
}

func (l *mockLossDetector) OnLossDetectionAlarm() error {
	l.AlarmCalls++
	return l.AlarmErr
}

func (l *mockLossDetector) NextLossTimeout() time.Time { return l.NextDeadline }

// mockQLogSink is a fake QLogSink recording calls.
type mockQLogSink struct {
	CloseSummaries []mockCloseSummaryCall
	Transitions    [][2]string
}

type mockCloseSummaryCall struct {
	BytesSent, BytesReceived int64
	CancelCode               uint64
	IsAppError               bool
}

func (q *mockQLogSink) EmitCloseSummary(bytesSent, bytesReceived int64, cancelCode uint64, isAppError bool) {
	q.CloseSummaries = append(q.CloseSummaries, mockCloseSummaryCall{bytesSent, bytesReceived, cancelCode, isAppError})
}

func (q *mockQLogSink) EmitECNTransition(from, to string) {
	q.Transitions = append(q.Transitions, [2]string{from, to})
}

// mockCongestion is a fake congestion.Controller with a fixed window.
type mockCongestion struct {
	Window     protocol.ByteCount
	InFlight   protocol.ByteCount
	AppLimited bool
	SentCalls  int
	AckedCalls int
}

func (c *mockCongestion) GetCongestionWindow() protocol.ByteCount { return c.Window }
func (c *mockCongestion) BytesInFlight() protocol.ByteCount       { return c.InFlight }
func (c *mockCongestion) OnPacketSent(sentTime time.Time, bytesInFlight, size protocol.ByteCount, isRetransmittable bool) {
	c.SentCalls++
}
func (c *mockCongestion) OnPacketAcked(number protocol.PacketNumber, ackedBytes, priorInFlight protocol.ByteCount, eventTime time.Time) {
	c.AckedCalls++
}
func (c *mockCongestion) OnAppLimited(limited bool)                            { c.AppLimited = limited }
func (c *mockCongestion) IsAppLimited() bool                                   { return c.AppLimited }
func (c *mockCongestion) TimeUntilSend(bytesInFlight protocol.ByteCount) time.Time { return time.Time{} }

// mockReadCallback is a fake ReadCallback recording invocations.
type mockReadCallback struct {
	Available []protocol.StreamID
	Errors    []error
}

func (r *mockReadCallback) OnStreamReadAvailable(id protocol.StreamID) {
	r.Available = append(r.Available, id)
}

func (r *mockReadCallback) OnStreamReadError(id protocol.StreamID, err error) {
	r.Errors = append(r.Errors, err)
}

// mockWriteCallback is a fake WriteCallback recording invocations.
type mockWriteCallback struct {
	StreamReady  map[protocol.StreamID]protocol.ByteCount
	ConnReady    protocol.ByteCount
	ConnReadyHit bool
	Errors       []error
}

func (w *mockWriteCallback) OnStreamWriteReady(id protocol.StreamID, maxToWrite protocol.ByteCount) {
	if w.StreamReady == nil {
		w.StreamReady = make(map[protocol.StreamID]protocol.ByteCount)
	}
	w.StreamReady[id] = maxToWrite
}

func (w *mockWriteCallback) OnConnectionWriteReady(maxToWrite protocol.ByteCount) {
	w.ConnReady = maxToWrite
	w.ConnReadyHit = true
}

func (w *mockWriteCallback) OnStreamWriteError(id protocol.StreamID, err error) { w.Errors = append(w.Errors, err) }
func (w *mockWriteCallback) OnConnectionWriteError(err error)                  { w.Errors = append(w.Errors, err) }

// mockConnectionSetupCallback is a fake ConnectionSetupCallback.
type mockConnectionSetupCallback struct {
	Ready bool
	Err   error
}

func (c *mockConnectionSetupCallback) OnTransportReady()               { c.Ready = true }
func (c *mockConnectionSetupCallback) OnConnectionSetupError(err error) { c.Err = err }

// mockKnobCallback is a fake KnobCallback recording invocations.
type mockKnobCallback struct {
	Knobs          []struct{ Space, ID uint64 }
	TransportKnobs [][]byte
}

func (k *mockKnobCallback) OnKnob(space, id uint64, blob []byte) {
	k.Knobs = append(k.Knobs, struct{ Space, ID uint64 }{space, id})
}

func (k *mockKnobCallback) OnTransportKnobs(blob []byte) {
	k.TransportKnobs = append(k.TransportKnobs, blob)
}

// mockConnectionEndCallback is a fake ConnectionEndCallback.
type mockConnectionEndCallback struct {
	Ended     bool
	EndedWith *QuicError
}

func (c *mockConnectionEndCallback) OnConnectionEnd() { c.Ended = true }
func (c *mockConnectionEndCallback) OnConnectionEndWithError(err *QuicError) {
	c.Ended = true
	c.EndedWith = err
}
