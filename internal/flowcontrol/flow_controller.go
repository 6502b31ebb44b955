// Package flowcontrol implements per-stream and per-connection flow
// control window bookkeeping. Grounded on quic-go's internal/flowcontrol
// (base_flow_controller.go, flow_controller.go, stream_flow_controller.go).
package flowcontrol

import "github.com/Harvey-Liu/mvfst/internal/protocol"

// WindowUpdateFn is invoked when a receive window increment must be
// advertised to the peer (a MAX_STREAM_DATA / MAX_DATA update); the core's
// framer collaborator owns actually sending it.
type WindowUpdateFn func(newOffset protocol.ByteCount)

// FlowController tracks one side's send/receive window, for either a
// single stream or the whole connection. It never touches wire encoding.
type FlowController struct {
	windowSize                protocol.ByteCount
	peerAdvertisedMaxOffset   protocol.ByteCount // how much we're allowed to send
	advertisedMaxOffset       protocol.ByteCount // how much we've told the peer it may send
	bytesSent                 protocol.ByteCount
	bytesReceived              protocol.ByteCount
	onWindowUpdate            WindowUpdateFn
}

// New creates a flow controller with the given initial receive window; the
// peer's advertised send window starts at the value it announced in its
// transport parameters.
func New(receiveWindow, peerSendWindow protocol.ByteCount, onWindowUpdate WindowUpdateFn) *FlowController {
	return &FlowController{
		windowSize:              receiveWindow,
		advertisedMaxOffset:     receiveWindow,
		peerAdvertisedMaxOffset: peerSendWindow,
		onWindowUpdate:          onWindowUpdate,
	}
}

// AddBytesSent records locally-sent stream/connection data.
func (f *FlowController) AddBytesSent(n protocol.ByteCount) { f.bytesSent += n }

// SendWindowSize reports how many more bytes may currently be sent without
// exceeding the peer's advertised window; never negative.
func (f *FlowController) SendWindowSize() protocol.ByteCount {
	if f.bytesSent >= f.peerAdvertisedMaxOffset {
		return 0
	}
	return f.peerAdvertisedMaxOffset - f.bytesSent
}

// UpdateSendWindow applies a MAX_DATA / MAX_STREAM_DATA frame from the
// peer; returns whether the window actually grew (frames may arrive
// out of order or be duplicated).
func (f *FlowController) UpdateSendWindow(newOffset protocol.ByteCount) bool {
	if newOffset <= f.peerAdvertisedMaxOffset {
		return false
	}
	f.peerAdvertisedMaxOffset = newOffset
	return true
}

// AddBytesReceived records locally-received stream/connection data and
// returns true if the receive window should be extended and re-advertised.
func (f *FlowController) AddBytesReceived(n protocol.ByteCount) bool {
	f.bytesReceived += n
	return f.shouldUpdateWindow()
}

// shouldUpdateWindow implements the classic "consumed more than half the
// window" auto-tuning heuristic.
func (f *FlowController) shouldUpdateWindow() bool {
	remaining := f.advertisedMaxOffset - f.bytesReceived
	return remaining < f.windowSize/2
}

// MaybeUpdateWindow extends and re-advertises the receive window if the
// auto-tuning heuristic fires, invoking onWindowUpdate.
func (f *FlowController) MaybeUpdateWindow() {
	if !f.shouldUpdateWindow() {
		return
	}
	f.advertisedMaxOffset = f.bytesReceived + f.windowSize
	if f.onWindowUpdate != nil {
		f.onWindowUpdate(f.advertisedMaxOffset)
	}
}

// SetWindowSize changes the receive window size, e.g. via
// setConnectionFlowControlWindow / setStreamFlowControlWindow.
func (f *FlowController) SetWindowSize(size protocol.ByteCount) {
	if size < f.windowSize {
		return // never shrink an already-advertised window
	}
	f.windowSize = size
	f.MaybeUpdateWindow()
}

// WindowSize reports the configured receive window size.
func (f *FlowController) WindowSize() protocol.ByteCount { return f.windowSize }

// PeerAdvertisedMaxOffset reports the current send-side limit.
func (f *FlowController) PeerAdvertisedMaxOffset() protocol.ByteCount { return f.peerAdvertisedMaxOffset }

// AdvertisedMaxOffset reports the current receive-side limit we've told the peer.
func (f *FlowController) AdvertisedMaxOffset() protocol.ByteCount { return f.advertisedMaxOffset }

// BytesSent reports cumulative bytes sent under this controller.
func (f *FlowController) BytesSent() protocol.ByteCount { return f.bytesSent }

// BytesReceived reports cumulative bytes received under this controller.
func (f *FlowController) BytesReceived() protocol.ByteCount { return f.bytesReceived }
