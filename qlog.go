package mvfst

import "github.com/Harvey-Liu/mvfst/internal/qlogwriter"

// qlogAdapter adapts *qlogwriter.Writer's CloseSummary-struct API to the
// positional-argument QLogSink interface the core calls through, so a
// caller can wire NewQLogSink(qlogwriter.New(w)) directly into
// AttachCollaborators without hand-rolling the adapter themselves.
type qlogAdapter struct {
	w *qlogwriter.Writer
}

// NewQLogSink wraps a qlogwriter.Writer as a QLogSink.
func NewQLogSink(w *qlogwriter.Writer) QLogSink {
	return &qlogAdapter{w: w}
}

func (a *qlogAdapter) EmitCloseSummary(bytesSent, bytesReceived int64, cancelCode uint64, isAppError bool) {
	a.w.EmitCloseSummary(qlogwriter.CloseSummary{
		BytesSent:     bytesSent,
		BytesReceived: bytesReceived,
		CancelCode:    cancelCode,
		IsAppError:    isAppError,
	})
}

func (a *qlogAdapter) EmitECNTransition(from, to string) {
	a.w.EmitECNTransition(from, to)
}
