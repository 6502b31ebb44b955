// Package qlogwriter streams qlog-style connection events as newline-
// delimited JSON, using gojay for allocation-light encoding on the hot
// path (every ACK-eliciting packet can produce an event). Grounded on
// quic-go's qlog package and its use of github.com/francoispqt/gojay.
package qlogwriter

import (
	"io"
	"time"

	"github.com/francoispqt/gojay"
)

// Sink is the generic event-emitting interface *Writer satisfies; every
// method on a nil *Writer is a no-op. The connection core itself writes
// through its own QLogSink adapter (qlog.go), not through Sink.
type Sink interface {
	Emit(category, name string, fields map[string]any)
}

// Writer emits one JSON object per line to an underlying io.Writer.
type Writer struct {
	out io.Writer
}

// New wraps out; a nil out makes every Emit a no-op.
func New(out io.Writer) *Writer { return &Writer{out: out} }

type event struct {
	time time.Time
	category string
	name string
	fields map[string]any
}

// MarshalJSONObject implements gojay.MarshalerJSONObject.
func (e *event) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Int64Key("time_us", e.time.UnixMicro())
	enc.StringKey("category", e.category)
	enc.StringKey("name", e.name)
	enc.ObjectKey("data", (*fieldMap)(&e.fields))
}

func (e *event) IsNil() bool { return e == nil }

type fieldMap map[string]any

func (m *fieldMap) MarshalJSONObject(enc *gojay.Encoder) {
	for k, v := range *m {
		switch val := v.(type) {
		case string:
			enc.StringKey(k, val)
		case int:
			enc.IntKey(k, val)
		case int64:
			enc.Int64Key(k, val)
		case uint64:
			enc.Int64Key(k, int64(val))
		case bool:
			enc.BoolKey(k, val)
		case float64:
			enc.Float64Key(k, val)
		default:
			enc.StringKey(k, "")
		}
	}
}

func (m *fieldMap) IsNil() bool { return m == nil || len(*m) == 0 }

// Emit writes one qlog event line. Safe to call on a nil *Writer.
func (w *Writer) Emit(category, name string, fields map[string]any) {
	if w == nil || w.out == nil {
		return
	}
	e := &event{time: time.Now(), category: category, name: name, fields: fields}
	enc := gojay.BorrowEncoder(w.out)
	defer enc.Release()
	if err := enc.EncodeObject(e); err != nil {
		return
	}
	io.WriteString(w.out, "\n")
}

// CloseSummary is the payload of the "connectivity:connection_closed" qlog
// event; the root package's qlog adapter fills it from the totals closeImpl
// passes to EmitCloseSummary after the connection has entered Closed.
type CloseSummary struct {
	BytesSent, BytesReceived int64
	PacketsSent, PacketsReceived int64
	SmoothedRTT time.Duration
	CancelCode uint64
	IsAppError bool
}

// EmitCloseSummary writes the connection-closed qlog event.
func (w *Writer) EmitCloseSummary(s CloseSummary) {
	w.Emit("connectivity", "connection_closed", map[string]any{
			"bytes_sent": s.BytesSent,
			"bytes_received": s.BytesReceived,
			"packets_sent": s.PacketsSent,
			"packets_received": s.PacketsReceived,
			"smoothed_rtt_us": s.SmoothedRTT.Microseconds(),
			"cancel_code": int64(s.CancelCode),
			"is_app_error": s.IsAppError,
	})
}

// EmitECNTransition writes an ECN-state-machine transition event.
func (w *Writer) EmitECNTransition(from, to string) {
	w.Emit("recovery", "ecn_state_updated", map[string]any{"old": from, "new": to})
}
