// Package monotime provides a monotonic-clock timestamp type, so that timer
// arithmetic in the connection core is never perturbed by wall-clock steps
// (NTP adjustments, leap seconds). Modeled on quic-go's internal/monotime.
package monotime

import "time"

// Time is a point in monotonic time. The zero value means "unset", matching
// the connection core's convention of using a zero deadline to mean "no
// timer wanted".
type Time struct {
	t time.Time
}

// Now returns the current monotonic time.
func Now() Time { return Time{t: time.Now()} }

// FromDuration constructs a synthetic Time offset from the zero value; used
// by tests and by deadlineSendImmediately-style sentinels.
func FromDuration(d time.Duration) Time { return Time{t: time.Time{}.Add(d)} }

func (t Time) IsZero() bool { return t.t.IsZero() }

func (t Time) Add(d time.Duration) Time { return Time{t: t.t.Add(d)} }

func (t Time) Sub(u Time) time.Duration { return t.t.Sub(u.t) }

func (t Time) Before(u Time) bool { return t.t.Before(u.t) }

func (t Time) After(u Time) bool { return t.t.After(u.t) }

func (t Time) Equal(u Time) bool { return t.t.Equal(u.t) }

func Since(t Time) time.Duration { return time.Since(t.t) }

// AsTime exposes the underlying wall-clock value, needed only at the
// boundary where a stdlib timer must be armed.
func (t Time) AsTime() time.Time { return t.t }
