package streams

// Priority is the RFC 9218-shaped extensible priority: a level (lower is
// more urgent) plus an incremental flag. Grounded on quic-go's priorities.go
// / priority_states.go, generalized to the level+incremental pair carried
// on Stream.
type Priority struct {
	Level uint8
	Incremental bool
}

// DefaultPriority matches HTTP's default urgency (RFC 9218 §4).
var DefaultPriority = Priority{Level: 3, Incremental: false}
