// Package mvfst implements the connection-level transport core of a QUIC
// endpoint: the object that owns a single connection's mutable state and
// drives it between the network and the application.
//
// The core orchestrates a protocol state machine, a timer-driven scheduler
// (loss detection, ack, idle/keepalive, path validation, drain, pacing),
// per-stream flow control and congestion-controlled pacing, a callback
// dispatch fabric, and a disciplined connection-close protocol. Everything
// it does not own -- the cryptographic handshake, packet codec, frame
// scheduler, congestion controller math, UDP socket, event loop, qlog sink,
// and loss-detection math -- is expressed as an interface in interfaces.go.
package mvfst
