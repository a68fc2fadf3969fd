// Package channel abstracts the byte-oriented duplex link a blink
// device exposes to its host (USB CDC on real hardware).
package channel

// A Channel accepts one transmit buffer at a time and reports
// completion asynchronously, mirroring how a USB device controller
// signals transfer-complete from interrupt context. Receiving is a
// non-blocking poll so a single goroutine can multiplex log draining
// and command handling.
//
// Implementations:
//   stream    - TCP listener serving one client at a time
//   mqtt      - MQTT topics via a broker
//   websocket - websocket connection
//   loopback  - in-memory pair, used by tests
