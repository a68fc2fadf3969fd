// Package logger implements the log routing core of a blink device:
// a queue-backed channel logger with flow-controlled transmission, a
// file-system logger with space-exhaustion recovery and cursor-tracked
// replay, and the Router that selects between them.
package logger

// Data flow: application code calls Router.Log(text), the Router picks
// exactly one sink (file system wins over the channel when both are
// enabled), and the sink either appends to the log file or enqueues
// for the background consumer to transmit.
//
// Replay streams unread file content to the channel in bounded chunks,
// advancing a byte cursor after each confirmed chunk. Only complete
// lines are ever replayed.
