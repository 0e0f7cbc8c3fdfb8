// Package playback drives the downstream playback engine (mpv) through its
// line-delimited JSON IPC socket: process lifecycle, playlist mutation,
// transport control, status queries and the buffered-playtime estimate the
// scheduler polls. A Simulated implementation backs tests and engine-free
// dummy sessions.
//
// Transport failures are deliberately soft: a timed-out or malformed command
// invalidates the cached connection and reports no response, and the caller
// proceeds as if the command may or may not have taken effect. A dead command
// is acceptable, a dead client is not.
package playback
