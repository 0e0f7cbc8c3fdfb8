// Package narrative tracks the rolling state of a playback session: bounded
// play history, mood trajectory and feedback, plus the direction and
// coherence knobs that steer selection. It also holds the deterministic
// keyword table that turns raw feedback into direction changes.
//
// The store performs pure bookkeeping with no I/O and no locking of its own;
// the orchestrator owns serialization.
package narrative
