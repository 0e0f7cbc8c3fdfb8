// Package orchestrator runs the feed: a Session owns the playback engine,
// the narrative state, and a background loop that watches the queue buffer
// and asks the selector for more items whenever it runs low.
package orchestrator
