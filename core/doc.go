// Package core contains the shared contracts and value types of dreamfeed:
// the immutable Item record, the condensed ItemContext projection handed to
// the selection model, the SelectionContext snapshot of narrative state, and
// the Manifest, Selector and Player interfaces implemented by the manifest,
// selector and playback packages.
//
// Rationale: keeping contracts centralized lets implementations live in
// sibling packages (and lets tests substitute simulated ones) without
// introducing dependency cycles.
package core
