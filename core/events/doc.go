// Package events defines the pipeline events emitted on the event bus.
//
// Available event types:
//   - StageEvent: one pipeline stage finished, with its duration and error
package events
