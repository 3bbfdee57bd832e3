// Package progress defines the progress events a reconciliation run
// emits and the sinks and codecs that carry them to a consumer.
//
// Each event kind is its own struct; the wire form is a JSON object with a
// "type" tag, framed as server-sent events or newline-delimited JSON.
// Decoders return Unknown for tags they do not recognize.
//
// A stream ends with exactly one Complete or Error event. AsyncSink never
// blocks the producer and queues without bound: a slow consumer receives
// every event late, and only a consumer whose write failed loses events.
package progress
