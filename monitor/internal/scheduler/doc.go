// Package scheduler drives the monitor: fetch, evaluate, detect, escalate,
// dispatch, sleep.
//
// State is the monitor's memory between ticks. Tick takes a State and returns
// the next one, so nothing is shared: Run owns the only copy and threads it
// through the loop. Observers (status store, metrics, WebSocket hub) receive a
// types.TickReport after every tick.
//
// Shutdown: cancelling Run's context aborts an in-flight fetch, interrupts
// the sleep, and lets an in-flight dispatch finish within SendTimeout.
package scheduler
