// Package ws streams the monitor's status to WebSocket clients at /ws/stream.
//
// Each client receives the current status on connect, a periodic "status"
// message every interval, and a "transition" message as soon as a tick emits
// events. Slow clients whose send buffer fills up are disconnected.
package ws
