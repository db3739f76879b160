// Package server drives environment steps from a web front end over websockets.
//
// Each websocket connection on /ws owns exactly one environment.Step. The
// connection's session goroutine is the step's only owner: it decodes client
// messages into step events, runs the returned read commands in background
// goroutines and feeds their results back into the step. After every
// processed event the session sends the step's observable state.
//
// # Protocol
//
// Client to server:
//
//	{"type":"source","value":"ISO"}
//	{"type":"version","value":"rhceph-4.0-x86_64.iso"}
//	{"type":"credential","field":"username","value":"admin"}
//	{"type":"field","field":"osdType","value":"Filestore"}
//	{"type":"advance"}
//
// Server to client:
//
//	{"type":"state","state":{...}}       after every processed event
//	{"type":"complete","snapshot":{...}} once, when the step is ready
//	{"type":"error","error":"..."}       for messages that could not be decoded
//
// The password is masked in state messages. Closing the connection disposes
// the step; reads still in flight are dropped.
//
// # Metrics
//
// /metrics exposes Prometheus counters for sessions, client messages and
// advance outcomes. /healthz answers "ok".
package server
