// Package websocket streams graph events to clients.
//
// Clients connect to /api/v1/graphs/:id/ws and receive every event
// published on the graph's topic as a JSON object. A client may also send
// {"action": "run", "node_id": "..."} messages, which are queued for
// asynchronous execution and acknowledged with the command id.
package websocket
