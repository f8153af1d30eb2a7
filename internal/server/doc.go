// Package server exposes the HTTP surface: the JSON API for tasks, comments
// and notifications, the websocket endpoint feeding the connection hub,
// health probes and the Prometheus metrics endpoint. Handlers return
// structured errors and let the error middleware render them.
package server
