// Package server provides the HTTP and websocket surface: viewer
// connections, the operational API, and the observability endpoints.
package server
