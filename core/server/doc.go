// Package server holds the configuration of the optional status HTTP API.
//
// The API is off unless server.enabled is set. When api_key is set every
// route except the health check requires it.
package server
