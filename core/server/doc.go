// Package server holds the HTTP status API configuration.
//
// The start command reads it to choose the listen port, the API key enforced by
// the auth middleware, and how long reconcile snapshots are cached.
package server
