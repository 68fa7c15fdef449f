// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports development and
// production encodings and integrates with the Fiber web framework.
//
// # Correlation
//
// WithRayID attaches the request RayID from a Fiber context so that every log
// line of one HTTP request can be correlated. WithRunID does the same for one
// CLI pass (create, submit, finalize, reconcile) using a generated UUID.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "json"})
//	runLog, runID := logger.WithRunID(log, "finalize")
//	runLog.Info("Polling result queue")
package logger
