// Package logger builds the zap logger shared by every mrbox component.
//
// Debug level uses zap's development config with ISO8601 timestamps; any
// other level uses the production config. Format selects json or console
// encoding.
//
// # Ray IDs
//
// Status API handlers log through WithRayID, which tags entries with the
// request ID set by the rayid middleware.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Watching", zap.String("root", root))
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
