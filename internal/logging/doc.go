// Package logging provides structured logging for TerraDetect.
//
// This package wraps a global zap logger with convenience functions. Logging
// is silent by default so one-shot CLI output stays clean; set
// TERRADETECT_LOG_LEVEL (or pass --log-level) to enable it.
//
// # Log Levels
//
//   - Debug: state transitions, upstream calls, poll attempts
//   - Info: requests served, readings stored, server lifecycle
//   - Warn: failed upstream calls, unknown modes, dropped subscribers
//   - Error: startup failures, store errors
//
// # Structured Logging
//
//	logging.Info("Reading stored",
//	    zap.String("device_id", "A1B2C3"),
//	    zap.Float64("ph", 6.8),
//	)
//
// # Output
//
// The gateway logs to stdout in console format. The form UI takes over the
// terminal, so it logs to a file instead:
//
//	if err := logging.InitializeToFile("debug", "/tmp/terradetect.log"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
package logging
