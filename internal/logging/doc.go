// Package logging provides structured logging for ceph-env.
//
// This package wraps a zap logger with convenience functions for the common
// logging patterns of the environment step: field changes, advance attempts,
// failed reads of the image directory or image contents, and websocket
// sessions.
//
// # Log Levels
//
//   - Debug: field changes, HTTP requests, raw listings
//   - Info: advance attempts, sessions, image scans
//   - Warn: dropped events (edits while validating, stale results)
//   - Error: failed external reads
//
// # Structured Logging
//
//	logging.Info("Image scan complete",
//	    zap.String("path", "/usr/share/ansible-runner-service/iso"),
//	    zap.Int("images", 2),
//	)
//
// Components that need an injected sink take a *zap.Logger and default to
// logging.Named("component") when none is given.
//
// # Configuration
//
//	if err := logging.Initialize("debug", "/tmp/ceph-env.log"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When neither a level nor CEPH_ENV_LOG_LEVEL is set the logger is a no-op,
// so the interactive wizard never has its screen corrupted by log lines.
// Credentials are masked by LogFieldChange and never written in clear.
package logging
