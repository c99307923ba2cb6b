// Package logging provides structured logging for lorasim-provision.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used by the registry client and the provisioning wizard.
//
// # Log Levels
//
//   - Debug: Registry round trips, per-entity discovery results
//   - Info: Wizard step changes, registration outcomes
//   - Warn: Failed registry calls, failed registrations, retries
//   - Error: Configuration and startup failures
//
// # Silent By Default
//
// The CLI is interactive, so nothing is logged unless LORASIM_LOG_LEVEL or
// the --log-level flag selects a level. Output goes to stderr so it never
// interleaves with command output on stdout.
//
//	if err := logging.Initialize(flagLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Specialized Logging
//
//	logging.LogRegistryCall("GET", "/api/v3/gateways/gw-eui-...", 404, elapsed, nil)
//	logging.LogStepTransition(sessionID, "discover", "passed")
//	logging.LogOutcome(sessionID, "dev-1", "eui-aabb...", "failed", "forbidden: ...")
//
// API keys are never logged. Use RedactKey when a key has to be identified.
package logging
