// Package ui renders terminal output for lorasim-provision.
//
// It uses Lipgloss for styling and Bubble Tea for one-shot rendering. The
// components here are for non-interactive commands; the interactive wizard
// lives in internal/wizard/tui and reuses these renderers.
//
//   - Header: command banner with ordered parameters
//   - Progress: wizard step list with a progress bar
//   - Result: success, warning and failure boxes with troubleshooting tips
//   - RenderEntities, RenderPlans, RenderOutcome: domain tables
//   - ConfirmPlans: the typed confirmation gate before registering
//   - Runner: header, live step lines, then a summary box
//
// Example:
//
//	runner := ui.NewRunner(os.Stdout, "Provision", "lorasim-provision provision",
//	    ui.Detail{Key: "Org", Value: org})
//	runner.Start()
//	wiz := provision.NewWizard(client, cfg, entities, provision.Options{Observer: runner.Observer()})
//	// ... drive the wizard ...
//	runner.Finish(wiz.State().Summary, nil, nil)
//
// zap logging is silent unless LORASIM_LOG_LEVEL is set, so log lines do not
// interleave with this output.
package ui
