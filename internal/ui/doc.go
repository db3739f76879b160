// Package ui provides terminal output components for the ceph-env CLI.
//
// Unlike the interactive wizard, these components follow a "run once and
// exit" pattern: they render a command's progress and outcome and return.
//
// # Components
//
//   - Header: command banner showing the operation name and parameters
//   - Progress: progress bar with a step list showing real-time status
//   - Result: success, warning and failure boxes with troubleshooting tips
//   - Runner: orchestrates header, steps and result for a command
//   - Printer: prints the same components outside a Runner
//
// PromptCredentials and Confirm use huh forms for the few questions a
// non-interactive command may still need to ask on a terminal.
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Environment Check",
//	    Command:   "ceph-env check",
//	    StepNames: []string{"List images", "Validate"},
//	})
//
//	err := runner.Run(func(onStep ui.StepCallback) ([]ui.Detail, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "2 images")
//	    return nil, nil
//	}, hints)
//
// # Logging
//
// Logging is controlled by CEPH_ENV_LOG_LEVEL. When unset, zap logging is
// silent and only the rendered output reaches the terminal.
package ui
