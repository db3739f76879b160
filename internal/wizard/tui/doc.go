// Package tui implements the terminal user interface for the Ceph cluster
// environment step.
//
// Built on Bubble Tea, it follows the Elm architecture: models are values,
// Update returns the next model plus commands and View renders the model.
//
// # Screens
//
//   - Discovery: browse mDNS for install services or enter a service URL
//   - Environment: the step form (installation source, target version,
//     RHN credentials, cluster options) with a Next button
//   - Complete: the configuration handed to the next wizard step
//
// The wizard starts on the environment screen when AppConfig.Options carries
// a source, and on the discovery screen otherwise.
//
// Every screen is wrapped by RenderApplicationContainer for a consistent
// header, content area and context-sensitive footer.
//
// # Step Commands
//
// The environment.Step never blocks. The directory listing and the image scan
// it asks for are wrapped as tea.Cmds; their results come back to Update as
// stepEventMsg and are fed to Step.Update on the Bubble Tea goroutine, which
// is the only goroutine touching the step. While an image is scanned the form
// is locked and a spinner replaces the Next button.
//
// # Key Bindings
//
//   - Discovery: ↑/↓ navigate, Enter select, r rescan, m enter URL, q quit
//   - Environment: ↑/↓ move, ←/→ change value, Enter edit, n next, ? help, q quit
//   - Editing: ↑/↓ choose, Enter confirm, Esc cancel
//   - Complete: Enter or q exit
//
// # Usage
//
//	snap, err := tui.Run(ctx, tui.AppConfig{
//	    Options:    environment.Options{Defaults: defaults, Source: src},
//	    SourceName: "local",
//	})
package tui
