// Package environment implements the environment step of the Ceph cluster
// installation wizard.
//
// The step collects the installation source, target version, cluster type,
// OSD type, network type, encryption mode, installation type, flash usage and
// the RHN registry credentials, then validates them into a Snapshot that is
// handed to the next step.
//
// # Components
//
//   - State: the current selections. A value type; every change yields a new State.
//   - Catalog: the versions available per source. The ISO entry is filled from
//     the image directory listing.
//   - Resolver: the cross-field rules, applied through Resolver.Reduce.
//   - Validator: the advance gate, including the ISO content scan.
//   - Step: ties the three together and tracks the phase.
//
// # Events and Commands
//
// Input is a closed set of Event values. Reads against the artifact Source
// are returned from Step.Init and Step.Update as Cmd values; the owner runs
// them (in a tea.Cmd, a goroutine or synchronously with Drive) and passes the
// resulting event back to Update:
//
//	step, _ := environment.NewStep(environment.Options{Source: src})
//	_ = environment.Drive(ctx, step, step.Init())
//	step.Update(environment.SourceChanged{Source: environment.SourceCommunity})
//	_ = environment.Drive(ctx, step, step.Update(environment.AdvanceRequested{}))
//
// # Concurrency
//
// A Step is owned by one goroutine and uses no locks. While an image scan is
// outstanding the step is Validating and field edits are dropped. Each scan
// carries a request id, and results for anything but the outstanding request
// are dropped, as is everything received after Close.
//
// # Version Tokens
//
// Non-ISO sources resolve the Ceph version from the version label with
// ExtractVersionToken. ISO sources read the image content listing and take
// the version from the ceph-common package file name with
// ExtractPackageVersion.
package environment
