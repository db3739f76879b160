// Package artifact provides the collaborators that list the ISO image
// directory and read an image's content listing.
//
// Three sources are available, selected by the "backend" setting:
//
//   - LocalSource: the local filesystem. Contents come from a "<image>.lst"
//     sidecar when present, otherwise from running isoinfo.
//   - Client: the install service's HTTP API, with basic auth, retries with
//     exponential backoff and a short-lived listing cache.
//   - S3Source: an S3-compatible bucket, images under a key prefix and their
//     listings in "<key>.lst" objects.
//
// All three return *SourceError values that classify the failure (network,
// auth, not found, permission, command, storage). The environment step only
// shows a generic message for a failed read; the classification is logged
// and used by the CLI for troubleshooting hints.
//
// Listing format:
//
//	ListDirectory -> "/iso/rhceph-4.1.iso /iso/readme.txt"
//	ReadContents  -> "20178948 /Tools/ceph-common-14.2.2-16.el8cp.x86_64.rpm\n..."
package artifact
