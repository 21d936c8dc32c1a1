// Package main hosts the orsi CLI entrypoint and command graph.
//
// One-shot commands (list, upload, delete, status, metadata, fetch, play)
// talk to the video backend through the same console session the live
// `watch` command runs, so uploads, deletions and job polling follow a single
// set of rules whichever way they are invoked. history, logs, doctor and
// test-notify are local diagnostics. Configuration resolution and logging
// setup are centralized in the command context.
package main
