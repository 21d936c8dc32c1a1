// Package api defines the wire-format types exchanged with the video backend
// and the small vocabulary shared by the console components.
//
// VideoCollections mirrors GET /videos and is always handed out as a copy so
// the coordinator stays the only owner of canonical state. JobStatus and
// JobProgressResponse capture the polling payloads; JobProgressResponse.Completed
// encodes the single completion rule used by the registry. RefreshReason and
// Event give refresh signals and journal records explicit, loggable kinds.
package api
