// Package upload implements the upload controller: selecting one local video
// file, submitting it to the backend as a multipart payload, and tracking the
// resulting job for that file.
//
// A controller holds at most one selection. While a submission is in flight
// both re-submission and reselection are refused. Failures leave the
// selection in place so the user can retry; there is no automatic retry.
package upload
