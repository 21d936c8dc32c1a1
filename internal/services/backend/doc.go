// Package backend is the typed HTTP client for the video backend's REST
// surface: listing, multipart upload, job status and progress polling,
// deletion, metadata documents, and video streams.
//
// Every request is rate limited, stamped with an X-Request-ID, and decoded
// into the DTOs from internal/api. Non-2xx responses become *StatusError so
// callers can branch on the HTTP status; the console components then classify
// them with the services error markers.
package backend
