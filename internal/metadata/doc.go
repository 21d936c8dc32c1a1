// Package metadata interprets the per-video metadata documents produced by the
// backend's detection job.
//
// The document is a JSON array with one entry per frame; each entry lists the
// objects detected in that frame with a label and an [x1, y1, x2, y2]
// bounding box. Documents of any other shape are still valid metadata: they
// are passed through untouched and Summarize reports them as opaque.
package metadata
