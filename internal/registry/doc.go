// Package registry implements the video registry view: the per-filename job
// polling state machine that drives uploaded videos through processing and
// promotes them to the processed collection.
//
// Every tick the registry reads the current uploaded list from its source,
// prunes state for filenames that left it, and issues exactly one job
// progress request per remaining filename. Observations are tagged with the
// tick sequence so late responses never overwrite newer state. The first
// completed observation for a filename fires the promotion side effect once:
// the processed list is re-fetched and the parent is asked to refresh.
//
// The registry also owns deletion, the local processed cache, and the
// metadata detail view.
package registry
