// Package journal persists the console's activity history in SQLite.
//
// Each console session records uploads, job status transitions, promotions,
// deletions, refreshes, and alerts as append-only events. The store applies
// embedded migrations on open and exposes filtered listing for `orsi history`
// plus age-based pruning. The journal is a local convenience: the backend
// stays the source of truth for video collections.
package journal
