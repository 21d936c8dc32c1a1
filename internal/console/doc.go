// Package console composes the coordinator, registry and upload controller
// into one console session.
//
// Children signal the coordinator through callbacks only: the upload
// controller and the registry request refreshes and report errors, and the
// registry reads its poll set from the coordinator's current uploaded list.
// A session optionally records its activity to the journal and can hold an
// exclusive lock so only one live watch runs per state directory.
package console
