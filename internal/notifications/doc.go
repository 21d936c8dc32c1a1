// Package notifications pushes video lifecycle events to ntfy.
//
// A console session publishes when a processed video becomes ready and,
// unless disabled, when a processing job fails. Without a configured topic
// NewService returns a no-op so callers never branch on configuration.
package notifications
