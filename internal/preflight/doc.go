// Package preflight checks that the console can work before a long session:
// the backend answers, local directories are writable, and the configured
// player exists.
//
// `orsi doctor` renders RunAll; optional checks never fail the run.
package preflight
