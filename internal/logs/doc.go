// Package logs tails the console's own log file for `orsi logs`.
//
// Last reads the trailing lines with bounded memory and returns the offset to
// continue from; Follow polls for appended lines until its context ends and
// starts over when the file is truncated or rotated.
package logs
