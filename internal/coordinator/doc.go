// Package coordinator holds the canonical video collections fetched from the
// backend and the single transient alert slot. Children signal mutations by
// asking for a refresh; every refresh replaces the collections wholesale.
package coordinator
