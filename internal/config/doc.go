// Package config loads, normalizes, and validates orsi configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the ORSI_API_URL environment
// fallback for the backend address. Always obtain settings through this
// package so downstream code receives absolute paths, canonical log formats,
// and clear validation errors.
package config
