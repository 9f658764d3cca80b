// Package config loads the archiver settings from an optional config file and
// ARCHIVER_* environment variables, falling back to the legacy variable names
// used by older deployments, and validates the result before any component
// is built.
package config
