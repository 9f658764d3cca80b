// Package store defines interfaces for the persisted download queue and the
// failed-download log. These interfaces abstract the underlying SQL database
// from the worker and the API, so both can be exercised against in-memory
// fakes in tests.
package store
