// Package worker drains the download queue.
//
// A Worker polls the queue on a fixed interval, resolves a handler for each
// item through the handler registry and invokes it. Every item leaves the
// queue after one attempt: either it completed, or a failure record is written
// for an operator to retry or delete. Outcomes are reported to the relay and
// published as events so that notifications and library scans can react.
//
// Items are processed one at a time. Handlers may parallelize internally up to
// the configured thread count.
package worker
