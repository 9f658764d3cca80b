// Package events carries the outcome of each processed queue item to the
// components that react to it.
//
// The worker emits one OutcomeEvent per item. Push notifications and the
// library scanner subscribe to a Dispatcher, so the worker depends only on
// the EventEmitter interface.
package events
