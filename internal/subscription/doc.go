// Package subscription implements the work-stealing subscription engine:
// it expands a SUBSCRIBE's filter into one or more per-group minor
// subscriptions, fulfils them from the data store with a fixed-size
// worker pool, and supports abort-on-supersede semantics for
// scalable-layer media.
package subscription
