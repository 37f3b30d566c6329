// Package events delivers change events and private notifications to
// addressable channels without blocking the code that triggered them.
//
// Two channel kinds exist: board broadcasts ("board:<id>") and per-user
// private channels ("user:<email>"). Messages for the same channel are
// delivered in publish order because a channel always hashes to the same
// worker. Delivery is best effort and at most once: failures, timeouts and
// panics inside a transport are logged at the worker boundary and never
// reach the publisher.
package events
