package collection

import "errors"

// Sentinel errors the core itself is allowed to raise. Everything else
// (a missing queue, a shutdown in progress, an underlying journal error on
// a read) is reported through return values, never a panic.
var (
	// ErrIllegalName is returned when a client-supplied name contains a
	// forbidden character or more than one '+'.
	ErrIllegalName = errors.New("collection: illegal queue name")

	// ErrInaccessibleQueuePath is fatal at startup: the configured root
	// is not a directory, or cannot be made writable.
	ErrInaccessibleQueuePath = errors.New("collection: queue root path is not a usable directory")
)
