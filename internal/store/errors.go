package store

import "errors"

var (
	// ErrObjectDoesNotExist indicates the requested object index is past
	// a subgroup's capped length, or the subgroup/group/track has been
	// torn down — it will never arrive.
	ErrObjectDoesNotExist = errors.New("store: object does not exist")

	// ErrAlreadyCapped indicates Cap was called again on the same
	// subgroup with a different end, or AddObject was attempted outside a subgroup's
	// [begin, end) range.
	ErrAlreadyCapped = errors.New("store: subgroup already capped")

	// ErrClosed indicates an operation was attempted on a store, track,
	// group, or subgroup that has already been released.
	ErrClosed = errors.New("store: closed")

	// ErrObjectIDTooLarge indicates a producer tried to register an
	// object-id at or above 2^63, which the group-wide boundary encoding
	// cannot represent.
	ErrObjectIDTooLarge = errors.New("store: object id exceeds 63 bits")
)
