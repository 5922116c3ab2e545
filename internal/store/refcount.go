package store

import "sync/atomic"

// atomicAdd adds delta to *addr and returns the new value.
func atomicAdd(addr *int32, delta int32) int32 {
	return atomic.AddInt32(addr, delta)
}
