package pool

import "sync"

// frameCap is the capacity of pooled frame buffers. It matches the maximum
// wire frame size so a pooled buffer can hold any request or response record.
const frameCap = 1024

var framePool sync.Pool

// GetFrame returns a byte buffer of length size from the pool.
//
// Buffers larger than the pooled capacity are allocated directly and are not
// returned to the pool by PutFrame.
//
// Return the buffer to the pool with PutFrame.
func GetFrame(size int) []byte {
	if size > frameCap {
		return make([]byte, size)
	}
	if v := framePool.Get(); v != nil {
		buf, _ := v.([]byte) // Type assertion is safe here since we only put []byte into the pool
		return buf[:size]
	}
	return make([]byte, size, frameCap)
}

// PutFrame returns buf to the pool.
//
// buf cannot be accessed after returning to the pool.
func PutFrame(buf []byte) {
	if cap(buf) != frameCap {
		return
	}
	framePool.Put(buf[:frameCap]) //nolint:staticcheck
}
