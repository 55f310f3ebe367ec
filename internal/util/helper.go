package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// CeilDiv returns the smallest integer greater than or equal to a/b.
// b must be positive.
func CeilDiv(a int, b int) int {
	return (a + b - 1) / b
}
