package utils

// Chunk splits items into consecutive slices of at most size elements.
// Backend OR-queries built from large equality sets must stay under the
// backend's predicate limit, so callers issue one query per chunk.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
