package utils

import "testing"

func TestChunk(t *testing.T) {
	cases := []struct {
		name     string
		n        int
		size     int
		wantLens []int
	}{
		{name: "empty", n: 0, size: 200, wantLens: nil},
		{name: "under_one_batch", n: 5, size: 200, wantLens: []int{5}},
		{name: "exact_multiple", n: 400, size: 200, wantLens: []int{200, 200}},
		{name: "remainder", n: 401, size: 200, wantLens: []int{200, 200, 1}},
		{name: "size_one", n: 3, size: 1, wantLens: []int{1, 1, 1}},
		{name: "zero_size_defaults_to_one", n: 2, size: 0, wantLens: []int{1, 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := make([]int, tc.n)
			for i := range items {
				items[i] = i
			}
			got := Chunk(items, tc.size)
			if len(got) != len(tc.wantLens) {
				t.Fatalf("Chunk(%d, %d) returned %d chunks, want %d", tc.n, tc.size, len(got), len(tc.wantLens))
			}
			seen := 0
			for i, chunk := range got {
				if len(chunk) != tc.wantLens[i] {
					t.Fatalf("chunk %d has len %d, want %d", i, len(chunk), tc.wantLens[i])
				}
				for _, v := range chunk {
					if v != seen {
						t.Fatalf("chunk %d out of order: got %d, want %d", i, v, seen)
					}
					seen++
				}
			}
		})
	}
}
