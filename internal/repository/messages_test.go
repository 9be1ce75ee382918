package repository

import "testing"

func TestChunks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n, size int
		want    [][2]int
	}{
		{0, 100, nil},
		{1, 100, [][2]int{{0, 1}}},
		{100, 100, [][2]int{{0, 100}}},
		{101, 100, [][2]int{{0, 100}, {100, 101}}},
		{250, 100, [][2]int{{0, 100}, {100, 200}, {200, 250}}},
		{5, 0, [][2]int{{0, 5}}}, // zero size falls back to the default
	}

	for _, c := range cases {
		got := chunks(c.n, c.size)
		if len(got) != len(c.want) {
			t.Errorf("chunks(%d, %d) = %v, want %v", c.n, c.size, got, c.want)
			continue
		}
		covered := 0
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("chunks(%d, %d)[%d] = %v, want %v", c.n, c.size, i, got[i], c.want[i])
			}
			covered += got[i][1] - got[i][0]
		}
		// Chunking must be lossless: ranges cover every row exactly once.
		if covered != c.n {
			t.Errorf("chunks(%d, %d) covers %d rows", c.n, c.size, covered)
		}
	}
}
