package occlusion

import (
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSample(s []uint64, x, y int) {
	s[y>>2] |= 1 << ((y&3)*16 + x)
}

// checkCover verifies that areas are disjoint and union to sample.
func checkCover(t *testing.T, sample [4]uint64, areas []*Area) {
	t.Helper()
	var union [4]uint64
	for _, a := range areas {
		require.Greater(t, a.Size, 0)
		require.False(t, a.IntersectsWithSample(&union), "%v overlaps earlier areas", a)
		a.SetBits(union[:], 0)
	}
	require.Equal(t, sample, union)
}

func TestFindSingleCell(t *testing.T) {
	f := NewAreaFinder()
	for _, p := range [][2]int{{0, 0}, {15, 15}, {3, 9}, {15, 0}, {7, 4}} {
		sample := make([]uint64, 4)
		setSample(sample, p[0], p[1])
		areas := f.Find(sample, 0, nil)
		require.Len(t, areas, 1)
		assert.Equal(t, AreaKey(p[0], p[1], p[0], p[1]), areas[0].Key)
	}
}

func TestFindFull(t *testing.T) {
	f := NewAreaFinder()
	sample := []uint64{0, ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}
	areas := f.Find(sample, 1, nil)
	require.Len(t, areas, 1)
	assert.Equal(t, AreaKey(0, 0, 15, 15), areas[0].Key)
	assert.Empty(t, f.Find(make([]uint64, 4), 0, nil))
}

func TestFindShapes(t *testing.T) {
	for _, tc := range []struct {
		name  string
		cells [][2]int
		want  int
	}{
		{"row", lo.Times(16, func(i int) [2]int { return [2]int{i, 3} }), 1},
		{"column", lo.Times(16, func(i int) [2]int { return [2]int{9, i} }), 1},
		{"plus", [][2]int{{5, 4}, {4, 5}, {5, 5}, {6, 5}, {5, 6}}, 3},
		{"two squares", [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {8, 8}, {9, 8}, {8, 9}, {9, 9}}, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sample := make([]uint64, 4)
			for _, c := range tc.cells {
				setSample(sample, c[0], c[1])
			}
			areas := NewAreaFinder().Find(sample, 0, nil)
			checkCover(t, [4]uint64(sample), areas)
			assert.Len(t, areas, tc.want)
		})
	}
}

func TestFindRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f := NewAreaFinder()
	var out []*Area
	for range 500 {
		var sample [4]uint64
		for w := range sample {
			sample[w] = rng.Uint64()
			// bias some samples toward large rectangles
			if rng.Intn(2) == 0 {
				sample[w] |= rng.Uint64() | rng.Uint64()
			}
		}
		out = f.Find(sample[:], 0, out[:0])
		checkCover(t, sample, out)
	}
}

func TestLargestArea(t *testing.T) {
	var sample [4]uint64
	assert.Nil(t, LargestArea(&sample))

	// an L shape: 6x2 bar along the bottom and a 2x5 post
	for x := range 6 {
		setSample(sample[:], x, 0)
		setSample(sample[:], x, 1)
	}
	for y := 2; y < 7; y++ {
		setSample(sample[:], 0, y)
		setSample(sample[:], 1, y)
	}
	a := LargestArea(&sample)
	assert.Equal(t, AreaKey(0, 0, 1, 6), a.Key)
}

func TestFindSections(t *testing.T) {
	f := NewAreaFinder()
	full := []uint64{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}
	sections := f.FindSections(full, 0, nil)
	assert.Len(t, sections, 136+136-1)
	for _, a := range sections {
		assert.True(t, (a.X0 == 0 && a.X1 == 15) || (a.Y0 == 0 && a.Y1 == 15), "%v", a)
	}

	// a single full row only contains itself as a section
	row := make([]uint64, 4)
	for x := range 16 {
		setSample(row, x, 5)
	}
	setSample(row, 3, 6)
	sections = f.FindSections(row, 0, nil)
	require.Len(t, sections, 1)
	assert.Equal(t, AreaKey(0, 5, 15, 5), sections[0].Key)
}
