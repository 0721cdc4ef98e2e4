package occlusion

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setVoxel(v []uint64, x, y, z int) {
	i := InteriorIndex(x, y, z)
	v[i>>6] |= 1 << (i & 63)
}

func fillBox(v []uint64, b PackedBox) {
	x0, y0, z0, x1, y1, z1 := b.Unpack()
	for y := y0; y < y1; y++ {
		for z := z0; z < z1; z++ {
			for x := x0; x < x1; x++ {
				setVoxel(v, x, y, z)
			}
		}
	}
}

func checkBoxes(t *testing.T, voxels []uint64, boxes []PackedBox) {
	t.Helper()
	union := make([]uint64, interiorWords)
	for _, b := range boxes {
		require.Greater(t, b.Volume(), 0)
		probe := make([]uint64, interiorWords)
		fillBox(probe, b)
		for w := range probe {
			require.Zero(t, probe[w]&union[w], "%v overlaps an earlier box", b)
			union[w] |= probe[w]
		}
	}
	require.Equal(t, voxels, union)
}

func TestFindBoxesSimple(t *testing.T) {
	f := NewBoxFinder()
	for _, tc := range []struct {
		name  string
		boxes []PackedBox
	}{
		{"empty", nil},
		{"single voxel", []PackedBox{Pack(8, 8, 8, 9, 9, 9)}},
		{"full", []PackedBox{FullBox}},
		{"floor", []PackedBox{Pack(0, 0, 0, 16, 4, 16)}},
		{"pillar", []PackedBox{Pack(3, 0, 3, 4, 16, 4)}},
		{"two apart", []PackedBox{Pack(0, 0, 0, 8, 8, 8), Pack(10, 10, 10, 12, 12, 12)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			voxels := make([]uint64, interiorWords)
			for _, b := range tc.boxes {
				fillBox(voxels, b)
			}
			got := f.FindBoxes(voxels, 0, nil)
			checkBoxes(t, voxels, got)
			assert.Equal(t, tc.boxes, got)
		})
	}
}

func TestFindBoxesOrdered(t *testing.T) {
	voxels := make([]uint64, interiorWords)
	// a floor with a tower on top: the floor is bigger and comes first
	fillBox(voxels, Pack(0, 0, 0, 16, 2, 16))
	fillBox(voxels, Pack(4, 2, 4, 6, 12, 6))
	got := NewBoxFinder().FindBoxes(voxels, 0, nil)
	checkBoxes(t, voxels, got)
	require.Equal(t, []PackedBox{Pack(0, 0, 0, 16, 2, 16), Pack(4, 2, 4, 6, 12, 6)}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Volume(), got[i].Volume())
	}
}

func TestFindBoxesRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := NewBoxFinder()
	var out []PackedBox
	for i := range 40 {
		voxels := make([]uint64, interiorWords)
		if i%2 == 0 {
			for w := range voxels {
				voxels[w] = rng.Uint64() & rng.Uint64()
			}
		} else {
			for range 1 + rng.Intn(12) {
				x0, y0, z0 := rng.Intn(16), rng.Intn(16), rng.Intn(16)
				fillBox(voxels, Pack(x0, y0, z0, x0+1+rng.Intn(16-x0), y0+1+rng.Intn(16-y0), z0+1+rng.Intn(16-z0)))
			}
		}
		out = f.FindBoxes(voxels, 0, out[:0])
		checkBoxes(t, voxels, out)
	}
}

func TestFindBoxesOffset(t *testing.T) {
	voxels := make([]uint64, interiorWords+3)
	fillBox(voxels[3:], Pack(1, 1, 1, 3, 3, 3))
	got := NewBoxFinder().FindBoxes(voxels, 3, nil)
	assert.Equal(t, []PackedBox{Pack(1, 1, 1, 3, 3, 3)}, got)
}
