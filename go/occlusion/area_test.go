package occlusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func areaHas(a *Area, x, y int) bool {
	b := a.Bits()
	return b[y>>2]&(1<<((y&3)*16+x)) != 0
}

func TestCatalogComplete(t *testing.T) {
	require.Equal(t, 136*136, CatalogSize())

	seen := map[uint16]int{}
	for i := range CatalogSize() {
		a := Catalog(i)
		seen[a.Key]++
		require.Equal(t, i, a.Rank)
		require.Equal(t, (a.X1-a.X0+1)*(a.Y1-a.Y0+1), a.Size, "size of %v", a)
		require.Equal(t, (a.X1-a.X0+1)+(a.Y1-a.Y0+1), a.EdgeCount, "edge count of %v", a)
	}

	for x0 := range 16 {
		for y0 := range 16 {
			for x1 := x0; x1 < 16; x1++ {
				for y1 := y0; y1 < 16; y1++ {
					key := AreaKey(x0, y0, x1, y1)
					require.Equal(t, 1, seen[key], "area %d,%d..%d,%d", x0, y0, x1, y1)
					a := AreaByKey(key)
					require.NotNil(t, a)
					assert.Equal(t, [4]int{x0, y0, x1, y1}, [4]int{a.X0, a.Y0, a.X1, a.Y1})
				}
			}
		}
	}
	assert.Len(t, seen, CatalogSize())
	assert.Nil(t, AreaByKey(AreaKey(5, 0, 4, 0)))
}

func TestCatalogOrder(t *testing.T) {
	assert.Equal(t, FullArea(), Catalog(0))
	for i := 1; i < CatalogSize(); i++ {
		prev, cur := Catalog(i-1), Catalog(i)
		if prev.Size == cur.Size {
			require.LessOrEqual(t, prev.EdgeCount, cur.EdgeCount, "%v before %v", prev, cur)
		} else {
			require.Greater(t, prev.Size, cur.Size, "%v before %v", prev, cur)
		}
	}
	// 4x4 beats 2x8 beats 1x16
	square := AreaByKey(AreaKey(0, 0, 3, 3))
	long := AreaByKey(AreaKey(0, 0, 1, 7))
	line := AreaByKey(AreaKey(0, 0, 0, 15))
	assert.Less(t, square.Rank, long.Rank)
	assert.Less(t, long.Rank, line.Rank)
}

func TestAreaBits(t *testing.T) {
	for i := range CatalogSize() {
		a := Catalog(i)
		n := 0
		for y := range 16 {
			for x := range 16 {
				inside := x >= a.X0 && x <= a.X1 && y >= a.Y0 && y <= a.Y1
				if areaHas(a, x, y) != inside {
					t.Fatalf("%v: bit %d,%d = %v", a, x, y, !inside)
				}
				if inside {
					n++
				}
			}
		}
		require.Equal(t, a.Size, n)
	}

	assert.Equal(t, uint64(0), AreaBits(AreaKey(0, 4, 15, 7), 0))
	assert.Equal(t, ^uint64(0), AreaBits(AreaKey(0, 4, 15, 7), 1))
	assert.Equal(t, uint64(0b0110)<<16, AreaBits(AreaKey(1, 1, 2, 1), 0))
}

func TestAreaSampleOps(t *testing.T) {
	full := [4]uint64{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}
	for i := range CatalogSize() {
		require.True(t, Catalog(i).IsIncludedBySample(&full))
	}

	left := AreaByKey(AreaKey(0, 0, 7, 15))
	right := AreaByKey(AreaKey(8, 0, 15, 15))
	middle := AreaByKey(AreaKey(6, 6, 9, 9))
	assert.False(t, left.Intersects(right))
	assert.False(t, right.Intersects(left))
	assert.True(t, left.Intersects(middle))
	assert.True(t, middle.Intersects(right))

	var target [8]uint64
	left.SetBits(target[:], 4)
	assert.Equal(t, [4]uint64{}, [4]uint64(target[:4]))
	assert.True(t, left.IsIncludedBySample((*[4]uint64)(target[4:])))
	assert.False(t, right.IntersectsWithSample((*[4]uint64)(target[4:])))
	right.SetBits(target[:], 4)
	assert.Equal(t, full, [4]uint64(target[4:]))
	middle.ClearBits(target[:], 4)
	assert.False(t, middle.IntersectsWithSample((*[4]uint64)(target[4:])))
	assert.False(t, left.IsIncludedBySample((*[4]uint64)(target[4:])))
}
