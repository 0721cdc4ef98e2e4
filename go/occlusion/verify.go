package occlusion

import (
	"github.com/pkg/errors"
)

// Verify checks the invariants of the last Prepare against its output. The
// fill expands each reached open cell once, every box has volume, and the
// boxes are disjoint and cover exactly the closed cells. Every renderable
// cell was reached by the fill or lies on the region boundary, and no
// boundary cell is drawn against a fully closed shell.
func (r *Region) Verify(cd CullData) error {
	if len(cd) == 0 {
		return errors.New("cull data has no bounds")
	}
	reached := 0
	for i := range InteriorCount {
		if r.visited.has(i) && !r.closed.has(i) {
			reached++
		}
	}
	if r.pops != reached {
		return errors.Errorf("flood fill expanded %d cells for %d reached open cells", r.pops, reached)
	}

	var covered [interiorWords]uint64
	for n, b := range cd.Boxes() {
		if b.Volume() == 0 {
			return errors.Errorf("box %d (%v) has no volume", n, b)
		}
		x0, y0, z0, x1, y1, z1 := b.Unpack()
		if x1 > 16 || y1 > 16 || z1 > 16 {
			return errors.Errorf("box %d (%v) leaves the region", n, b)
		}
		for y := y0; y < y1; y++ {
			for z := z0; z < z1; z++ {
				for x := x0; x < x1; x++ {
					i := InteriorIndex(x, y, z)
					if covered[i>>6]&(1<<(i&63)) != 0 {
						return errors.Errorf("box %d (%v) overlaps another box at %d,%d,%d", n, b, x, y, z)
					}
					covered[i>>6] |= 1 << (i & 63)
				}
			}
		}
	}
	for w, closed := range r.closed.interior() {
		if covered[w] != closed {
			return errors.Errorf("boxes differ from closed cells in word %d: %016x != %016x", w, covered[w], closed)
		}
	}

	for i := range InteriorCount {
		if !r.renderable.has(i) {
			continue
		}
		x, y, z := InteriorCoords(i)
		if !onBoundary(x, y, z) {
			if r.solid || !r.visited.has(i) {
				return errors.Errorf("hidden cell %d,%d,%d is still renderable", x, y, z)
			}
		} else if !r.exposed(x, y, z) {
			return errors.Errorf("boundary cell %d,%d,%d is renderable against a closed shell", x, y, z)
		}
	}
	return nil
}
