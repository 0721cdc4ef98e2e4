package occlusion

// AreaFinder decomposes a 16x16 sample into catalog rectangles. It keeps
// scratch state between calls, so each worker needs its own.
type AreaFinder struct {
	scratch [4]uint64
}

func NewAreaFinder() *AreaFinder {
	return &AreaFinder{}
}

// Find appends to out a set of non-overlapping areas whose union is exactly
// sample[offset:offset+4]. Each step carves out the largest rectangle left.
func (f *AreaFinder) Find(sample []uint64, offset int, out []*Area) []*Area {
	copy(f.scratch[:], sample[offset:offset+4])
	remaining := popcount4(&f.scratch)
	for remaining > 0 {
		a := LargestArea(&f.scratch)
		out = append(out, a)
		a.ClearBits(f.scratch[:], 0)
		remaining -= a.Size
	}
	return out
}

// FindSections appends every catalog area spanning the plane edge to edge on
// either axis that is fully included in the sample.
func (f *AreaFinder) FindSections(sample []uint64, offset int, out []*Area) []*Area {
	copy(f.scratch[:], sample[offset:offset+4])
	for _, a := range catalog().sections {
		if a.IsIncludedBySample(&f.scratch) {
			out = append(out, a)
		}
	}
	return out
}

// LargestArea returns the biggest rectangle fully inside sample, or nil if
// sample is empty. Rectangles of equal size are ranked by the catalog order.
//
// This is largest-rectangle-in-a-histogram run once per row: heights[x] is
// the number of consecutive set rows ending at the current one, and column
// 16 is a zero height sentinel that flushes the stack.
func LargestArea(sample *[4]uint64) *Area {
	c := catalog()
	var heights [17]int
	var stackX, stackH [17]int
	var best *Area

	for y := range 16 {
		row := (sample[y>>2] >> ((y & 3) * 16)) & 0xFFFF
		if row == 0 {
			heights = [17]int{}
			continue
		}
		for x := range 16 {
			if row&(1<<x) != 0 {
				heights[x]++
			} else {
				heights[x] = 0
			}
		}

		sp := 0
		for x := 0; x <= 16; x++ {
			h := heights[x]
			start := x
			for sp > 0 && stackH[sp-1] > h {
				sp--
				runStart, runHeight := stackX[sp], stackH[sp]
				a := &c.areas[c.byKey[AreaKey(runStart, y-runHeight+1, x-1, y)]]
				if best == nil || a.Rank < best.Rank {
					best = a
				}
				start = runStart
			}
			if h > 0 && (sp == 0 || stackH[sp-1] < h) {
				stackX[sp] = start
				stackH[sp] = h
				sp++
			}
		}
	}
	return best
}
