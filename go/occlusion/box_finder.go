package occlusion

// BoxFinder covers a 16^3 voxel set with non-overlapping boxes. Like
// AreaFinder it owns scratch space and is not safe for concurrent use.
type BoxFinder struct {
	layers [16][4]uint64
	counts [16]int
}

func NewBoxFinder() *BoxFinder {
	return &BoxFinder{}
}

// FindBoxes appends boxes covering exactly the set bits of
// voxels[offset:offset+64], laid out as 16 Y layers of four words.
//
// Each step takes every run of consecutive layers [y0,y1], intersects them,
// and extrudes the largest rectangle of the intersection through the run.
// The biggest resulting box wins; ties go to the better ranked rectangle and
// then the lower y0. Output is therefore in non-increasing volume order.
func (f *BoxFinder) FindBoxes(voxels []uint64, offset int, out []PackedBox) []PackedBox {
	remaining := 0
	for y := range 16 {
		copy(f.layers[y][:], voxels[offset+y*4:offset+y*4+4])
		f.counts[y] = popcount4(&f.layers[y])
		remaining += f.counts[y]
	}

	for remaining > 0 {
		var best *Area
		bestVolume, bestY0, bestY1 := 0, 0, 0

		for y0 := range 16 {
			if f.counts[y0] == 0 {
				continue
			}
			acc := f.layers[y0]
			for y1 := y0; y1 < 16; y1++ {
				if y1 > y0 {
					for w := range 4 {
						acc[w] &= f.layers[y1][w]
					}
				}
				n := popcount4(&acc)
				if n == 0 {
					break
				}
				height := y1 - y0 + 1
				if n*height < bestVolume {
					continue
				}
				a := LargestArea(&acc)
				volume := a.Size * height
				if volume > bestVolume || (volume == bestVolume && a.Rank < best.Rank) {
					best, bestVolume, bestY0, bestY1 = a, volume, y0, y1
				}
			}
		}

		for y := bestY0; y <= bestY1; y++ {
			best.ClearBits(f.layers[y][:], 0)
			f.counts[y] -= best.Size
		}
		remaining -= bestVolume
		out = append(out, Pack(best.X0, bestY0, best.Y0, best.X1+1, bestY1+1, best.Y1+1))
	}
	return out
}
