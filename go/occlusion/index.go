package occlusion

// A region is 16x16x16 interior cells wrapped in a one cell shell, so
// coordinates run from -1 to 16 on each axis.
//
// Interior cells use the same x + z*16 + y*256 layout as chunk sections.
// Shell cells follow the interior: 6 faces of 256 cells, 12 edges of 16
// cells and 8 corners, 18*18*18 indexes in total.
const (
	InteriorCount = 16 * 16 * 16
	IndexCount    = 18 * 18 * 18

	faceBase   = InteriorCount
	edgeBase   = faceBase + 6*256
	cornerBase = edgeBase + 12*16
)

// face directions, 0: +x, 1: -x, 2: +y, 3: -y, 4: +z, 5: -z
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

func InteriorIndex(x, y, z int) int {
	return x | z<<4 | y<<8
}

func InteriorCoords(i int) (x, y, z int) {
	return i & 15, i >> 8, (i >> 4) & 15
}

func isInside(v int) bool {
	return uint(v) < 16
}

// outside returns 0 for the +16 side, 1 for the -1 side and -1 when v is
// within the interior.
func outside(v int) int {
	switch v {
	case 16:
		return 0
	case -1:
		return 1
	}
	return -1
}

// ExteriorIndex maps a shell coordinate to its dense index. At least one
// coordinate must be -1 or 16.
func ExteriorIndex(x, y, z int) int {
	c := [3]int{x, y, z}
	var sides [3]int
	out := 0
	for a, v := range c {
		sides[a] = outside(v)
		if sides[a] >= 0 {
			out++
		}
	}

	switch out {
	case 1:
		for a := range 3 {
			if sides[a] < 0 {
				continue
			}
			// the remaining two axes, in x, y, z order
			u, v := c[(a+1)%3], c[(a+2)%3]
			if a == 1 {
				u, v = c[0], c[2]
			}
			return faceBase + (a*2+sides[a])*256 + (u | v<<4)
		}
	case 2:
		for k := range 3 {
			if sides[k] >= 0 {
				continue
			}
			s1, s2 := sides[(k+1)%3], sides[(k+2)%3]
			if k == 1 {
				s1, s2 = sides[0], sides[2]
			}
			return edgeBase + (k*4+s1+s2*2)*16 + c[k]
		}
	case 3:
		return cornerBase + sides[0] + sides[1]*2 + sides[2]*4
	}
	panic("ExteriorIndex called with an interior coordinate")
}

// Index addresses any cell of the region or its shell.
func Index(x, y, z int) int {
	if isInside(x) && isInside(y) && isInside(z) {
		return InteriorIndex(x, y, z)
	}
	return ExteriorIndex(x, y, z)
}

// faceNeighbor returns the coordinates one step from (x, y, z) in direction f.
func faceNeighbor(x, y, z, f int) (int, int, int) {
	switch f {
	case FacePosX:
		return x + 1, y, z
	case FaceNegX:
		return x - 1, y, z
	case FacePosY:
		return x, y + 1, z
	case FaceNegY:
		return x, y - 1, z
	case FacePosZ:
		return x, y, z + 1
	}
	return x, y, z - 1
}

func onBoundary(x, y, z int) bool {
	return x == 0 || x == 15 || y == 0 || y == 15 || z == 0 || z == 15
}
