package occlusion

import "fmt"

// PackedBox is an axis aligned box inside a region. Each coordinate takes
// five bits so that the exclusive upper bound 16 fits:
// x0 | y0<<5 | z0<<10 | x1<<15 | y1<<20 | z1<<25
type PackedBox uint32

const (
	// EmptyBox has no volume, so it never collides with a real box.
	EmptyBox PackedBox = 0
	FullBox  PackedBox = 16<<15 | 16<<20 | 16<<25
)

// Range is the coarse tier of distances at which a box is still worth
// testing. Bigger boxes occlude more and stay useful farther away.
type Range int

const (
	RangeNear Range = iota
	RangeMedium
	RangeFar
)

const (
	mediumVolume = 64
	farVolume    = 512
)

var rangeNames = []string{"near", "medium", "far"}

func (r Range) String() string {
	if r < 0 || int(r) >= len(rangeNames) {
		return fmt.Sprintf("range(%d)", int(r))
	}
	return rangeNames[r]
}

func RangeForVolume(volume int) Range {
	switch {
	case volume >= farVolume:
		return RangeFar
	case volume >= mediumVolume:
		return RangeMedium
	}
	return RangeNear
}

// Pack encodes a box; callers clamp coordinates to [0,16].
func Pack(x0, y0, z0, x1, y1, z1 int) PackedBox {
	return PackedBox(x0 | y0<<5 | z0<<10 | x1<<15 | y1<<20 | z1<<25)
}

// PackSortable prefixes the packed box with its range so that sorting the
// keys orders boxes by range first.
func PackSortable(x0, y0, z0, x1, y1, z1 int) int64 {
	return Pack(x0, y0, z0, x1, y1, z1).Sortable()
}

func (b PackedBox) X0() int { return int(b) & 31 }
func (b PackedBox) Y0() int { return int(b>>5) & 31 }
func (b PackedBox) Z0() int { return int(b>>10) & 31 }
func (b PackedBox) X1() int { return int(b>>15) & 31 }
func (b PackedBox) Y1() int { return int(b>>20) & 31 }
func (b PackedBox) Z1() int { return int(b>>25) & 31 }

func (b PackedBox) Unpack() (x0, y0, z0, x1, y1, z1 int) {
	return b.X0(), b.Y0(), b.Z0(), b.X1(), b.Y1(), b.Z1()
}

func (b PackedBox) Volume() int {
	dx, dy, dz := b.X1()-b.X0(), b.Y1()-b.Y0(), b.Z1()-b.Z0()
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return 0
	}
	return dx * dy * dz
}

func (b PackedBox) IsEmpty() bool {
	return b.Volume() == 0
}

func (b PackedBox) Range() Range {
	return RangeForVolume(b.Volume())
}

func (b PackedBox) Sortable() int64 {
	return int64(b.Range())<<32 | int64(b)
}

// Contains reports whether the cell (x, y, z) is inside the box.
func (b PackedBox) Contains(x, y, z int) bool {
	return x >= b.X0() && x < b.X1() &&
		y >= b.Y0() && y < b.Y1() &&
		z >= b.Z0() && z < b.Z1()
}

func (b PackedBox) String() string {
	switch b {
	case EmptyBox:
		return "box(empty)"
	case FullBox:
		return "box(full)"
	}
	x0, y0, z0, x1, y1, z1 := b.Unpack()
	return fmt.Sprintf("box(%d,%d,%d..%d,%d,%d)", x0, y0, z0, x1, y1, z1)
}
