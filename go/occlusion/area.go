package occlusion

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Area is an axis aligned rectangle within a 16x16 plane. Coordinates are
// inclusive. The mask holds 4 rows of 16 columns per word, bit x + (y&3)*16
// of word y>>2.
type Area struct {
	X0, Y0, X1, Y1 int
	Key            uint16
	Size           int
	EdgeCount      int
	// Rank is the position of this area in the catalog, lower is preferred.
	Rank int
	bits [4]uint64
}

func AreaKey(x0, y0, x1, y1 int) uint16 {
	return uint16(x0 | y0<<4 | x1<<8 | y1<<12)
}

func unpackAreaKey(key uint16) (x0, y0, x1, y1 int) {
	return int(key & 15), int(key>>4) & 15, int(key>>8) & 15, int(key>>12) & 15
}

// AreaBits returns the mask word for rows 4*rowGroup .. 4*rowGroup+3 of the area with the given key.
func AreaBits(key uint16, rowGroup int) uint64 {
	x0, y0, x1, y1 := unpackAreaKey(key)
	span := (uint64(0xFFFF) << x0) & (uint64(0xFFFF) >> (15 - x1))
	var out uint64
	for r := range 4 {
		y := rowGroup*4 + r
		if y >= y0 && y <= y1 {
			out |= span << (r * 16)
		}
	}
	return out
}

func (a *Area) Bits() [4]uint64 {
	return a.bits
}

func (a *Area) IsIncludedBySample(sample *[4]uint64) bool {
	return a.bits[0]&^sample[0] == 0 &&
		a.bits[1]&^sample[1] == 0 &&
		a.bits[2]&^sample[2] == 0 &&
		a.bits[3]&^sample[3] == 0
}

func (a *Area) Intersects(o *Area) bool {
	return a.IntersectsWithSample(&o.bits)
}

func (a *Area) IntersectsWithSample(sample *[4]uint64) bool {
	return a.bits[0]&sample[0] != 0 ||
		a.bits[1]&sample[1] != 0 ||
		a.bits[2]&sample[2] != 0 ||
		a.bits[3]&sample[3] != 0
}

// SetBits ORs the area into target[offset:offset+4].
func (a *Area) SetBits(target []uint64, offset int) {
	target[offset] |= a.bits[0]
	target[offset+1] |= a.bits[1]
	target[offset+2] |= a.bits[2]
	target[offset+3] |= a.bits[3]
}

// ClearBits removes the area from target[offset:offset+4].
func (a *Area) ClearBits(target []uint64, offset int) {
	target[offset] &^= a.bits[0]
	target[offset+1] &^= a.bits[1]
	target[offset+2] &^= a.bits[2]
	target[offset+3] &^= a.bits[3]
}

func (a *Area) String() string {
	return fmt.Sprintf("area(%d,%d..%d,%d)", a.X0, a.Y0, a.X1, a.Y1)
}

type areaCatalog struct {
	areas []Area
	// rank of each key, -1 for keys that don't describe a valid area
	byKey    [1 << 16]int32
	sections []*Area
}

var catalog = sync.OnceValue(buildCatalog)

func buildCatalog() *areaCatalog {
	keys := map[uint16]struct{}{}
	for x0 := range 16 {
		for y0 := range 16 {
			for x1 := x0; x1 < 16; x1++ {
				for y1 := y0; y1 < 16; y1++ {
					keys[AreaKey(x0, y0, x1, y1)] = struct{}{}
				}
			}
		}
	}

	c := &areaCatalog{}
	c.areas = lo.Map(lo.Keys(keys), func(key uint16, _ int) Area {
		x0, y0, x1, y1 := unpackAreaKey(key)
		a := Area{
			X0: x0, Y0: y0, X1: x1, Y1: y1,
			Key:       key,
			Size:      (x1 - x0 + 1) * (y1 - y0 + 1),
			EdgeCount: (x1 - x0 + 1) + (y1 - y0 + 1),
		}
		for g := range 4 {
			a.bits[g] = AreaBits(key, g)
		}
		return a
	})

	// larger first, then squarer, then by key so the order is total
	sort.Slice(c.areas, func(i, j int) bool {
		a, b := &c.areas[i], &c.areas[j]
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		if a.EdgeCount != b.EdgeCount {
			return a.EdgeCount < b.EdgeCount
		}
		return a.Key < b.Key
	})

	for i := range c.byKey {
		c.byKey[i] = -1
	}
	for i := range c.areas {
		a := &c.areas[i]
		a.Rank = i
		c.byKey[a.Key] = int32(i)
		if (a.X0 == 0 && a.X1 == 15) || (a.Y0 == 0 && a.Y1 == 15) {
			c.sections = append(c.sections, a)
		}
	}
	return c
}

// CatalogSize is the number of distinct rectangles in a 16x16 plane.
func CatalogSize() int {
	return len(catalog().areas)
}

// Catalog returns the area with the given rank.
func Catalog(i int) *Area {
	return &catalog().areas[i]
}

// AreaByKey returns the catalog entry for key, or nil if key has x0 > x1 or y0 > y1.
func AreaByKey(key uint16) *Area {
	c := catalog()
	r := c.byKey[key]
	if r < 0 {
		return nil
	}
	return &c.areas[r]
}

func FullArea() *Area {
	return AreaByKey(AreaKey(0, 0, 15, 15))
}
