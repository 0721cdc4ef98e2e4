package region

import (
	"math"

	"github.com/pkg/errors"
)

const fakeSections = 5

// FakeRegion generates rolling terrain instead of reading a file. Every
// column is stone up to a height given by a smooth function of position,
// capped with dirt and grass. Each chunk has a sealed cave well below the
// surface, and every fourth chunk carries a glass pillar.
type FakeRegion struct {
	rx, rz int
	bm     *BlockMapper
}

func OpenFake(path string, bm *BlockMapper) (Regioner, error) {
	rx, rz, ok := ParseRegionName(path)
	if !ok {
		return nil, errors.Errorf("can't parse fake region name %q", path)
	}
	return &FakeRegion{rx: rx, rz: rz, bm: bm}, nil
}

func (r *FakeRegion) Rx() int { return r.rx }
func (r *FakeRegion) Rz() int { return r.rz }

func FakeHeight(x, z int) int {
	fx, fz := float64(x), float64(z)
	return 40 + int(8*math.Sin(fx/23)+6*math.Cos(fz/17)+3*math.Sin((fx+fz)/7))
}

func (r *FakeRegion) ReadChunks(wanted []int) ([1024]ChunkDatum, error) {
	var cdata [1024]ChunkDatum
	if len(wanted) == 0 {
		wanted = make([]int, 1024)
		for i := range wanted {
			wanted[i] = i
		}
	}

	stone := r.bm.Nid("minecraft:stone")
	dirt := r.bm.Nid("minecraft:dirt")
	grass := r.bm.Nid("minecraft:grass_block")
	glass := r.bm.Nid("minecraft:glass")

	for _, cn := range wanted {
		cx, cz := r.rx<<5|cn&31, r.rz<<5|cn>>5
		chunk := ChunkDatum{Blocks: make([][]uint16, fakeSections)}
		for i := range chunk.Blocks {
			chunk.Blocks[i] = make([]uint16, 4096)
		}
		set := func(x, y, z int, b uint16) {
			chunk.Blocks[y>>4][x|z<<4|(y&15)<<8] = b
		}
		for z := range 16 {
			for x := range 16 {
				h := FakeHeight(cx*16+x, cz*16+z)
				for y := 0; y < h-3; y++ {
					set(x, y, z, stone)
				}
				for y := h - 3; y < h; y++ {
					set(x, y, z, dirt)
				}
				set(x, h, z, grass)
			}
		}
		for y := 8; y < 14; y++ {
			for z := 2; z < 8; z++ {
				for x := 2; x < 8; x++ {
					set(x, y, z, 0)
				}
			}
		}
		if cx&1 == 0 && cz&1 == 0 {
			h := FakeHeight(cx*16+8, cz*16+8)
			for y := h + 1; y < min(h+12, fakeSections*16); y++ {
				set(8, y, 8, glass)
			}
		}
		cdata[cn] = chunk
	}
	return cdata, nil
}
