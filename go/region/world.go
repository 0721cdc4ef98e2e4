package region

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// World locates region files and loads them together with the chunks of
// their neighbors that border them.
type World struct {
	Dir    string
	Blocks *BlockMapper
	Opener RegionOpener

	fakeRadius int
}

func NewWorld(dir string, bm *BlockMapper) *World {
	return &World{Dir: dir, Blocks: bm, Opener: Open}
}

// NewFakeWorld generates terrain for every region within radius of the origin.
func NewFakeWorld(bm *BlockMapper, radius int) *World {
	return &World{Dir: "fake", Blocks: bm, Opener: OpenFake, fakeRadius: radius}
}

func (w *World) RegionPath(rx, rz int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("r.%d.%d.mca", rx, rz))
}

// Regions lists the coordinates of every region in the world, sorted.
func (w *World) Regions() ([][2]int, error) {
	var out [][2]int
	if w.fakeRadius > 0 {
		for rz := -w.fakeRadius + 1; rz < w.fakeRadius; rz++ {
			for rx := -w.fakeRadius + 1; rx < w.fakeRadius; rx++ {
				out = append(out, [2]int{rx, rz})
			}
		}
		return out, nil
	}
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing regions in %s", w.Dir)
	}
	for _, e := range entries {
		if rx, rz, ok := ParseRegionName(e.Name()); ok && !e.IsDir() {
			out = append(out, [2]int{rx, rz})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][1] != out[j][1] {
			return out[i][1] < out[j][1]
		}
		return out[i][0] < out[j][0]
	})
	return out, nil
}

// readChunks loads the wanted chunks of a region. A region that doesn't
// exist yields no chunks and no error.
func (w *World) readChunks(rx, rz int, wanted []int) ([]ChunkDatum, error) {
	r, err := w.Opener(w.RegionPath(rx, rz), w.Blocks)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	cdata, err := r.ReadChunks(wanted)
	if err != nil {
		return nil, err
	}
	return cdata[:], nil
}

// borderChunks returns the chunk indexes of the neighbor region at offset
// (dx, dz) that touch the center region.
func borderChunks(dx, dz int) []int {
	pick := func(d int) []int {
		switch d {
		case -1:
			return []int{31}
		case 1:
			return []int{0}
		}
		return lo.Range(32)
	}
	var out []int
	for _, z := range pick(dz) {
		for _, x := range pick(dx) {
			out = append(out, x+z*32)
		}
	}
	return out
}

// Load reads region (rx, rz) and the border chunks of its eight neighbors.
func (w *World) Load(rx, rz int) (*RegionView, error) {
	v := &RegionView{Rx: rx, Rz: rz, chunks: make(map[[2]int]*ChunkDatum)}
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			var wanted []int
			if dx != 0 || dz != 0 {
				wanted = borderChunks(dx, dz)
			}
			cdata, err := w.readChunks(rx+dx, rz+dz, wanted)
			if err != nil {
				return nil, errors.Wrapf(err, "loading region %d,%d", rx+dx, rz+dz)
			}
			if cdata == nil && dx == 0 && dz == 0 {
				slog.Debug("region file is missing", "rx", rx, "rz", rz)
			}
			for i := range cdata {
				if len(cdata[i].Blocks) == 0 {
					continue
				}
				cx, cz := (rx+dx)<<5|i&31, (rz+dz)<<5|i>>5
				v.chunks[[2]int{cx, cz}] = &cdata[i]
			}
		}
	}
	v.classes = w.Blocks.Classes()
	return v, nil
}

// RegionView is a loaded region. It is read only and safe for concurrent use.
type RegionView struct {
	Rx, Rz  int
	chunks  map[[2]int]*ChunkDatum
	classes Classes
}

func (v *RegionView) Chunk(cx, cz int) *ChunkDatum {
	return v.chunks[[2]int{cx, cz}]
}

// Columns lists the chunks of the center region that hold blocks.
func (v *RegionView) Columns() [][2]int {
	var out [][2]int
	for cz := v.Rz << 5; cz < (v.Rz+1)<<5; cz++ {
		for cx := v.Rx << 5; cx < (v.Rx+1)<<5; cx++ {
			if v.Chunk(cx, cz) != nil {
				out = append(out, [2]int{cx, cz})
			}
		}
	}
	return out
}

// Section builds the 16^3 section at chunk (cx, cz), section height sy,
// with its one block shell. Missing chunks read as air, as does everything
// above a chunk's top section. Everything below the bottom section of the
// chunk holding the section is closed.
func (v *RegionView) Section(cx, sy, cz int) *Section {
	s := &Section{Cx: cx, Sy: sy, Cz: cz, classes: v.classes}
	if c := v.Chunk(cx, cz); c != nil && sy == c.MinSection {
		s.floor = true
	}
	for y := -1; y <= 16; y++ {
		ay := sy*16 + y
		for z := -1; z <= 16; z++ {
			az := cz*16 + z
			var chunk *ChunkDatum
			lastCx := cx - 2
			for x := -1; x <= 16; x++ {
				ax := cx*16 + x
				if ax>>4 != lastCx {
					lastCx = ax >> 4
					chunk = v.Chunk(lastCx, az>>4)
				}
				if chunk == nil {
					continue
				}
				blocks := chunk.Section(ay >> 4)
				if blocks == nil {
					continue
				}
				s.blocks[shellIndex(x, y, z)] = blocks[ax&15|(az&15)<<4|(ay&15)<<8]
			}
		}
	}
	return s
}

const shellSide = 18

func shellIndex(x, y, z int) int {
	return (x + 1) + (z+1)*shellSide + (y+1)*shellSide*shellSide
}

// Section holds the block ids of one section and its shell, and answers
// block queries in section relative coordinates from -1 to 16.
type Section struct {
	Cx, Sy, Cz int
	blocks     [shellSide * shellSide * shellSide]uint16
	classes    Classes
	floor      bool
}

func (s *Section) BlockAt(x, y, z int) uint16 {
	return s.blocks[shellIndex(x, y, z)]
}

func (s *Section) IsClosed(b uint16, x, y, z int) bool {
	if y < 0 && s.floor {
		return true
	}
	return s.classes.IsSolid(b)
}

func (s *Section) IsInvisible(b uint16) bool {
	return s.classes.IsInvisible(b)
}

// IsEmpty reports whether the section itself holds nothing but air.
func (s *Section) IsEmpty() bool {
	for y := range 16 {
		for z := range 16 {
			for x := range 16 {
				if s.BlockAt(x, y, z) != 0 {
					return false
				}
			}
		}
	}
	return true
}
