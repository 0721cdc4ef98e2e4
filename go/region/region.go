package region

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

type RegionOpener func(path string, bm *BlockMapper) (Regioner, error)
type Regioner interface {
	ReadChunks(wanted []int) ([1024]ChunkDatum, error)
	Rx() int
	Rz() int
}

type paletteEntry struct {
	name  string
	props []string
}

var regionMatchRE = regexp.MustCompile(`r\.(-?\d+)\.(-?\d+)\.mca$`)

// ParseRegionName extracts the region coordinates from a file name like r.-1.2.mca.
func ParseRegionName(name string) (rx, rz int, ok bool) {
	m := regionMatchRE.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	rx, _ = strconv.Atoi(m[1])
	rz, _ = strconv.Atoi(m[2])
	return rx, rz, true
}

// Region is an Anvil region file: 32x32 chunks behind a table of sector offsets.
type Region struct {
	path       string
	rx, rz     int
	bm         *BlockMapper
	offsets    [1024]uint32
	timestamps [1024]uint32
}

func (r *Region) Rx() int { return r.rx }
func (r *Region) Rz() int { return r.rz }

// Timestamp is the last modification time of a chunk, in seconds.
func (r *Region) Timestamp(chunk int) uint32 { return r.timestamps[chunk] }

// ChunkDatum holds the block ids of one chunk column, one 4096 entry slice
// per section starting at section MinSection. Slices use x + z*16 + y*256.
type ChunkDatum struct {
	MinSection int
	Blocks     [][]uint16
}

// Section returns the blocks of the section at absolute section height sy,
// or nil if the chunk doesn't store it.
func (c *ChunkDatum) Section(sy int) []uint16 {
	i := sy - c.MinSection
	if i < 0 || i >= len(c.Blocks) {
		return nil
	}
	return c.Blocks[i]
}

func (c *ChunkDatum) MaxSection() int {
	return c.MinSection + len(c.Blocks) - 1
}

func Open(path string, bm *BlockMapper) (Regioner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rx, rz, ok := ParseRegionName(path)
	if !ok {
		slog.Warn("region file doesn't match expected r.X.Z.mca format", "path", path)
	}

	r := &Region{path: path, bm: bm, rx: rx, rz: rz}

	var buf [8192]uint8
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", path)
	}
	for i := 0; i < 1024; i++ {
		r.offsets[i] = binary.BigEndian.Uint32(buf[i*4:])
		r.timestamps[i] = binary.BigEndian.Uint32(buf[4096+i*4:])
	}

	return r, nil
}

// ReadChunks decodes the wanted chunks, or every chunk if wanted is empty.
// Chunks that are missing, unfinished or damaged are left empty.
func (r *Region) ReadChunks(wanted []int) ([1024]ChunkDatum, error) {
	var cdata [1024]ChunkDatum

	f, err := os.Open(r.path)
	if err != nil {
		return cdata, err
	}
	defer f.Close()

	maxSectors := 0 // size of largest chunk in region
	for _, offset := range r.offsets {
		if int(offset&255) > maxSectors {
			maxSectors = int(offset & 255)
		}
	}

	// read the region file in sequential order, by first sorting
	// a list of chunks indexes according to their offset in the region file
	seqChunks := make([]uint16, 0, 1024)
	if len(wanted) > 0 {
		for _, i := range wanted {
			if r.offsets[i] != 0 {
				seqChunks = append(seqChunks, uint16(i))
			}
		}
	} else {
		for i := 0; i < 1024; i++ {
			if r.offsets[i] != 0 {
				seqChunks = append(seqChunks, uint16(i))
			}
		}
	}
	sort.Slice(seqChunks, func(i, j int) bool {
		return r.offsets[seqChunks[i]] < r.offsets[seqChunks[j]]
	})

	// allocating these once per region saves memory
	chunkBuf := make([]byte, 4096*maxSectors)
	chunkDecompressed := bytes.NewBuffer(make([]byte, 0, 1<<20))
	var zr io.ReadCloser

	for _, chunkNum := range seqChunks {
		paddedLen := 4096 * int(r.offsets[chunkNum]&0xff)
		if _, err := f.ReadAt(chunkBuf[:paddedLen], int64(r.offsets[chunkNum]>>8)*4096); err != nil && err != io.EOF {
			return cdata, errors.Wrapf(err, "reading chunk %d of %s", chunkNum, r.path)
		}
		chunkLen := int(binary.BigEndian.Uint32(chunkBuf))
		if chunkLen+4 > paddedLen || chunkLen < 1 {
			slog.Warn("chunk length exceeds its sectors", "path", r.path, "chunk", chunkNum, "len", chunkLen)
			continue
		}
		if chunkBuf[4] != 2 {
			slog.Warn("unhandled compression type", "path", r.path, "chunk", chunkNum, "type", chunkBuf[4])
			continue
		}

		chunkReader := bytes.NewReader(chunkBuf[5 : chunkLen+4])
		if zr == nil {
			zr, err = zlib.NewReader(chunkReader)
		} else {
			err = zr.(zlib.Resetter).Reset(chunkReader, nil)
		}
		if err != nil {
			return cdata, errors.Wrapf(err, "opening chunk %d of %s", chunkNum, r.path)
		}
		chunkDecompressed.Reset()
		if _, err := chunkDecompressed.ReadFrom(zr); err != nil {
			return cdata, errors.Wrapf(err, "decompressing chunk %d of %s", chunkNum, r.path)
		}

		xPos, zPos := int(chunkNum&31)|r.rx<<5, int(chunkNum>>5)|r.rz<<5
		chunk, err := r.decodeChunk(chunkDecompressed.Bytes(), xPos, zPos)
		if err != nil {
			return cdata, errors.Wrapf(err, "decoding chunk %d of %s", chunkNum, r.path)
		}
		if chunk != nil {
			cdata[chunkNum] = *chunk
		}
	}

	return cdata, nil
}

// decodeChunk returns nil for chunks that should be treated as absent.
func (r *Region) decodeChunk(data []byte, xPos, zPos int) (*ChunkDatum, error) {
	dataVersion := 0
	var blockStates [][]byte
	var palettes [][]paletteEntry
	var ys []int
	legacy := false
	chunkXPos, chunkZPos := math.MaxInt64, math.MaxInt64
	chunkStatus := ""

	section := func(i int) {
		for len(palettes) <= i {
			palettes = append(palettes, nil)
			blockStates = append(blockStates, nil)
		}
	}

	err := NbtWalk(data, func(path []string, idxes []int, ty NbtType, value []byte) {
		if len(path) == 0 {
			return
		}
		last := path[len(path)-1]
		if len(path) <= 2 && ty == TagInt {
			switch last {
			case "xPos":
				chunkXPos = int(int32(binary.BigEndian.Uint32(value)))
			case "zPos":
				chunkZPos = int(int32(binary.BigEndian.Uint32(value)))
			case "DataVersion":
				dataVersion = int(binary.BigEndian.Uint32(value))
			}
			return
		}
		if len(path) <= 2 && last == "Status" && ty == TagString {
			chunkStatus = string(value)
			return
		}
		// 1.18+ keeps sections at the root, older versions under Level
		if !(path[0] == "sections" || len(path) > 1 && path[1] == "Sections") || len(idxes) == 0 {
			return
		}
		penult := path[len(path)-2]
		section(idxes[0])
		switch {
		case len(idxes) == 2 && len(path) > 4 && (path[3] == "Palette" || path[2] == "block_states" && path[3] == "palette"):
			cpal := &palettes[idxes[0]]
			for idxes[1] >= len(*cpal) {
				*cpal = append(*cpal, paletteEntry{})
			}
			entry := &(*cpal)[idxes[1]]
			if last == "Name" {
				entry.name = string(value)
			} else if len(path) == 7 && path[5] == "Properties" {
				entry.props = append(entry.props, last+"="+string(value))
			}
		case ty == TagByteArray && last == "Blocks":
			legacy = true
		case ty == TagLongArray && (last == "BlockStates" || last == "data" && penult == "block_states"):
			blockStates[idxes[0]] = value
		case ty == TagByte && last == "Y":
			for len(ys) <= idxes[0] {
				ys = append(ys, math.MinInt)
			}
			ys[idxes[0]] = int(int8(value[0]))
		}
	})
	if err != nil {
		return nil, err
	}

	if (chunkXPos != math.MaxInt64 && chunkXPos != xPos) || (chunkZPos != math.MaxInt64 && chunkZPos != zPos) {
		slog.Warn("chunk misplaced (corrupt region file?)", "path", r.path, "want", [2]int{xPos, zPos}, "got", [2]int{chunkXPos, chunkZPos})
		return nil, nil
	}
	if chunkStatus != "" && chunkStatus != "minecraft:full" && chunkStatus != "full" {
		return nil, nil // skip proto-chunks
	}
	if legacy {
		slog.Warn("pre-1.13 chunk format is not supported", "path", r.path, "x", xPos, "z", zPos)
		return nil, nil
	}

	// drop sections that only carry light data
	type sectionData struct {
		y      int
		states []byte
		pal    []paletteEntry
	}
	var sections []sectionData
	for i, y := range ys {
		if y == math.MinInt || i >= len(palettes) || len(palettes[i]) == 0 {
			continue
		}
		sections = append(sections, sectionData{y, blockStates[i], palettes[i]})
	}
	if len(sections) == 0 {
		return &ChunkDatum{}, nil
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].y < sections[j].y })
	// omit the all-air sections on top
	for len(sections) > 0 {
		top := sections[len(sections)-1]
		if len(top.states) == 0 && len(top.pal) == 1 && trimNamespace(top.pal[0].name) == "air" {
			sections = sections[:len(sections)-1]
		} else {
			break
		}
	}

	chunk := &ChunkDatum{}
	if len(sections) == 0 {
		return chunk, nil
	}
	chunk.MinSection = sections[0].y
	palNids := make([]uint16, 0, 64)
	for _, s := range sections {
		// gaps in the section list are air
		for chunk.MaxSection() < s.y-1 {
			chunk.Blocks = append(chunk.Blocks, make([]uint16, 4096))
		}
		palNids = palNids[:0]
		for _, p := range s.pal {
			palNids = append(palNids, r.bm.Nid(p.name))
		}
		vals := make([]uint16, 4096)
		if len(s.states) == 0 {
			// single entry palette, no data array
			if palNids[0] != 0 {
				for i := range vals {
					vals[i] = palNids[0]
				}
			}
		} else {
			var idx []uint16
			if dataVersion < 2529 {
				// before 1.16 snapshot 20w17a
				idx = blockstatesToShortsPacked(s.states)
			} else {
				idx = blockstatesToShorts116(s.states)
			}
			for i, v := range idx {
				if int(v) >= len(palNids) {
					return nil, errors.Errorf("palette index %d out of range (%d entries) in section %d", v, len(palNids), s.y)
				}
				vals[i] = palNids[v]
			}
		}
		chunk.Blocks = append(chunk.Blocks, vals)
	}
	return chunk, nil
}

// 1.16 64-bit BlockState long array to uint16 array
func blockstatesToShorts116(value []byte) []uint16 {
	bpb := (64 * (len(value) / 8)) / 4096
	if bpb < 4 {
		bpb = 4
	}

	ret := make([]uint16, 4096)
	bmask := uint64(1<<bpb) - 1
	bpe := 64 / bpb
	for bsi := 0; bsi < len(value)/8; bsi++ {
		v := binary.BigEndian.Uint64(value[bsi*8:])
		for i := 0; i < bpe; i++ {
			nido := bsi*bpe + i
			if nido >= 4096 {
				break
			}
			ret[nido] = uint16((v >> (i * bpb)) & bmask)
		}
	}
	return ret
}

// pre-1.16, blockstates are packed to use every bit possible
func blockstatesToShortsPacked(value []byte) []uint16 {
	bpb := (64 * (len(value) / 8)) / 4096
	if bpb == 0 || 64%bpb == 0 {
		// simple case: the state bits fit into longs with no slop
		return blockstatesToShorts116(value)
	}

	bmask := uint32(1<<bpb) - 1
	ret := make([]uint16, 4096)
	var bitbuf uint32
	bits := 0
	vptr := 0
	for i := 0; i < 4096; i++ {
		for bits < bpb {
			// n.b.: value is a representation of *big endian* longs
			// this bit twiddling reads it in the right order
			bitbuf |= uint32(value[vptr&^7+(7-vptr&7)]) << bits
			bits += 8
			vptr++
		}
		ret[i] = uint16(bitbuf & bmask)
		bitbuf >>= bpb
		bits -= bpb
	}

	return ret
}
