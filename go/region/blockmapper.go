package region

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed blocks.yaml
var defaultBlockTable []byte

type BlockTable struct {
	Invisible          []string `yaml:"invisible"`
	Transparent        []string `yaml:"transparent"`
	TransparentInfixes []string `yaml:"transparent_infixes"`
	Solid              []string `yaml:"solid"`
	SolidSuffixes      []string `yaml:"solid_suffixes"`
}

// BlockMapper assigns numeric ids to block names and classifies them. Ids
// are handed out on first use, so one mapper can be shared by every reader.
// Id 0 is air.
type BlockMapper struct {
	table       BlockTable
	invisible   map[string]bool
	transparent map[string]bool
	solidNames  map[string]bool

	mu        sync.RWMutex
	nameToNid map[string]uint16
	nidToName []string
	classes   Classes
}

// Classes is an immutable view of block classifications, indexed by id.
type Classes struct {
	solid     []uint64
	invisible []uint64
}

func (c Classes) IsSolid(b uint16) bool {
	return int(b>>6) < len(c.solid) && c.solid[b>>6]&(1<<(b&63)) != 0
}

func (c Classes) IsInvisible(b uint16) bool {
	return int(b>>6) < len(c.invisible) && c.invisible[b>>6]&(1<<(b&63)) != 0
}

func trimNamespace(name string) string {
	return strings.TrimPrefix(name, "minecraft:")
}

func LoadBlockMapper(buf []byte) (*BlockMapper, error) {
	var table BlockTable
	if err := yaml.Unmarshal(buf, &table); err != nil {
		return nil, errors.Wrap(err, "unable to decode block table")
	}
	if len(table.Invisible) == 0 {
		return nil, errors.New("block table lists no invisible blocks")
	}

	set := func(names []string) map[string]bool {
		return lo.SliceToMap(names, func(n string) (string, bool) { return trimNamespace(n), true })
	}
	bm := &BlockMapper{
		table:       table,
		invisible:   set(table.Invisible),
		transparent: set(table.Transparent),
		solidNames:  set(table.Solid),
		nameToNid:   map[string]uint16{},
		nidToName:   []string{"air"},
	}
	bm.classes.invisible = []uint64{1}
	bm.classes.solid = []uint64{0}
	for _, name := range []string{"air", "cave_air", "void_air"} {
		bm.nameToNid[name] = 0
	}
	return bm, nil
}

// DefaultBlockMapper uses the block table embedded in the binary.
func DefaultBlockMapper() *BlockMapper {
	bm, err := LoadBlockMapper(defaultBlockTable)
	if err != nil {
		panic(err)
	}
	return bm
}

func (bm *BlockMapper) classify(name string) (solid, invisible bool) {
	if bm.invisible[name] {
		return false, true
	}
	if bm.transparent[name] || lo.SomeBy(bm.table.TransparentInfixes, func(s string) bool { return strings.Contains(name, s) }) {
		return false, false
	}
	if bm.solidNames[name] || lo.SomeBy(bm.table.SolidSuffixes, func(s string) bool { return strings.HasSuffix(name, s) }) {
		return true, false
	}
	return false, false
}

// Nid returns the id for a block name, allocating one if needed.
func (bm *BlockMapper) Nid(name string) uint16 {
	name = trimNamespace(name)
	bm.mu.RLock()
	n, ok := bm.nameToNid[name]
	bm.mu.RUnlock()
	if ok {
		return n
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	if n, ok := bm.nameToNid[name]; ok {
		return n
	}
	n = uint16(len(bm.nidToName))
	bm.nameToNid[name] = n
	bm.nidToName = append(bm.nidToName, name)

	// copy on write so Classes handed out earlier never change
	solid, invisible := bm.classify(name)
	words := int(n>>6) + 1
	grow := func(src []uint64, v bool) []uint64 {
		dst := make([]uint64, max(words, len(src)))
		copy(dst, src)
		if v {
			dst[n>>6] |= 1 << (n & 63)
		}
		return dst
	}
	bm.classes = Classes{solid: grow(bm.classes.solid, solid), invisible: grow(bm.classes.invisible, invisible)}
	return n
}

func (bm *BlockMapper) Name(nid uint16) string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	if int(nid) >= len(bm.nidToName) {
		return ""
	}
	return bm.nidToName[nid]
}

// Classes returns the classification of every id allocated so far.
func (bm *BlockMapper) Classes() Classes {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return bm.classes
}

func (bm *BlockMapper) IsSolid(nid uint16) bool {
	return bm.Classes().IsSolid(nid)
}

func (bm *BlockMapper) IsInvisible(nid uint16) bool {
	return bm.Classes().IsInvisible(nid)
}

func (bm *BlockMapper) Len() int {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return len(bm.nidToName)
}
