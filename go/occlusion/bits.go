package occlusion

import "math/bits"

const (
	wordCount     = (IndexCount + 63) / 64
	interiorWords = InteriorCount / 64
)

// voxelBits is a packed bitset over every interior and shell cell.
type voxelBits [wordCount]uint64

func (b *voxelBits) set(i int) {
	b[i>>6] |= 1 << (i & 63)
}

func (b *voxelBits) clear(i int) {
	b[i>>6] &^= 1 << (i & 63)
}

func (b *voxelBits) has(i int) bool {
	return b[i>>6]&(1<<(i&63)) != 0
}

func (b *voxelBits) put(i int, v bool) {
	if v {
		b.set(i)
	} else {
		b.clear(i)
	}
}

func (b *voxelBits) reset() {
	*b = voxelBits{}
}

// interior is the 64 word prefix covering the 16^3 interior, four words per Y layer.
func (b *voxelBits) interior() []uint64 {
	return b[:interiorWords]
}

func (b *voxelBits) interiorCount() int {
	n := 0
	for _, w := range b[:interiorWords] {
		n += bits.OnesCount64(w)
	}
	return n
}

func popcount4(s *[4]uint64) int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1]) + bits.OnesCount64(s[2]) + bits.OnesCount64(s[3])
}
