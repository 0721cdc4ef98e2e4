package region

import (
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"
)

type NbtType int

const (
	TagEnd NbtType = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// element widths of the fixed size tags and arrays
var nbtWidths = [...]int{
	TagByte: 1, TagShort: 2, TagInt: 4, TagLong: 8, TagFloat: 4, TagDouble: 8,
	TagByteArray: 1, TagIntArray: 4, TagLongArray: 8,
}

// NbtVisitor receives every tag below the root compound. path holds the tag
// names from the root, with list elements named by their position, and idxes
// the positions within each enclosing list. value aliases the input buffer.
//
// Lists of numbers are reported once, as a single value holding the whole
// payload, with ty set to the negated element type.
type NbtVisitor func(path []string, idxes []int, ty NbtType, value []byte)

type nbtWalker struct {
	buf   []byte
	off   int
	path  []string
	idxes []int
	visit NbtVisitor
}

// NbtWalk streams an uncompressed NBT document to visit without copying.
func NbtWalk(buf []byte, visit NbtVisitor) error {
	w := &nbtWalker{buf: buf, visit: visit}
	for w.off < len(w.buf) {
		ty, err := w.tagType()
		if err != nil {
			return err
		}
		if ty == TagEnd {
			continue
		}
		// the root name is not part of the path
		if _, err := w.name(); err != nil {
			return err
		}
		if err := w.payload(ty, true); err != nil {
			return err
		}
	}
	return nil
}

func (w *nbtWalker) take(n int) ([]byte, error) {
	if n < 0 || w.off+n > len(w.buf) {
		return nil, errors.Errorf("nbt truncated: need %d bytes at offset %d of %d", n, w.off, len(w.buf))
	}
	b := w.buf[w.off : w.off+n]
	w.off += n
	return b, nil
}

func (w *nbtWalker) tagType() (NbtType, error) {
	b, err := w.take(1)
	if err != nil {
		return 0, err
	}
	ty := NbtType(b[0])
	if ty > TagLongArray {
		return 0, errors.Errorf("unknown nbt tag type %d at offset %d", ty, w.off-1)
	}
	return ty, nil
}

func (w *nbtWalker) length(size int) (int, error) {
	b, err := w.take(size)
	if err != nil {
		return 0, err
	}
	if size == 2 {
		return int(binary.BigEndian.Uint16(b)), nil
	}
	return int(int32(binary.BigEndian.Uint32(b))), nil
}

func (w *nbtWalker) name() (string, error) {
	n, err := w.length(2)
	if err != nil {
		return "", err
	}
	b, err := w.take(n)
	return string(b), err
}

func (w *nbtWalker) payload(ty NbtType, root bool) error {
	switch ty {
	case TagByte, TagShort, TagInt, TagLong, TagFloat, TagDouble:
		v, err := w.take(nbtWidths[ty])
		if err != nil {
			return err
		}
		w.visit(w.path, w.idxes, ty, v)
	case TagByteArray, TagIntArray, TagLongArray:
		n, err := w.length(4)
		if err != nil {
			return err
		}
		v, err := w.take(n * nbtWidths[ty])
		if err != nil {
			return err
		}
		w.visit(w.path, w.idxes, ty, v)
	case TagString:
		n, err := w.length(2)
		if err != nil {
			return err
		}
		v, err := w.take(n)
		if err != nil {
			return err
		}
		w.visit(w.path, w.idxes, ty, v)
	case TagCompound:
		if !root {
			w.visit(w.path, w.idxes, ty, nil)
		}
		for {
			child, err := w.tagType()
			if err != nil {
				return err
			}
			if child == TagEnd {
				return nil
			}
			name, err := w.name()
			if err != nil {
				return err
			}
			w.path = append(w.path, name)
			err = w.payload(child, false)
			w.path = w.path[:len(w.path)-1]
			if err != nil {
				return err
			}
		}
	case TagList:
		elem, err := w.tagType()
		if err != nil {
			return err
		}
		n, err := w.length(4)
		if err != nil {
			return err
		}
		if elem >= TagByte && elem <= TagDouble {
			v, err := w.take(n * nbtWidths[elem])
			if err != nil {
				return err
			}
			w.visit(w.path, w.idxes, -elem, v)
			return nil
		}
		if n > 0 && elem == TagEnd {
			return errors.Errorf("nbt list of %d end tags at offset %d", n, w.off)
		}
		for i := 0; i < n; i++ {
			w.path = append(w.path, strconv.Itoa(i))
			w.idxes = append(w.idxes, i)
			err := w.payload(elem, false)
			w.path = w.path[:len(w.path)-1]
			w.idxes = w.idxes[:len(w.idxes)-1]
			if err != nil {
				return err
			}
		}
	default:
		return errors.Errorf("unhandled nbt tag type %d", ty)
	}
	return nil
}
