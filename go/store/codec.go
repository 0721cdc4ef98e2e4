package store

import (
	"encoding/binary"

	lz4 "github.com/DataDog/golz4-2"
	"github.com/pkg/errors"

	"github.com/rmmh/cubeoccluder/go/occlusion"
)

// encodings, stored in the first byte of every blob:
//
//	0: little endian uint32 + lz4
//	1: varint + lz4
//	2: delta-varint + lz4
const (
	encodingRaw byte = iota
	encodingVarint
	encodingDelta
)

func compress(tag byte, buf []byte) ([]byte, error) {
	comp := make([]byte, lz4.CompressBoundHdr(buf)+1)
	n, err := lz4.CompressHCHdr(comp[1:], buf)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 compression failed")
	}
	comp[0] = tag
	return comp[:n+1], nil
}

// Encode serializes cull data, trying each encoding and keeping the smallest.
func Encode(cd occlusion.CullData) ([]byte, error) {
	buf := make([]byte, len(cd)*binary.MaxVarintLen32)

	for i, b := range cd {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(b))
	}
	best, err := compress(encodingRaw, buf[:len(cd)*4])
	if err != nil {
		return nil, err
	}

	off := 0
	for _, b := range cd {
		off += binary.PutUvarint(buf[off:], uint64(b))
	}
	enc, err := compress(encodingVarint, buf[:off])
	if err != nil {
		return nil, err
	}
	if len(enc) < len(best) {
		best = enc
	}

	// delta-varint
	off = 0
	last := int64(0)
	for _, b := range cd {
		off += binary.PutVarint(buf[off:], int64(b)-last)
		last = int64(b)
	}
	enc, err = compress(encodingDelta, buf[:off])
	if err != nil {
		return nil, err
	}
	if len(enc) < len(best) {
		best = enc
	}
	return best, nil
}

func Decode(blob []byte) (occlusion.CullData, error) {
	if len(blob) < 2 {
		return nil, errors.Errorf("cull blob too short (%d bytes)", len(blob))
	}
	buf, err := lz4.UncompressAllocHdr(nil, blob[1:])
	if err != nil {
		return nil, errors.Wrap(err, "lz4 decompression failed")
	}

	var cd occlusion.CullData
	switch blob[0] {
	case encodingRaw:
		if len(buf)%4 != 0 {
			return nil, errors.Errorf("raw cull data has odd length %d", len(buf))
		}
		for i := 0; i < len(buf); i += 4 {
			cd = append(cd, occlusion.PackedBox(binary.LittleEndian.Uint32(buf[i:])))
		}
	case encodingVarint:
		for i := 0; i < len(buf); {
			v, n := binary.Uvarint(buf[i:])
			if n <= 0 {
				return nil, errors.Errorf("bad varint at offset %d", i)
			}
			i += n
			cd = append(cd, occlusion.PackedBox(v))
		}
	case encodingDelta:
		last := int64(0)
		for i := 0; i < len(buf); {
			v, n := binary.Varint(buf[i:])
			if n <= 0 {
				return nil, errors.Errorf("bad varint at offset %d", i)
			}
			i += n
			last += v
			cd = append(cd, occlusion.PackedBox(last))
		}
	default:
		return nil, errors.Errorf("unknown cull encoding %d", blob[0])
	}
	return cd, nil
}
