package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmmh/cubeoccluder/go/occlusion"
)

func TestCodec(t *testing.T) {
	for name, cd := range map[string]occlusion.CullData{
		"solid": {occlusion.FullBox, occlusion.FullBox},
		"empty": {occlusion.EmptyBox},
		"mixed": {
			occlusion.Pack(0, 0, 0, 16, 9, 16),
			occlusion.Pack(0, 0, 0, 16, 8, 16),
			occlusion.Pack(0, 8, 0, 7, 9, 16),
			occlusion.Pack(7, 8, 3, 8, 9, 4),
		},
		"many": lo.Times(300, func(i int) occlusion.PackedBox {
			return occlusion.Pack(i%16, i/16%16, 0, i%16+1, i/16%16+1, 1+i%15)
		}),
	} {
		blob, err := Encode(cd)
		require.NoError(t, err, name)
		got, err := Decode(blob)
		require.NoError(t, err, name)
		assert.Equal(t, cd, got, name)
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)

	blob, err := compress(7, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	_, err = Decode(blob)
	assert.ErrorContains(t, err, "unknown cull encoding 7")

	blob, err = compress(encodingRaw, []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = Decode(blob)
	assert.ErrorContains(t, err, "odd length")
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cull.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	key := Key{World: "overworld", Cx: -3, Sy: 4, Cz: 70}
	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	cd := occlusion.CullData{occlusion.Pack(0, 0, 0, 16, 4, 16), occlusion.Pack(0, 0, 0, 16, 3, 16)}
	require.NoError(t, s.Put(ctx, key, cd))
	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cd, got)

	// later writes replace earlier ones
	require.NoError(t, s.Put(ctx, key, occlusion.CullData{occlusion.EmptyBox}))
	got, _, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, occlusion.CullData{occlusion.EmptyBox}, got)

	n, err := s.Count(ctx, "overworld")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.Count(ctx, "nether")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreRegion(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	solid := occlusion.CullData{occlusion.FullBox, occlusion.FullBox}
	var entries []Entry
	for _, c := range [][3]int{{-1, 0, -1}, {-32, 2, -1}, {-32, 1, -1}, {0, 0, 0}, {-33, 0, -1}, {-5, 0, -33}} {
		entries = append(entries, Entry{Key: Key{World: "w", Cx: c[0], Sy: c[1], Cz: c[2]}, Data: solid})
	}
	entries = append(entries, Entry{Key: Key{World: "other", Cx: -1, Sy: 0, Cz: -1}, Data: solid})
	require.NoError(t, s.PutAll(ctx, entries))

	got, err := s.Region(ctx, "w", -1, -1)
	require.NoError(t, err)
	assert.Equal(t, []Key{
		{World: "w", Cx: -32, Sy: 1, Cz: -1},
		{World: "w", Cx: -32, Sy: 2, Cz: -1},
		{World: "w", Cx: -1, Sy: 0, Cz: -1},
	}, lo.Map(got, func(e Entry, _ int) Key { return e.Key }))
	for _, e := range got {
		assert.Equal(t, solid, e.Data)
	}

	got, err = s.Region(ctx, "w", 5, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
