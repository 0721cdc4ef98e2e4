package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmmh/cubeoccluder/go/occlusion"
	"github.com/rmmh/cubeoccluder/go/region"
	"github.com/rmmh/cubeoccluder/go/store"
)

func testServer(t *testing.T) (*server, http.Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := defaults()
	cfg.Workers = 2
	s := newServer(cfg, testStore(t), map[string]*region.World{
		"overworld": region.NewFakeWorld(region.DefaultBlockMapper(), 1),
	})
	s.start(ctx)
	return s, s.router()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func assertJSON(t *testing.T, want string, got []byte) {
	t.Helper()
	opts := jsondiff.DefaultConsoleOptions()
	diff, str := jsondiff.Compare([]byte(want), got, &opts)
	assert.Equal(t, jsondiff.FullMatch, diff, str)
}

func TestServeStoredRegion(t *testing.T) {
	s, h := testServer(t)
	require.NoError(t, s.store.PutAll(context.Background(), []store.Entry{
		{Key: store.Key{World: "overworld", Cx: 160, Sy: 3, Cz: 161}, Data: occlusion.CullData{
			occlusion.Pack(0, 0, 0, 16, 9, 16),
			occlusion.Pack(0, 0, 0, 16, 8, 16),
			occlusion.Pack(3, 8, 0, 4, 9, 1),
		}},
		{Key: store.Key{World: "overworld", Cx: 160, Sy: 4, Cz: 161}, Data: occlusion.CullData{occlusion.EmptyBox}},
	}))

	rec := get(t, h, "/overworld/region/5/5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assertJSON(t, `{
		"world": "overworld", "rx": 5, "rz": 5,
		"sections": [
			{"cx": 160, "sy": 3, "cz": 161, "bounds": [0, 0, 0, 16, 9, 16],
			 "boxes": [[0, 0, 0, 16, 8, 16], [3, 8, 0, 4, 9, 1]]},
			{"cx": 160, "sy": 4, "cz": 161, "bounds": [0, 0, 0, 0, 0, 0], "boxes": []}
		]
	}`, rec.Body.Bytes())

	rec = get(t, h, "/overworld/cull/160/3/161")
	require.Equal(t, http.StatusOK, rec.Code)
	assertJSON(t, `{"bounds": [0, 0, 0, 16, 9, 16], "boxes": [[0, 0, 0, 16, 8, 16], [3, 8, 0, 4, 9, 1]]}`, rec.Body.Bytes())
}

func TestServeCompilesOnDemand(t *testing.T) {
	_, h := testServer(t)

	// concurrent requests for one region share a single compile
	var wg sync.WaitGroup
	recs := make([]*httptest.ResponseRecorder, 4)
	for i := range recs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs[i] = get(t, h, "/overworld/cull/0/0/0")
		}()
	}
	wg.Wait()
	for _, rec := range recs {
		require.Equal(t, http.StatusOK, rec.Code)
		assertJSON(t, `{"bounds": [0, 0, 0, 16, 16, 16], "boxes": [[0, 0, 0, 16, 16, 16]]}`, rec.Body.Bytes())
	}

	rec := get(t, h, "/overworld/region/0/0")
	require.Equal(t, http.StatusOK, rec.Code)
	var out regionJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Sections, fakeSectionsPerRegion)
	assert.Equal(t, 0, *out.Sections[0].Cx)
	assert.Equal(t, 0, *out.Sections[0].Sy)
	assert.Equal(t, 0, *out.Sections[0].Cz)

	// above the stored sections there is nothing to serve
	rec = get(t, h, "/overworld/cull/0/9/0")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeBadRequests(t *testing.T) {
	_, h := testServer(t)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/nether/cull/0/0/0").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/overworld/cull/a/0/0").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/overworld/cull/0/0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/overworld/cull/0/99999999999999999999/0").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/overworld/cull/0/0/0", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
