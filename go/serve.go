package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/rmmh/cubeoccluder/go/occlusion"
	"github.com/rmmh/cubeoccluder/go/region"
	"github.com/rmmh/cubeoccluder/go/store"
)

type workItem struct {
	world string
	rx    int
	rz    int
	err   error
	done  chan struct{}
}

type workKey struct {
	world  string
	rx, rz int
}

type server struct {
	cfg    *Config
	worlds map[string]*region.World
	store  *store.Store

	workQueue chan *workItem

	working  map[workKey][]*workItem
	workLock sync.Mutex
}

func newServer(cfg *Config, st *store.Store, worlds map[string]*region.World) *server {
	return &server{
		cfg:       cfg,
		worlds:    worlds,
		store:     st,
		workQueue: make(chan *workItem),
		working:   make(map[workKey][]*workItem),
	}
}

// mapWorker compiles queued regions. Requests for a region that is already
// being compiled wait for that compile instead of starting another.
func (s *server) mapWorker(ctx context.Context) {
	c := newCompiler(s.cfg.Verify)
	for {
		var item *workItem
		select {
		case <-ctx.Done():
			return
		case item = <-s.workQueue:
		}
		key := workKey{item.world, item.rx, item.rz}
		s.workLock.Lock()
		_, exists := s.working[key]
		s.working[key] = append(s.working[key], item)
		s.workLock.Unlock()
		if exists {
			// another worker is already processing this region, and will
			// dispatch the event when ready
			continue
		}
		_, err := c.compileRegion(ctx, s.store, item.world, s.worlds[item.world], item.rx, item.rz)
		if err != nil {
			slog.Error("compile failed", "world", item.world, "rx", item.rx, "rz", item.rz, "err", err)
		}
		s.workLock.Lock()
		for _, wait := range s.working[key] {
			wait.err = err
			close(wait.done)
		}
		delete(s.working, key)
		s.workLock.Unlock()
	}
}

func (s *server) awaitCompile(ctx context.Context, world string, rx, rz int) error {
	work := &workItem{
		world: world,
		rx:    rx,
		rz:    rz,
		done:  make(chan struct{}),
	}
	select {
	case s.workQueue <- work:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-work.done:
		return work.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type boxJSON [6]int

func toBoxJSON(b occlusion.PackedBox) boxJSON {
	x0, y0, z0, x1, y1, z1 := b.Unpack()
	return boxJSON{x0, y0, z0, x1, y1, z1}
}

type cullJSON struct {
	Cx     *int      `json:"cx,omitempty"`
	Sy     *int      `json:"sy,omitempty"`
	Cz     *int      `json:"cz,omitempty"`
	Bounds boxJSON   `json:"bounds"`
	Boxes  []boxJSON `json:"boxes"`
}

func toCullJSON(cd occlusion.CullData) cullJSON {
	return cullJSON{
		Bounds: toBoxJSON(cd.Bounds()),
		Boxes:  lo.Map(cd.Boxes(), func(b occlusion.PackedBox, _ int) boxJSON { return toBoxJSON(b) }),
	}
}

type regionJSON struct {
	World    string     `json:"world"`
	Rx       int        `json:"rx"`
	Rz       int        `json:"rz"`
	Sections []cullJSON `json:"sections"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "err", err)
	}
}

func httpError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	slog.Error("request failed", "path", r.URL.Path, "err", err)
	http.Error(w, http.StatusText(status), status)
}

// vars returns the requested world and the integer route variables, or
// writes an error and returns false.
func (s *server) vars(w http.ResponseWriter, r *http.Request, names ...string) (string, []int, bool) {
	vars := mux.Vars(r)
	world := vars["world"]
	if s.worlds[world] == nil {
		http.NotFound(w, r)
		return "", nil, false
	}
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(vars[name])
		if err != nil {
			http.Error(w, "bad "+name, http.StatusBadRequest)
			return "", nil, false
		}
		out[i] = v
	}
	return world, out, true
}

func (s *server) cullHandler(w http.ResponseWriter, r *http.Request) {
	world, c, ok := s.vars(w, r, "cx", "sy", "cz")
	if !ok {
		return
	}
	key := store.Key{World: world, Cx: c[0], Sy: c[1], Cz: c[2]}
	cd, found, err := s.store.Get(r.Context(), key)
	if err == nil && !found {
		if err = s.awaitCompile(r.Context(), world, key.Cx>>5, key.Cz>>5); err == nil {
			cd, found, err = s.store.Get(r.Context(), key)
		}
	}
	if err != nil {
		httpError(w, r, err)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, toCullJSON(cd))
}

func (s *server) regionHandler(w http.ResponseWriter, r *http.Request) {
	world, c, ok := s.vars(w, r, "rx", "rz")
	if !ok {
		return
	}
	rx, rz := c[0], c[1]
	var entries []store.Entry
	var err error
	if r.URL.Query().Get("rebuild") == "" {
		entries, err = s.store.Region(r.Context(), world, rx, rz)
	}
	if err == nil && len(entries) == 0 {
		if err = s.awaitCompile(r.Context(), world, rx, rz); err == nil {
			entries, err = s.store.Region(r.Context(), world, rx, rz)
		}
	}
	if err != nil {
		httpError(w, r, err)
		return
	}
	out := regionJSON{World: world, Rx: rx, Rz: rz, Sections: make([]cullJSON, 0, len(entries))}
	for _, e := range entries {
		cj := toCullJSON(e.Data)
		cj.Cx, cj.Sy, cj.Cz = lo.ToPtr(e.Cx), lo.ToPtr(e.Sy), lo.ToPtr(e.Cz)
		out.Sections = append(out.Sections, cj)
	}
	writeJSON(w, out)
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/{world}/cull/{cx:-?[0-9]+}/{sy:-?[0-9]+}/{cz:-?[0-9]+}", s.cullHandler).Methods(http.MethodGet)
	r.HandleFunc("/{world}/region/{rx:-?[0-9]+}/{rz:-?[0-9]+}", s.regionHandler).Methods(http.MethodGet)
	return r
}

func (s *server) start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		go s.mapWorker(ctx)
	}
}

func serve(ctx context.Context, cfg *Config, st *store.Store, worlds map[string]*region.World) error {
	s := newServer(cfg, st, worlds)
	s.start(ctx)

	srv := &http.Server{
		Handler:      s.router(),
		Addr:         cfg.Listen,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "addr", srv.Addr, "worlds", lo.Keys(worlds))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
