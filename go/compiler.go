package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/rmmh/cubeoccluder/go/occlusion"
	"github.com/rmmh/cubeoccluder/go/region"
	"github.com/rmmh/cubeoccluder/go/store"
)

// compiler turns loaded regions into cull data. Each worker owns one.
type compiler struct {
	region *occlusion.Region
	verify bool
	// onSection, if set, sees every compiled section.
	onSection func(e store.Entry, solid bool)
}

func newCompiler(verify bool) *compiler {
	return &compiler{region: occlusion.NewRegion(), verify: verify}
}

type compileStats struct {
	Sections int
	Solid    int
	Empty    int
	Boxes    int
	Ranges   [3]int
}

func (s *compileStats) add(o compileStats) {
	s.Sections += o.Sections
	s.Solid += o.Solid
	s.Empty += o.Empty
	s.Boxes += o.Boxes
	for i := range s.Ranges {
		s.Ranges[i] += o.Ranges[i]
	}
}

func (s *compileStats) record(cd occlusion.CullData, solid bool) {
	s.Sections++
	if solid {
		s.Solid++
	}
	if cd.Bounds() == occlusion.EmptyBox {
		s.Empty++
	}
	for _, b := range cd.Boxes() {
		s.Boxes++
		s.Ranges[b.Range()]++
	}
}

func (s compileStats) String() string {
	return fmt.Sprintf("%d sections (%d solid, %d empty), %d boxes (near=%d medium=%d far=%d)",
		s.Sections, s.Solid, s.Empty, s.Boxes, s.Ranges[occlusion.RangeNear], s.Ranges[occlusion.RangeMedium], s.Ranges[occlusion.RangeFar])
}

// compileView compiles every stored section of a loaded region.
func (c *compiler) compileView(world string, v *region.RegionView) ([]store.Entry, compileStats, error) {
	var entries []store.Entry
	var stats compileStats
	built := time.Now()
	for _, col := range v.Columns() {
		chunk := v.Chunk(col[0], col[1])
		for sy := chunk.MinSection; sy <= chunk.MaxSection(); sy++ {
			cd := c.region.Prepare(v.Section(col[0], sy, col[1]))
			if c.verify {
				if err := c.region.Verify(cd); err != nil {
					return nil, stats, errors.Wrapf(err, "section %d,%d,%d", col[0], sy, col[1])
				}
			}
			e := store.Entry{
				Key:   store.Key{World: world, Cx: col[0], Sy: sy, Cz: col[1]},
				Built: built,
				Data:  cd,
			}
			stats.record(cd, c.region.IsSolid())
			if c.onSection != nil {
				c.onSection(e, c.region.IsSolid())
			}
			entries = append(entries, e)
		}
	}
	return entries, stats, nil
}

func (c *compiler) compileRegion(ctx context.Context, st *store.Store, world string, w *region.World, rx, rz int) (compileStats, error) {
	if err := ctx.Err(); err != nil {
		return compileStats{}, err
	}
	start := time.Now()
	v, err := w.Load(rx, rz)
	if err != nil {
		return compileStats{}, err
	}
	entries, stats, err := c.compileView(world, v)
	if err != nil {
		return stats, errors.Wrapf(err, "region %d,%d", rx, rz)
	}
	if err := st.PutAll(ctx, entries); err != nil {
		return stats, err
	}
	slog.Info("compiled region", "world", world, "rx", rx, "rz", rz,
		"sections", stats.Sections, "boxes", stats.Boxes, "elapsed", time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// compileWorld compiles every region of a world whose file name contains one
// of filters, or every region if there are none.
func compileWorld(ctx context.Context, cfg *Config, st *store.Store, world string, w *region.World, filters []string) (compileStats, error) {
	regions, err := w.Regions()
	if err != nil {
		return compileStats{}, err
	}
	if len(filters) > 0 {
		regions = lo.Filter(regions, func(r [2]int, _ int) bool {
			name := fmt.Sprintf("r.%d.%d.mca", r[0], r[1])
			return lo.SomeBy(filters, func(f string) bool { return strings.Contains(name, f) })
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		total    compileStats
		firstErr error
		mu       sync.Mutex
		wg       sync.WaitGroup
	)
	work := make(chan [2]int)
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newCompiler(cfg.Verify)
			for r := range work {
				stats, err := c.compileRegion(ctx, st, world, w, r[0], r[1])
				mu.Lock()
				total.add(stats)
				if err != nil && firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		}()
	}

	start := time.Now()
feed:
	for _, r := range regions {
		select {
		case work <- r:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return total, firstErr
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}
	slog.Info("compiled world", "world", world, "regions", len(regions), "summary", total.String(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return total, nil
}
