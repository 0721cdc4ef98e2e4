package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"

	"github.com/rmmh/cubeoccluder/go/region"
	"github.com/rmmh/cubeoccluder/go/store"
)

// printStats compiles one region without storing it and prints a line per
// section height followed by the region totals.
func printStats(out io.Writer, cfg *Config, world string, w *region.World, rx, rz int) error {
	v, err := w.Load(rx, rz)
	if err != nil {
		return err
	}
	layers := map[int]*compileStats{}
	c := newCompiler(cfg.Verify)
	c.onSection = func(e store.Entry, solid bool) {
		if layers[e.Sy] == nil {
			layers[e.Sy] = &compileStats{}
		}
		layers[e.Sy].record(e.Data, solid)
	}
	_, total, err := c.compileView(world, v)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "region %s r.%d.%d: %d columns\n", world, rx, rz, len(v.Columns()))
	heights := lo.Keys(layers)
	sort.Ints(heights)
	for _, sy := range heights {
		fmt.Fprintf(out, "  sy=%-3d %s\n", sy, layers[sy])
	}
	fmt.Fprintf(out, "total: %s\n", total)
	return nil
}
