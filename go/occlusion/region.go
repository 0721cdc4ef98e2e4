package occlusion

import (
	"github.com/gammazero/deque"
)

// Host supplies block data for one region and its shell. Coordinates are
// relative to the region origin and run from -1 to 16.
type Host interface {
	BlockAt(x, y, z int) uint16
	IsClosed(b uint16, x, y, z int) bool
	// IsInvisible reports blocks that never draw anything, like air. Fluids
	// are not invisible.
	IsInvisible(b uint16) bool
}

// CullData is the compiled output of a region: the bounds of everything
// renderable followed by the boxes covering its closed cells.
type CullData []PackedBox

func (cd CullData) Bounds() PackedBox {
	if len(cd) == 0 {
		return EmptyBox
	}
	return cd[0]
}

func (cd CullData) Boxes() []PackedBox {
	if len(cd) < 2 {
		return nil
	}
	return cd[1:]
}

// Region computes visibility and cull data for one region at a time. It is
// reused across regions and must not be shared between goroutines.
type Region struct {
	closed     voxelBits
	renderable voxelBits
	visited    voxelBits
	openCount  int
	pops       int
	solid      bool

	queue    deque.Deque[int]
	finder   *BoxFinder
	boxes    []PackedBox
	areas    *AreaFinder
	sections []*Area
}

func NewRegion() *Region {
	return &Region{
		finder: NewBoxFinder(),
		boxes:  make([]PackedBox, 0, 64),
		areas:  NewAreaFinder(),
	}
}

// Prepare rebuilds all state for the region described by h and returns its
// cull data. Nothing is carried over from previous calls.
func (r *Region) Prepare(h Host) CullData {
	r.closed.reset()
	r.renderable.reset()
	r.visited.reset()
	r.openCount = 0
	r.pops = 0
	r.solid = false
	r.boxes = r.boxes[:0]

	r.captureExterior(h)
	r.captureInterior(h)

	if r.openCount == 0 {
		r.solid = true
		r.markSolidSurface()
		return CullData{FullBox, FullBox}
	}

	r.fill()
	bounds := r.hideInterior()
	r.adjustSurface()

	r.boxes = r.finder.FindBoxes(r.closed.interior(), 0, r.boxes)
	cd := make(CullData, 0, len(r.boxes)+1)
	cd = append(cd, bounds)
	return append(cd, r.boxes...)
}

func (r *Region) captureExterior(h Host) {
	for y := -1; y <= 16; y++ {
		for z := -1; z <= 16; z++ {
			for x := -1; x <= 16; x++ {
				if isInside(x) && isInside(y) && isInside(z) {
					continue
				}
				i := ExteriorIndex(x, y, z)
				r.closed.put(i, h.IsClosed(h.BlockAt(x, y, z), x, y, z))
			}
		}
	}
}

func (r *Region) captureInterior(h Host) {
	for i := range InteriorCount {
		x, y, z := InteriorCoords(i)
		b := h.BlockAt(x, y, z)
		if h.IsClosed(b, x, y, z) {
			r.closed.set(i)
		} else {
			r.openCount++
		}
		if !h.IsInvisible(b) {
			r.renderable.set(i)
		}
	}
}

// exposed reports whether any shell cell sharing a face with the boundary
// cell (x, y, z) is open. Strictly interior cells are never exposed.
func (r *Region) exposed(x, y, z int) bool {
	for f := range 6 {
		nx, ny, nz := faceNeighbor(x, y, z, f)
		if isInside(nx) && isInside(ny) && isInside(nz) {
			continue
		}
		if !r.closed.has(ExteriorIndex(nx, ny, nz)) {
			return true
		}
	}
	return false
}

// faceCell maps (u, v) on face f to the boundary cell of the interior that
// touches the shell on that side.
func faceCell(f, u, v int) (x, y, z int) {
	side := 15 * (f&1 ^ 1)
	switch f {
	case FacePosX, FaceNegX:
		return side, u, v
	case FacePosY, FaceNegY:
		return u, side, v
	}
	return u, v, side
}

// shellPlane returns the closed shell cells across face f as a 16x16 sample,
// u along the row and v picking the row.
func (r *Region) shellPlane(f int) [4]uint64 {
	var plane [4]uint64
	for v := range 16 {
		for u := range 16 {
			x, y, z := faceCell(f, u, v)
			sx, sy, sz := faceNeighbor(x, y, z, f)
			if r.closed.has(ExteriorIndex(sx, sy, sz)) {
				plane[v>>2] |= 1 << ((v&3)*16 + u)
			}
		}
	}
	return plane
}

// markSolidSurface handles a region with no open cells: only boundary cells
// next to an open shell cell can be seen. Shell rows closed edge to edge are
// skipped whole.
func (r *Region) markSolidSurface() {
	var seen [interiorWords]uint64
	for f := range 6 {
		plane := r.shellPlane(f)
		var sealed [4]uint64
		r.sections = r.areas.FindSections(plane[:], 0, r.sections[:0])
		for _, a := range r.sections {
			a.SetBits(sealed[:], 0)
		}
		for v := range 16 {
			shift := (v & 3) * 16
			if sealed[v>>2]>>shift&0xFFFF == 0xFFFF {
				continue
			}
			for u := range 16 {
				if plane[v>>2]&(1<<(shift+u)) != 0 {
					continue
				}
				i := InteriorIndex(faceCell(f, u, v))
				seen[i>>6] |= 1 << (i & 63)
			}
		}
	}
	for w := range seen {
		r.renderable[w] &= seen[w]
	}
}

func (r *Region) visit(i int) {
	if r.visited.has(i) {
		return
	}
	r.visited.set(i)
	if !r.closed.has(i) {
		r.queue.PushBack(i)
	}
}

// fill runs a breadth first flood fill from every open shell cell into the
// interior. Closed cells touching the fill are marked visited but not entered.
func (r *Region) fill() {
	r.queue.Clear()
	for f := range 6 {
		for v := range 16 {
			for u := range 16 {
				x, y, z := faceCell(f, u, v)
				sx, sy, sz := faceNeighbor(x, y, z, f)
				if !r.closed.has(ExteriorIndex(sx, sy, sz)) {
					r.visit(InteriorIndex(x, y, z))
				}
			}
		}
	}

	for r.queue.Len() > 0 {
		i := r.queue.PopFront()
		r.pops++
		x, y, z := InteriorCoords(i)
		for f := range 6 {
			nx, ny, nz := faceNeighbor(x, y, z, f)
			if isInside(nx) && isInside(ny) && isInside(nz) {
				r.visit(InteriorIndex(nx, ny, nz))
			}
		}
	}
}

// hideInterior closes every strictly interior cell the fill never reached
// and returns the bounds of what is still renderable.
func (r *Region) hideInterior() PackedBox {
	minX, minY, minZ := 16, 16, 16
	maxX, maxY, maxZ := -1, -1, -1
	for i := range InteriorCount {
		x, y, z := InteriorCoords(i)
		if !r.visited.has(i) && !onBoundary(x, y, z) {
			r.renderable.clear(i)
			r.closed.set(i)
			continue
		}
		if !r.renderable.has(i) {
			continue
		}
		minX, minY, minZ = min(minX, x), min(minY, y), min(minZ, z)
		maxX, maxY, maxZ = max(maxX, x), max(maxY, y), max(maxZ, z)
	}
	if maxX < 0 {
		return EmptyBox
	}
	return Pack(minX, minY, minZ, maxX+1, maxY+1, maxZ+1)
}

// adjustSurface stops drawing boundary cells when every neighboring shell
// cell across the region face is closed, reached by the fill or not. The
// matching surface of the adjacent region covers them.
func (r *Region) adjustSurface() {
	for i := range InteriorCount {
		if !r.renderable.has(i) {
			continue
		}
		x, y, z := InteriorCoords(i)
		if onBoundary(x, y, z) && !r.exposed(x, y, z) {
			r.renderable.clear(i)
		}
	}
}

// IsClosed reports whether interior cell i blocks sight after the last Prepare.
func (r *Region) IsClosed(i int) bool {
	return r.closed.has(i)
}

func (r *Region) ShouldRender(i int) bool {
	return r.renderable.has(i)
}

// OpenCount is the number of open interior cells as captured from the host,
// before enclosed cells were closed.
func (r *Region) OpenCount() int {
	return r.openCount
}

func (r *Region) RenderableCount() int {
	return r.renderable.interiorCount()
}

// IsSolid reports whether the last Prepare found no open interior cell.
func (r *Region) IsSolid() bool {
	return r.solid
}
