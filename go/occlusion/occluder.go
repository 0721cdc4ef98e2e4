package occlusion

// Occluder is the screen space rasterizer that consumes cull data. Regions
// are fed front to back after a single PrepareScene.
type Occluder interface {
	PrepareScene()
	// PrepareRegion sets the world origin that following boxes are relative to.
	PrepareRegion(x, y, z int)
	IsBoxVisible(b PackedBox) bool
	OccludeBox(b PackedBox)
}

// Feed tests the region at origin (x, y, z) against o and, if any of it may
// be visible, draws its boxes into o so later regions can be hidden behind it.
// It reports whether the region may be visible.
func Feed(o Occluder, x, y, z int, cd CullData) bool {
	bounds := cd.Bounds()
	if bounds == EmptyBox {
		return false
	}
	o.PrepareRegion(x, y, z)
	if !o.IsBoxVisible(bounds) {
		return false
	}
	for _, b := range cd.Boxes() {
		o.OccludeBox(b)
	}
	return true
}
