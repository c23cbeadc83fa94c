package juniper

// Partitioner decides which renderable entities are drawn for a camera.
// Added and Removed track the entity set; Process appends the visible
// entities' Renderables to out and returns it.
type Partitioner interface {
	Added(e *Entity)
	Removed(e *Entity)
	Process(cam *Camera, entities []*Entity, out []Renderable) []Renderable
}

// IncludeAllPartitioner draws every entity that is not hidden.
type IncludeAllPartitioner struct{}

func (IncludeAllPartitioner) Added(*Entity)   {}
func (IncludeAllPartitioner) Removed(*Entity) {}

func (IncludeAllPartitioner) Process(_ *Camera, entities []*Entity, out []Renderable) []Renderable {
	for _, e := range entities {
		if e.MeshRenderer().Hidden {
			continue
		}
		out = append(out, renderableFor(e))
	}
	return out
}

// FrustumPartitioner draws entities whose world bound intersects the camera
// frustum. Entities with CullNever, or without a bound yet, always pass.
// With no camera every entity passes.
type FrustumPartitioner struct {
	// Culled is the number of entities rejected by the last Process.
	Culled int
}

func (*FrustumPartitioner) Added(*Entity)   {}
func (*FrustumPartitioner) Removed(*Entity) {}

func (p *FrustumPartitioner) Process(cam *Camera, entities []*Entity, out []Renderable) []Renderable {
	p.Culled = 0
	var f *Frustum
	if cam != nil {
		f = cam.Frustum()
	}
	for _, e := range entities {
		mr := e.MeshRenderer()
		if mr.Hidden {
			continue
		}
		if f != nil && mr.CullMode != CullNever && mr.HasBound && !f.IntersectsBox(mr.WorldBound) {
			p.Culled++
			continue
		}
		out = append(out, renderableFor(e))
	}
	return out
}

// NewPartitioner returns the partitioner named by kind: "frustum" or
// "all". Unknown names fall back to "all".
func NewPartitioner(kind string) Partitioner {
	switch kind {
	case "frustum":
		return &FrustumPartitioner{}
	default:
		return IncludeAllPartitioner{}
	}
}
