package juniper

// Renderable is the per-frame record of one entity to draw. It is built
// fresh each frame by the partitioner; the queue only reorders it.
type Renderable struct {
	Entity    *Entity
	Mesh      *MeshData
	Materials []*Material
	World     Mat4
	Bound     BoundingBox
	HasBound  bool

	distSq float64
}

// primaryMaterial returns the first material, or nil.
func (r *Renderable) primaryMaterial() *Material {
	if len(r.Materials) == 0 {
		return nil
	}
	return r.Materials[0]
}

// renderableFor builds the record for e, which must own transform, mesh
// data, and mesh renderer components.
func renderableFor(e *Entity) Renderable {
	mr := e.MeshRenderer()
	return Renderable{
		Entity:    e,
		Mesh:      e.MeshData().Mesh,
		Materials: mr.Materials,
		World:     e.Transform().WorldMatrix(),
		Bound:     mr.WorldBound,
		HasBound:  mr.HasBound,
	}
}

// RenderInfo describes the pass being drawn. Uniform callbacks and shader
// processors receive it.
type RenderInfo struct {
	Renderable *Renderable
	Material   *Material
	Mesh       *MeshData
	Pass       int

	Camera *Camera
	Lights []*Light
	Time   float64
}
