package juniper

// Component is data attached to an entity. The set of kinds is closed; see
// ComponentKind.
type Component interface {
	Kind() ComponentKind
}

// MeshDataComponent holds the geometry an entity draws.
type MeshDataComponent struct {
	Mesh *MeshData
	// ModelBound is the bound in model space. NewMeshDataComponent computes
	// it from the position attribute. Set HasModelBound when assigning it
	// by hand.
	ModelBound    BoundingBox
	HasModelBound bool
	// AutoCompute recomputes ModelBound when the mesh is marked dirty.
	AutoCompute bool
}

// NewMeshDataComponent wraps mesh and computes its model bound.
func NewMeshDataComponent(mesh *MeshData) *MeshDataComponent {
	c := &MeshDataComponent{Mesh: mesh, AutoCompute: true}
	c.refreshBound()
	return c
}

// refreshBound recomputes ModelBound from the mesh's positions. A mesh
// without positions leaves the component unbounded.
func (c *MeshDataComponent) refreshBound() {
	var pos []float32
	if c.Mesh != nil {
		pos = c.Mesh.Positions()
	}
	c.ModelBound = BoundFromPositions(pos)
	c.HasModelBound = len(pos) >= 3
}

func (*MeshDataComponent) Kind() ComponentKind { return KindMeshData }

// MeshRendererComponent holds the ordered materials an entity draws with and
// its world-space bound.
type MeshRendererComponent struct {
	Materials []*Material

	// WorldBound is maintained by RenderSystem from the model bound and
	// world transform.
	WorldBound BoundingBox
	// HasBound is false until RenderSystem has computed WorldBound, and
	// stays false while the mesh data has no model bound.
	HasBound bool

	CullMode       CullMode
	Hidden         bool
	CastShadows    bool
	ReceiveShadows bool
	Pickable       bool
}

// NewMeshRendererComponent returns a pickable renderer drawing with materials.
func NewMeshRendererComponent(materials ...*Material) *MeshRendererComponent {
	return &MeshRendererComponent{Materials: materials, Pickable: true}
}

func (*MeshRendererComponent) Kind() ComponentKind { return KindMeshRenderer }
