package juniper

// standardAttributes is the vertex layout produced by the shape helpers:
// position, normal, uv, color.
var standardAttributes = []Attribute{
	{Name: AttrPosition, Size: 3},
	{Name: AttrNormal, Size: 3},
	{Name: AttrUV0, Size: 2},
	{Name: AttrColor, Size: 4},
}

// --- Box ---

// NewBox returns an axis-aligned box centered on the origin with the given
// full extents. Each face has its own four vertices so normals and uvs are
// per face.
func NewBox(name string, w, h, d float64) *MeshData {
	x, y, z := float32(w/2), float32(h/2), float32(d/2)

	type face struct {
		n       [3]float32
		corners [4][3]float32
	}
	faces := [6]face{
		{[3]float32{0, 0, 1}, [4][3]float32{{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{x, -y, -z}, {-x, -y, -z}, {-x, y, -z}, {x, y, -z}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{x, -y, z}, {x, -y, -z}, {x, y, -z}, {x, y, z}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-x, -y, -z}, {-x, -y, z}, {-x, y, z}, {-x, y, -z}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-x, y, z}, {x, y, z}, {x, y, -z}, {-x, y, -z}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-x, -y, -z}, {x, -y, -z}, {x, -y, z}, {-x, -y, z}}},
	}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	verts := make([]float32, 0, 24*12)
	inds := make([]uint32, 0, 36)
	for fi, f := range faces {
		for ci, c := range f.corners {
			verts = append(verts,
				c[0], c[1], c[2],
				f.n[0], f.n[1], f.n[2],
				uvs[ci][0], uvs[ci][1],
				1, 1, 1, 1)
		}
		base := uint32(fi * 4)
		inds = append(inds, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMeshData(name, standardAttributes, verts, inds)
}

// --- Quad ---

// NewQuad returns a w by h rectangle in the XY plane facing +Z.
func NewQuad(name string, w, h float64) *MeshData {
	x, y := float32(w/2), float32(h/2)
	verts := []float32{
		-x, -y, 0, 0, 0, 1, 0, 1, 1, 1, 1, 1,
		x, -y, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1,
		x, y, 0, 0, 0, 1, 1, 0, 1, 1, 1, 1,
		-x, y, 0, 0, 0, 1, 0, 0, 1, 1, 1, 1,
	}
	inds := []uint32{0, 1, 2, 0, 2, 3}
	return NewMeshData(name, standardAttributes, verts, inds)
}

// --- Polygon ---

// NewPolygon returns a flat convex polygon in the XY plane using fan
// triangulation. N points yield 3*(N-2) indices. Fewer than three points
// yield nil.
func NewPolygon(name string, points []Vec3) *MeshData {
	n := len(points)
	if n < 3 {
		return nil
	}
	verts := make([]float32, 0, n*12)
	for _, p := range points {
		verts = append(verts,
			float32(p[0]), float32(p[1]), float32(p[2]),
			0, 0, 1,
			0, 0,
			1, 1, 1, 1)
	}
	inds := make([]uint32, 0, (n-2)*3)
	for i := 1; i < n-1; i++ {
		inds = append(inds, 0, uint32(i), uint32(i+1))
	}
	return NewMeshData(name, standardAttributes, verts, inds)
}
