package juniper

// BufferHandle identifies a device buffer. Zero means none.
type BufferHandle uint32

// BufferTarget selects the binding point of a buffer.
type BufferTarget uint8

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
	bufferTargetCount
)

// BufferUsage hints how often buffer contents change.
type BufferUsage uint8

const (
	StaticDraw BufferUsage = iota
	DynamicDraw
	StreamDraw
)

// BufferData is CPU-side buffer contents plus the device handle created for
// them. Array buffers use Floats, element buffers use Indices.
type BufferData struct {
	Target  BufferTarget
	Usage   BufferUsage
	Floats  []float32
	Indices []uint32

	handle       BufferHandle
	needsRefresh bool
}

// Handle returns the device handle, or zero before the first upload.
func (b *BufferData) Handle() BufferHandle { return b.handle }

// MarkDirty schedules a re-upload of the contents on the next bind.
func (b *BufferData) MarkDirty() { b.needsRefresh = true }

// NeedsRefresh reports whether the contents changed since the last upload.
func (b *BufferData) NeedsRefresh() bool { return b.needsRefresh }

// Len returns the number of elements held.
func (b *BufferData) Len() int {
	if b.Target == ElementArrayBuffer {
		return len(b.Indices)
	}
	return len(b.Floats)
}

// Standard attribute names.
const (
	AttrPosition = "POSITION"
	AttrNormal   = "NORMAL"
	AttrColor    = "COLOR"
	AttrUV0      = "TEXCOORD0"
)

// Attribute describes one interleaved vertex attribute.
type Attribute struct {
	Name   string
	Size   int // float components
	Offset int // in floats from the start of the vertex
}

// PrimitiveMode selects how vertices are assembled.
type PrimitiveMode uint8

const (
	Triangles PrimitiveMode = iota
	Lines
	Points
)

// MeshData is interleaved vertex data with an optional index buffer.
type MeshData struct {
	Name       string
	Attributes []Attribute
	Stride     int // floats per vertex
	Mode       PrimitiveMode

	Vertices *BufferData
	Indices  *BufferData // nil draws the vertices in order
}

// NewMeshData builds mesh data from interleaved vertices laid out by attrs.
// Offsets and stride are computed from attribute order.
func NewMeshData(name string, attrs []Attribute, vertices []float32, indices []uint32) *MeshData {
	stride := 0
	laid := make([]Attribute, len(attrs))
	for i, a := range attrs {
		laid[i] = Attribute{Name: a.Name, Size: a.Size, Offset: stride}
		stride += a.Size
	}
	m := &MeshData{
		Name:       name,
		Attributes: laid,
		Stride:     stride,
		Vertices:   &BufferData{Target: ArrayBuffer, Floats: vertices},
	}
	if indices != nil {
		m.Indices = &BufferData{Target: ElementArrayBuffer, Indices: indices}
	}
	return m
}

// Attribute returns the attribute named name.
func (m *MeshData) Attribute(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// VertexCount returns the number of vertices.
func (m *MeshData) VertexCount() int {
	if m.Stride == 0 || m.Vertices == nil {
		return 0
	}
	return len(m.Vertices.Floats) / m.Stride
}

// IndexCount returns the number of indices, or zero for unindexed meshes.
func (m *MeshData) IndexCount() int {
	if m.Indices == nil {
		return 0
	}
	return len(m.Indices.Indices)
}

// Positions returns the packed xyz positions of every vertex.
func (m *MeshData) Positions() []float32 {
	a, ok := m.Attribute(AttrPosition)
	if !ok || a.Size < 3 {
		return nil
	}
	n := m.VertexCount()
	out := make([]float32, 0, n*3)
	for i := 0; i < n; i++ {
		base := i*m.Stride + a.Offset
		out = append(out, m.Vertices.Floats[base:base+3]...)
	}
	return out
}

// ComputeBound returns the model-space bound of the position attribute.
func (m *MeshData) ComputeBound() BoundingBox {
	return BoundFromPositions(m.Positions())
}

// MarkDirty schedules a re-upload of vertex and index data.
func (m *MeshData) MarkDirty() {
	if m.Vertices != nil {
		m.Vertices.MarkDirty()
	}
	if m.Indices != nil {
		m.Indices.MarkDirty()
	}
}
