package juniper

import "testing"

func TestNewBox(t *testing.T) {
	m := NewBox("box", 2, 4, 6)
	if got := m.VertexCount(); got != 24 {
		t.Errorf("VertexCount = %d, want 24", got)
	}
	if got := m.IndexCount(); got != 36 {
		t.Errorf("IndexCount = %d, want 36", got)
	}
	if m.Stride != 12 {
		t.Errorf("Stride = %d, want 12", m.Stride)
	}
	b := m.ComputeBound()
	assertVec(t, "center", b.Center, Vec3{})
	assertVec(t, "extent", b.Extent, Vec3{1, 2, 3})
}

func TestNewQuad(t *testing.T) {
	m := NewQuad("quad", 2, 1)
	if m.VertexCount() != 4 || m.IndexCount() != 6 {
		t.Errorf("quad = %d vertices, %d indices", m.VertexCount(), m.IndexCount())
	}
	uv, ok := m.Attribute(AttrUV0)
	if !ok || uv.Offset != 6 || uv.Size != 2 {
		t.Errorf("uv attribute = %+v, %v", uv, ok)
	}
	b := m.ComputeBound()
	assertVec(t, "extent", b.Extent, Vec3{1, 0.5, 0})
}

func TestNewPolygon(t *testing.T) {
	pts := []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {-1, 0.5, 0}}
	m := NewPolygon("pentagon", pts)
	if got := m.IndexCount(); got != 9 {
		t.Errorf("IndexCount = %d, want 9", got)
	}
	if NewPolygon("line", pts[:2]) != nil {
		t.Error("fewer than three points should yield nil")
	}
}

func TestMeshPositionsWithoutAttribute(t *testing.T) {
	m := NewMeshData("colors", []Attribute{{Name: AttrColor, Size: 4}}, []float32{1, 1, 1, 1}, nil)
	if m.Positions() != nil {
		t.Error("Positions should be nil without a position attribute")
	}
	if b := m.ComputeBound(); b != (BoundingBox{}) {
		t.Errorf("bound = %+v, want zero", b)
	}
}

func TestMeshMarkDirty(t *testing.T) {
	m := NewBox("box", 1, 1, 1)
	m.MarkDirty()
	if !m.Vertices.NeedsRefresh() || !m.Indices.NeedsRefresh() {
		t.Error("MarkDirty should flag both buffers")
	}
	if m.Vertices.Len() != 24*12 || m.Indices.Len() != 36 {
		t.Errorf("Len = %d, %d", m.Vertices.Len(), m.Indices.Len())
	}
}

func TestTextureEffectiveParams(t *testing.T) {
	pot := NewTexture("pot", 4, 8, make([]byte, 4*8*4))
	pot.Params.WrapS = WrapMirror
	pot.Params.Anisotropy = 0
	p := pot.effectiveParams()
	if p.WrapS != WrapMirror || p.MinFilter != FilterLinearMipmap {
		t.Errorf("power-of-two params changed: %+v", p)
	}
	if p.Anisotropy != 1 {
		t.Errorf("Anisotropy = %d, want 1", p.Anisotropy)
	}

	npot := NewTexture("npot", 3, 5, make([]byte, 3*5*4))
	npot.Params.MinFilter = FilterNearestMipmap
	p = npot.effectiveParams()
	if p.WrapS != WrapClamp || p.WrapT != WrapClamp {
		t.Errorf("npot wrap = %v/%v, want clamp", p.WrapS, p.WrapT)
	}
	if p.MinFilter != FilterNearest {
		t.Errorf("npot min filter = %v, want nearest", p.MinFilter)
	}
}

func TestPendingTexture(t *testing.T) {
	tex := NewPendingTexture("late", TextureCube)
	if tex.Ready() {
		t.Fatal("pending texture reported ready")
	}
	tex.SetPixels(1, 1, make([]byte, 24))
	if !tex.Ready() {
		t.Error("SetPixels should make the texture ready")
	}
	if NewTexture("empty", 1, 1, nil).Ready() {
		t.Error("a texture without pixels is not ready")
	}
}

func TestPlaceholderTextures(t *testing.T) {
	flat := newPlaceholderTexture(Texture2D)
	cube := newPlaceholderTexture(TextureCube)
	if len(flat.Pixels) != 4 || len(cube.Pixels) != 24 {
		t.Errorf("pixel bytes = %d and %d, want 4 and 24", len(flat.Pixels), len(cube.Pixels))
	}
	if !flat.Ready() || cube.Target != TextureCube {
		t.Error("placeholders must be ready and keep their target")
	}
}

func TestNullDeviceCounts(t *testing.T) {
	d := NewNullDevice()
	r := NewRenderer(d)
	mat := NewMaterial("m", testShader("lit"))
	r.Render([]Renderable{drawable(NewBox("a", 1, 1, 1), mat), drawable(NewQuad("b", 1, 1), mat)}, nil)

	if d.Stats.DrawCalls != 2 || d.Stats.Primitives != 14 {
		t.Errorf("draws = %d, primitives = %d, want 2 and 14", d.Stats.DrawCalls, d.Stats.Primitives)
	}
	if d.Stats.BufferCreates != 4 || d.Stats.ProgramCreates != 1 || d.Stats.ProgramUses != 1 {
		t.Errorf("stats = %+v", d.Stats)
	}
}
