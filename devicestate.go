package juniper

type bufferRecord struct {
	handle BufferHandle
	valid  bool
}

type textureRecord struct {
	target TextureTarget
	handle TextureHandle
	valid  bool
}

// DeviceStateCache records what is currently bound and enabled on a Device.
// Each entry has a valid flag; an invalid entry always re-issues its call.
// It is owned by one Renderer and released with it.
type DeviceStateCache struct {
	buffers [bufferTargetCount]bufferRecord

	program      ProgramHandle
	programValid bool

	attrProgram ProgramHandle
	attrBuffer  BufferHandle
	attrValid   bool

	textures []textureRecord

	depthTest, depthWrite           bool
	depthTestValid, depthWriteValid bool

	cullEnabled                     bool
	cullFace                        CullFace
	frontFace                       FrontFace
	cullEnabledValid, cullFaceValid bool
	frontFaceValid                  bool

	blendEnabled                  bool
	blend                         BlendState
	blendEnabledValid, blendValid bool

	offsetEnabled                   bool
	offsetFactor, offsetUnits       float64
	offsetEnabledValid, offsetValid bool

	lineWidth      float64
	lineWidthValid bool

	framebuffer      FramebufferHandle
	framebufferValid bool

	viewport      [4]int
	viewportValid bool
}

// NewDeviceStateCache returns a cache with every record invalid and
// textureUnits per-unit texture records.
func NewDeviceStateCache(textureUnits int) *DeviceStateCache {
	if textureUnits < 1 {
		textureUnits = 1
	}
	return &DeviceStateCache{textures: make([]textureRecord, textureUnits)}
}

// Invalidate marks every record invalid, forcing the next call of each kind
// to reach the device.
func (c *DeviceStateCache) Invalidate() {
	units := c.textures
	*c = DeviceStateCache{textures: units}
	c.InvalidateTextures()
}

// InvalidateTextures marks every texture-unit record invalid.
func (c *DeviceStateCache) InvalidateTextures() {
	for i := range c.textures {
		c.textures[i] = textureRecord{}
	}
}

// InvalidateBuffer marks the record for target invalid.
func (c *DeviceStateCache) InvalidateBuffer(target BufferTarget) {
	c.buffers[target] = bufferRecord{}
}

// TextureUnits returns the number of unit records.
func (c *DeviceStateCache) TextureUnits() int { return len(c.textures) }

// bindBuffer binds h to target unless it is already bound. Reports whether
// the device was called.
func (c *DeviceStateCache) bindBuffer(d Device, target BufferTarget, h BufferHandle) bool {
	r := &c.buffers[target]
	if r.valid && r.handle == h {
		return false
	}
	d.BindBuffer(target, h)
	r.handle, r.valid = h, true
	return true
}

// useProgram makes h current unless it already is.
func (c *DeviceStateCache) useProgram(d Device, h ProgramHandle) bool {
	if c.programValid && c.program == h {
		return false
	}
	d.UseProgram(h)
	c.program, c.programValid = h, true
	c.attrValid = false
	return true
}

// bindAttributes points the program's attributes at mesh's vertex buffer
// unless that pairing is already in place.
func (c *DeviceStateCache) bindAttributes(d Device, p ProgramHandle, mesh *MeshData) bool {
	vb := mesh.Vertices.handle
	if c.attrValid && c.attrProgram == p && c.attrBuffer == vb {
		return false
	}
	d.BindAttributes(p, mesh)
	c.attrProgram, c.attrBuffer, c.attrValid = p, vb, true
	return true
}

// bindTexture binds h on unit unless the unit already holds it.
func (c *DeviceStateCache) bindTexture(d Device, unit int, target TextureTarget, h TextureHandle) bool {
	if unit < 0 || unit >= len(c.textures) {
		return false
	}
	r := &c.textures[unit]
	if r.valid && r.handle == h && r.target == target {
		return false
	}
	d.BindTexture(unit, target, h)
	*r = textureRecord{target: target, handle: h, valid: true}
	return true
}

// forgetTexture invalidates every unit holding h, used after deletion or
// when a fresh handle was bound implicitly by an upload.
func (c *DeviceStateCache) forgetTexture(h TextureHandle) {
	for i := range c.textures {
		if c.textures[i].handle == h {
			c.textures[i] = textureRecord{}
		}
	}
}

func (c *DeviceStateCache) setDepth(d Device, s DepthState) {
	if !c.depthTestValid || c.depthTest != s.Enabled {
		d.EnableDepthTest(s.Enabled)
		c.depthTest, c.depthTestValid = s.Enabled, true
	}
	c.setDepthWrite(d, s.Write)
}

func (c *DeviceStateCache) setDepthWrite(d Device, write bool) {
	if !c.depthWriteValid || c.depthWrite != write {
		d.DepthMask(write)
		c.depthWrite, c.depthWriteValid = write, true
	}
}

func (c *DeviceStateCache) setCull(d Device, s CullState) {
	if !c.cullEnabledValid || c.cullEnabled != s.Enabled {
		d.EnableCullFace(s.Enabled)
		c.cullEnabled, c.cullEnabledValid = s.Enabled, true
	}
	if !s.Enabled {
		return
	}
	if !c.cullFaceValid || c.cullFace != s.Face {
		d.CullFace(s.Face)
		c.cullFace, c.cullFaceValid = s.Face, true
	}
	if !c.frontFaceValid || c.frontFace != s.FrontFace {
		d.FrontFace(s.FrontFace)
		c.frontFace, c.frontFaceValid = s.FrontFace, true
	}
}

func (c *DeviceStateCache) setBlend(d Device, s BlendState) {
	on := s.Mode != BlendNone
	if !c.blendEnabledValid || c.blendEnabled != on {
		d.EnableBlend(on)
		c.blendEnabled, c.blendEnabledValid = on, true
	}
	if !on {
		return
	}
	if !c.blendValid || c.blend != s {
		d.BlendFunc(s)
		c.blend, c.blendValid = s, true
	}
}

func (c *DeviceStateCache) setOffset(d Device, s OffsetState) {
	if !c.offsetEnabledValid || c.offsetEnabled != s.Enabled {
		d.EnablePolygonOffset(s.Enabled)
		c.offsetEnabled, c.offsetEnabledValid = s.Enabled, true
	}
	if !s.Enabled {
		return
	}
	if !c.offsetValid || c.offsetFactor != s.Factor || c.offsetUnits != s.Units {
		d.PolygonOffset(s.Factor, s.Units)
		c.offsetFactor, c.offsetUnits, c.offsetValid = s.Factor, s.Units, true
	}
}

func (c *DeviceStateCache) setLineWidth(d Device, w float64) {
	if w <= 0 {
		w = 1
	}
	if !c.lineWidthValid || c.lineWidth != w {
		d.LineWidth(w)
		c.lineWidth, c.lineWidthValid = w, true
	}
}

// bindFramebuffer switches to h unless it is current. A switch invalidates
// every texture-unit record. Reports whether the device was called.
func (c *DeviceStateCache) bindFramebuffer(d Device, h FramebufferHandle) bool {
	if c.framebufferValid && c.framebuffer == h {
		return false
	}
	d.BindFramebuffer(h)
	c.framebuffer, c.framebufferValid = h, true
	c.InvalidateTextures()
	return true
}

func (c *DeviceStateCache) setViewport(d Device, x, y, w, h int) {
	vp := [4]int{x, y, w, h}
	if c.viewportValid && c.viewport == vp {
		return
	}
	d.Viewport(x, y, w, h)
	c.viewport, c.viewportValid = vp, true
}
