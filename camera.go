package juniper

import "github.com/go-gl/mathgl/mgl64"

// Projection selects how a camera maps view space to clip space.
type Projection uint8

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

// Camera holds a view and projection. Its frame is usually driven by the
// world matrix of the entity carrying its CameraComponent.
type Camera struct {
	Projection Projection
	// FovY is the vertical field of view in radians.
	FovY   float64
	Aspect float64
	Near   float64
	Far    float64
	// OrthoHeight is the visible height in world units for orthographic
	// projection. The width follows Aspect.
	OrthoHeight float64

	world    Mat4
	view     Mat4
	proj     Mat4
	viewProj Mat4
	frustum  Frustum

	projDirty bool
	viewDirty bool
}

// NewCamera returns a perspective camera. fovY is in degrees.
func NewCamera(fovY, aspect, near, far float64) *Camera {
	return &Camera{
		Projection:  ProjectionPerspective,
		FovY:        mgl64.DegToRad(fovY),
		Aspect:      aspect,
		Near:        near,
		Far:         far,
		OrthoHeight: 10,
		world:       Mat4Identity,
		projDirty:   true,
		viewDirty:   true,
	}
}

// SetAspect updates the aspect ratio, typically after a resize.
func (c *Camera) SetAspect(aspect float64) {
	if aspect != c.Aspect {
		c.Aspect = aspect
		c.projDirty = true
	}
}

// SetPerspective switches to a perspective projection. fovY is in degrees.
func (c *Camera) SetPerspective(fovY, near, far float64) {
	c.Projection = ProjectionPerspective
	c.FovY = mgl64.DegToRad(fovY)
	c.Near, c.Far = near, far
	c.projDirty = true
}

// SetOrthographic switches to an orthographic projection height units tall.
func (c *Camera) SetOrthographic(height, near, far float64) {
	c.Projection = ProjectionOrthographic
	c.OrthoHeight = height
	c.Near, c.Far = near, far
	c.projDirty = true
}

// SetFrame places the camera with the given world matrix. The camera looks
// down its local -Z axis.
func (c *Camera) SetFrame(world Mat4) {
	if world != c.world {
		c.world = world
		c.viewDirty = true
	}
}

// LookAt places the camera at eye looking at target.
func (c *Camera) LookAt(eye, target, up Vec3) {
	c.SetFrame(ComposeTRS(eye, LookAtRotation(eye, target, up), Vec3One))
}

// MarkDirty forces recomputation of the cached matrices.
func (c *Camera) MarkDirty() {
	c.projDirty = true
	c.viewDirty = true
}

// Position returns the camera's world position.
func (c *Camera) Position() Vec3 { return TranslationOf(c.world) }

// Forward returns the world-space viewing direction.
func (c *Camera) Forward() Vec3 {
	return normalize(mgl64.TransformNormal(Vec3{0, 0, -1}, c.world))
}

// View returns the world-to-view matrix.
func (c *Camera) View() Mat4 {
	c.update()
	return c.view
}

// ProjectionMatrix returns the view-to-clip matrix.
func (c *Camera) ProjectionMatrix() Mat4 {
	c.update()
	return c.proj
}

// ViewProjection returns ProjectionMatrix * View.
func (c *Camera) ViewProjection() Mat4 {
	c.update()
	return c.viewProj
}

// Frustum returns the world-space view frustum.
func (c *Camera) Frustum() *Frustum {
	c.update()
	return &c.frustum
}

// PickRay returns the world-space ray through screen point (sx, sy) of a
// width by height viewport with the origin at the top left.
func (c *Camera) PickRay(sx, sy float64, width, height int) Ray {
	c.update()
	nx := 2*sx/float64(width) - 1
	ny := 1 - 2*sy/float64(height)
	inv := Invert(c.viewProj)
	near := unproject(inv, nx, ny, -1)
	far := unproject(inv, nx, ny, 1)
	return Ray{Origin: near, Direction: normalize(far.Sub(near))}
}

func unproject(inv Mat4, x, y, z float64) Vec3 {
	p := inv.Mul4x1(Vec4{x, y, z, 1})
	if p[3] == 0 {
		return p.Vec3()
	}
	return p.Vec3().Mul(1 / p[3])
}

func (c *Camera) update() {
	if !c.projDirty && !c.viewDirty {
		return
	}
	if c.projDirty {
		aspect := c.Aspect
		if aspect <= 0 {
			aspect = 1
		}
		switch c.Projection {
		case ProjectionOrthographic:
			h := c.OrthoHeight / 2
			w := h * aspect
			c.proj = mgl64.Ortho(-w, w, -h, h, c.Near, c.Far)
		default:
			c.proj = mgl64.Perspective(c.FovY, aspect, c.Near, c.Far)
		}
	}
	if c.viewDirty {
		c.view = Invert(c.world)
	}
	c.viewProj = c.proj.Mul4(c.view)
	c.frustum = FrustumFromMatrix(c.viewProj)
	c.projDirty, c.viewDirty = false, false
}

// --- Component and system ---

// CameraComponent attaches a camera to an entity. The camera follows the
// entity's world transform.
type CameraComponent struct {
	Camera *Camera
	// Main marks the camera used for rendering. When no camera is marked,
	// the first one is used.
	Main bool
}

// NewCameraComponent wraps cam.
func NewCameraComponent(cam *Camera, main bool) *CameraComponent {
	return &CameraComponent{Camera: cam, Main: main}
}

func (*CameraComponent) Kind() ComponentKind { return KindCamera }

// CameraSystem updates cameras from their entity transforms and selects the
// main camera for the frame.
type CameraSystem struct {
	main *Camera
}

// NewCameraSystem returns a camera system.
func NewCameraSystem() *CameraSystem { return &CameraSystem{} }

func (*CameraSystem) Name() string        { return "CameraSystem" }
func (*CameraSystem) Interests() KindMask { return MaskOf(KindTransform, KindCamera) }
func (*CameraSystem) Priority() int       { return PriorityCamera }

// MainCamera returns the camera selected in the last pass.
func (s *CameraSystem) MainCamera() *Camera { return s.main }

func (s *CameraSystem) Process(entities []*Entity, ctx *FrameContext) {
	s.main = nil
	var first *Camera
	for _, e := range entities {
		cc := e.Camera()
		if cc.Camera == nil {
			continue
		}
		cc.Camera.SetFrame(e.Transform().WorldMatrix())
		if first == nil {
			first = cc.Camera
		}
		if cc.Main && s.main == nil {
			s.main = cc.Camera
		}
	}
	if s.main == nil {
		s.main = first
	}
	if ctx != nil {
		ctx.Camera = s.main
	}
}
