package juniper

import (
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RenderSystem keeps world bounds current, collects the visible render list
// through its partitioner, sorts it, and hands it to the Renderer.
type RenderSystem struct {
	// Target is the render target drawn into; nil draws to the screen.
	Target *RenderTarget
	// ClearColor is used when ClearEnabled is set.
	ClearColor   Color
	ClearEnabled bool

	partitioner Partitioner
	queue       *RenderQueue
	entities    []*Entity
	list        []Renderable

	sortTime     time.Duration
	dispatchTime time.Duration
}

// NewRenderSystem returns a render system. A nil partitioner draws
// everything; a nil queue uses NewRenderQueue.
func NewRenderSystem(p Partitioner, q *RenderQueue) *RenderSystem {
	if p == nil {
		p = IncludeAllPartitioner{}
	}
	if q == nil {
		q = NewRenderQueue()
	}
	return &RenderSystem{
		partitioner:  p,
		queue:        q,
		ClearColor:   ColorBlack,
		ClearEnabled: true,
	}
}

func (*RenderSystem) Name() string { return "RenderSystem" }
func (*RenderSystem) Interests() KindMask {
	return MaskOf(KindTransform, KindMeshData, KindMeshRenderer)
}
func (*RenderSystem) Priority() int { return PriorityRender }

func (s *RenderSystem) Inserted(e *Entity) {
	e.MeshRenderer().HasBound = false
	s.partitioner.Added(e)
}

func (s *RenderSystem) Deleted(e *Entity) { s.partitioner.Removed(e) }

// Queue returns the render queue.
func (s *RenderSystem) Queue() *RenderQueue { return s.queue }

// Partitioner returns the active partitioner.
func (s *RenderSystem) Partitioner() Partitioner { return s.partitioner }

// SetPartitioner replaces the partitioner and registers the current
// entities with it.
func (s *RenderSystem) SetPartitioner(p Partitioner) {
	if p == nil {
		p = IncludeAllPartitioner{}
	}
	for _, e := range s.entities {
		s.partitioner.Removed(e)
		p.Added(e)
	}
	s.partitioner = p
}

// RenderList returns the sorted list drawn by the last Render. The slice is
// reused on the next frame.
func (s *RenderSystem) RenderList() []Renderable { return s.list }

// Timings returns how long the last frame spent sorting and dispatching.
func (s *RenderSystem) Timings() (sort, dispatch time.Duration) {
	return s.sortTime, s.dispatchTime
}

// Process recomputes world bounds for entities whose transform or mesh
// changed.
func (s *RenderSystem) Process(entities []*Entity, _ *FrameContext) {
	s.entities = entities
	for _, e := range entities {
		md := e.MeshData()
		mr := e.MeshRenderer()
		meshChanged := false
		if md.AutoCompute && md.Mesh != nil && md.Mesh.Vertices != nil && md.Mesh.Vertices.needsRefresh {
			md.refreshBound()
			meshChanged = true
		}
		if !md.HasModelBound {
			mr.HasBound = false
			continue
		}
		t := e.Transform()
		if !mr.HasBound || t.Updated() || meshChanged {
			mr.WorldBound = md.ModelBound.Transform(t.WorldMatrix())
			mr.HasBound = true
		}
	}
}

// Render collects, sorts, and draws the visible entities.
func (s *RenderSystem) Render(r *Renderer, ctx *FrameContext) {
	var cam *Camera
	if ctx != nil {
		cam = ctx.Camera
	}
	clear(s.list)
	s.list = s.partitioner.Process(cam, s.entities, s.list[:0])
	for i := range s.list {
		if rend := &s.list[i]; !rend.HasBound && rend.Entity != nil {
			r.warnOnce("bound:"+strconv.FormatUint(rend.Entity.ID(), 10),
				"renderable has no bounding volume",
				zap.String("entity", rend.Entity.Name), zap.Uint64("id", rend.Entity.ID()))
		}
	}

	start := time.Now()
	s.queue.Sort(s.list, cam)
	s.sortTime = time.Since(start)

	start = time.Now()
	r.SetRenderTarget(s.Target)
	if s.ClearEnabled {
		r.Clear(s.ClearColor, true)
	}
	r.Render(s.list, ctx)
	s.dispatchTime = time.Since(start)
}

// PickHit is one result of Pick.
type PickHit struct {
	Entity   *Entity
	Distance float64
}

// Pick returns the pickable entities whose world bound r intersects,
// nearest first.
func (s *RenderSystem) Pick(r Ray) []PickHit {
	var hits []PickHit
	for _, e := range s.entities {
		mr := e.MeshRenderer()
		if !mr.Pickable || mr.Hidden || !mr.HasBound {
			continue
		}
		if d, ok := mr.WorldBound.IntersectRay(r); ok {
			hits = append(hits, PickHit{Entity: e, Distance: d})
		}
	}
	slices.SortStableFunc(hits, func(a, b PickHit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return hits
}
