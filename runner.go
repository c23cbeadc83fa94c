package juniper

import (
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
)

const (
	// minTPF is the smallest time step handed to systems.
	minTPF = 0.0001
	// maxFrameGap is the largest raw frame time accepted; longer gaps skip
	// the frame.
	maxFrameGap = 1.0
)

// FrameFunc is a runner callback. It receives the smoothed time per frame.
type FrameFunc func(tpf float64)

// Runner owns a World, its Renderer, and the EventBus, and drives one frame
// per Process/Render pair. It registers every built-in component kind and
// system.
//
// Runner is single-threaded.
type Runner struct {
	// SnapshotDir is where Screenshot writes PNG files.
	SnapshotDir string

	world    *World
	renderer *Renderer
	bus      *EventBus
	log      *zap.Logger
	ctx      FrameContext

	scripts    *ScriptSystem
	transforms *TransformSystem
	cameras    *CameraSystem
	lighting   *LightingSystem
	render     *RenderSystem

	tpfs     []float64
	tpfIndex int
	tpfCount int
	maxTPF   float64

	preProcess []FrameFunc
	preRender  []FrameFunc
	postRender []FrameFunc
	nextFrame  []FrameFunc
	snapshots  []SnapshotFunc

	processTime time.Duration
	safe        bool
	debug       bool
	stopped     bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger shared by the world, renderer, and
// runner. The default discards output.
func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(rn *Runner) {
		if l != nil {
			rn.log = l
		}
	}
}

// WithRunnerBus sets the event bus. The default is a new bus owned by the
// runner.
func WithRunnerBus(bus *EventBus) RunnerOption {
	return func(rn *Runner) {
		if bus != nil {
			rn.bus = bus
		}
	}
}

// NewRunner builds a world and renderer drawing through device, configured
// by cfg.
func NewRunner(device Device, cfg Config, opts ...RunnerOption) *Runner {
	rn := &Runner{
		SnapshotDir: "snapshots",
		bus:         NewEventBus(),
		log:         zap.NewNop(),
		maxTPF:      cfg.MaxTPF,
		safe:        cfg.SafeMode,
		debug:       cfg.Debug,
	}
	for _, o := range opts {
		o(rn)
	}
	if rn.maxTPF <= 0 {
		rn.maxTPF = 0.5
	}
	smoothing := cfg.TPFSmoothing
	if smoothing < 1 {
		smoothing = 1
	}
	rn.tpfs = make([]float64, smoothing)

	rn.world = NewWorld(
		WithLogger(rn.log),
		WithEventBus(rn.bus),
		WithSafeMode(cfg.SafeMode),
		WithDebug(cfg.Debug),
	)
	rn.world.RegisterComponent(KindTransform, KindMeshData, KindMeshRenderer, KindCamera, KindLight, KindScript)

	ropts := []RendererOption{WithRendererLogger(rn.log), WithRendererBus(rn.bus)}
	if cfg.TextureUnits > 0 {
		ropts = append(ropts, WithTextureUnits(cfg.TextureUnits))
	}
	rn.renderer = NewRenderer(device, ropts...)

	q := NewRenderQueue()
	if cfg.TransparentFrom != 0 {
		q.TransparentFrom = cfg.TransparentFrom
	}

	rn.scripts = NewScriptSystem()
	rn.transforms = NewTransformSystem()
	rn.cameras = NewCameraSystem()
	rn.lighting = NewLightingSystem()
	rn.render = NewRenderSystem(NewPartitioner(cfg.Partitioner), q)
	rn.render.ClearColor = cfg.ClearColor

	rn.world.AddSystem(rn.scripts)
	rn.world.AddSystem(rn.transforms)
	rn.world.AddSystem(rn.cameras)
	rn.world.AddSystem(rn.lighting)
	rn.world.AddSystem(rn.render)

	rn.ctx = FrameContext{Bus: rn.bus, Logger: rn.log}
	return rn
}

// World returns the runner's world.
func (rn *Runner) World() *World { return rn.world }

// Renderer returns the runner's renderer.
func (rn *Runner) Renderer() *Renderer { return rn.renderer }

// Bus returns the runner's event bus.
func (rn *Runner) Bus() *EventBus { return rn.bus }

// Logger returns the runner's logger.
func (rn *Runner) Logger() *zap.Logger { return rn.log }

// Context returns the frame context handed to systems.
func (rn *Runner) Context() *FrameContext { return &rn.ctx }

// RenderSystem returns the built-in render system.
func (rn *Runner) RenderSystem() *RenderSystem { return rn.render }

// TransformSystem returns the built-in transform system.
func (rn *Runner) TransformSystem() *TransformSystem { return rn.transforms }

// CameraSystem returns the built-in camera system.
func (rn *Runner) CameraSystem() *CameraSystem { return rn.cameras }

// LightingSystem returns the built-in lighting system.
func (rn *Runner) LightingSystem() *LightingSystem { return rn.lighting }

// SetSize sets the screen size and updates the main camera's aspect.
func (rn *Runner) SetSize(width, height int) {
	rn.renderer.SetSize(width, height)
	if cam := rn.cameras.MainCamera(); cam != nil && height > 0 {
		cam.SetAspect(float64(width) / float64(height))
	}
}

// AddPreProcess registers fn to run before systems each frame.
func (rn *Runner) AddPreProcess(fn FrameFunc) { rn.preProcess = append(rn.preProcess, fn) }

// AddPreRender registers fn to run after systems, before drawing.
func (rn *Runner) AddPreRender(fn FrameFunc) { rn.preRender = append(rn.preRender, fn) }

// AddPostRender registers fn to run after drawing.
func (rn *Runner) AddPostRender(fn FrameFunc) { rn.postRender = append(rn.postRender, fn) }

// RunNextFrame schedules fn to run once at the start of the next frame.
// Callbacks scheduled while running are deferred to the frame after.
func (rn *Runner) RunNextFrame(fn FrameFunc) { rn.nextFrame = append(rn.nextFrame, fn) }

// TakeSnapshot schedules fn to receive the next rendered frame.
func (rn *Runner) TakeSnapshot(fn SnapshotFunc) { rn.snapshots = append(rn.snapshots, fn) }

// Screenshot writes the next rendered frame to SnapshotDir as a PNG.
func (rn *Runner) Screenshot(label string) {
	rn.TakeSnapshot(func(img *image.NRGBA, err error) {
		if err == nil {
			_, err = SaveSnapshot(rn.SnapshotDir, label, img)
		}
		if err != nil {
			rn.log.Warn("screenshot failed", zap.String("label", label), zap.Error(err))
		}
	})
}

// Stop makes Run return after the current frame.
func (rn *Runner) Stop() { rn.stopped = true }

// Stopped reports whether Stop was called.
func (rn *Runner) Stopped() bool { return rn.stopped }

// Process advances the frame clock by dt seconds and runs callbacks and
// systems. A dt that is negative or longer than a second is treated as a
// bad clock reading: the frame is skipped and Process returns false.
func (rn *Runner) Process(dt float64) bool {
	if dt < 0 || dt > maxFrameGap {
		rn.log.Debug("frame skipped", zap.Float64("dt", dt))
		return false
	}
	rn.ctx.TPF = rn.smooth(min(max(dt, minTPF), rn.maxTPF))
	rn.ctx.Time += rn.ctx.TPF
	rn.ctx.Frame++

	if len(rn.nextFrame) > 0 {
		next := rn.nextFrame
		rn.nextFrame = nil
		rn.callAll("nextFrame", next)
	}
	rn.callAll("preProcess", rn.preProcess)

	start := time.Now()
	rn.world.Process(&rn.ctx)
	rn.processTime = time.Since(start)
	return true
}

// smooth records tpf and returns the average over the smoothing window.
func (rn *Runner) smooth(tpf float64) float64 {
	rn.tpfs[rn.tpfIndex] = tpf
	rn.tpfIndex = (rn.tpfIndex + 1) % len(rn.tpfs)
	if rn.tpfCount < len(rn.tpfs) {
		rn.tpfCount++
	}
	sum := 0.0
	for _, v := range rn.tpfs[:rn.tpfCount] {
		sum += v
	}
	return sum / float64(rn.tpfCount)
}

// Render draws the frame, then runs post-render callbacks, resolves
// snapshot requests, and publishes a FrameEvent.
func (rn *Runner) Render() {
	rn.callAll("preRender", rn.preRender)
	rn.world.Render(rn.renderer, &rn.ctx)
	rn.callAll("postRender", rn.postRender)
	rn.resolveSnapshots()

	stats := rn.renderer.Stats()
	Publish(rn.bus, FrameEvent{Frame: rn.ctx.Frame, TPF: rn.ctx.TPF, Stats: stats})

	if rn.debug {
		sortTime, dispatchTime := rn.render.Timings()
		list := rn.render.RenderList()
		rn.debugLog(debugStats{
			processTime:   rn.processTime,
			sortTime:      sortTime,
			dispatchTime:  dispatchTime,
			renderables:   len(list),
			materialRuns:  countMaterialRuns(list),
			drawCallCount: stats.Calls,
			render:        stats,
		})
	}
}

// Frame runs Process and, unless the frame was skipped, Render.
func (rn *Runner) Frame(dt float64) {
	if rn.Process(dt) {
		rn.Render()
	}
}

func (rn *Runner) resolveSnapshots() {
	if len(rn.snapshots) == 0 {
		return
	}
	pending := rn.snapshots
	rn.snapshots = nil

	var img *image.NRGBA
	err := ErrSnapshotUnsupported
	if s, ok := rn.renderer.Device().(Snapshotter); ok {
		img, err = s.Snapshot()
	}
	for _, fn := range pending {
		rn.call("snapshot", func() { fn(img, err) })
	}
}

func (rn *Runner) callAll(name string, fns []FrameFunc) {
	tpf := rn.ctx.TPF
	for _, fn := range fns {
		rn.call(name, func() { fn(tpf) })
	}
}

// call runs a user callback, recovering a panic into an ErrorEvent when the
// runner is in safe mode.
func (rn *Runner) call(name string, fn func()) {
	if !rn.safe {
		fn()
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			rn.ctx.reportError("callback", nil, recoveredError(fmt.Sprintf("%s callback", name), rec))
		}
	}()
	fn()
}

// Shutdown releases device resources and drops every callback and event
// subscription.
func (rn *Runner) Shutdown() {
	rn.renderer.Release()
	rn.bus.Clear()
	rn.preProcess, rn.preRender, rn.postRender = nil, nil, nil
	rn.nextFrame, rn.snapshots = nil, nil
	rn.stopped = true
}
