package juniper

import (
	"time"

	"go.uber.org/zap"
)

// debugStats holds per-frame timing and draw metrics.
// Only populated when the runner is in debug mode.
type debugStats struct {
	processTime   time.Duration
	sortTime      time.Duration
	dispatchTime  time.Duration
	renderables   int
	materialRuns  int
	drawCallCount int
	render        RenderStats
}

// debugLog writes frame stats at debug level.
func (rn *Runner) debugLog(stats debugStats) {
	if !rn.debug {
		return
	}
	total := stats.processTime + stats.sortTime + stats.dispatchTime
	rn.log.Debug("frame",
		zap.Uint64("frame", rn.ctx.Frame),
		zap.Duration("process", stats.processTime),
		zap.Duration("sort", stats.sortTime),
		zap.Duration("dispatch", stats.dispatchTime),
		zap.Duration("total", total),
		zap.Int("renderables", stats.renderables),
		zap.Int("materialRuns", stats.materialRuns),
		zap.Int("drawCalls", stats.drawCallCount),
		zap.Int("programSwitches", stats.render.ProgramSwitches),
		zap.Int("bufferElided", stats.render.BufferElided),
		zap.Int("textureElided", stats.render.TextureElided),
		zap.Int("uniformElided", stats.render.UniformElided),
	)
}

// debugMaxTreeDepth is the hierarchy depth above which Attach warns in
// debug mode.
const debugMaxTreeDepth = 32

func (w *World) debugCheckTreeDepth(e *Entity) {
	depth := 0
	for p := e; p != nil; p = p.Parent() {
		depth++
		if depth > debugMaxTreeDepth {
			w.log.Warn("hierarchy too deep",
				zap.String("entity", e.Name), zap.Int("threshold", debugMaxTreeDepth))
			return
		}
	}
}

// debugMaxChildCount is the child count above which Attach warns in debug
// mode.
const debugMaxChildCount = 1000

func (w *World) debugCheckChildCount(e *Entity) {
	if t := e.Transform(); t != nil && len(t.children) > debugMaxChildCount {
		w.log.Warn("entity has many children",
			zap.String("entity", e.Name), zap.Int("children", len(t.children)),
			zap.Int("threshold", debugMaxChildCount))
	}
}

// countMaterialRuns counts contiguous groups of renderables sharing the same
// primary material. A well-sorted opaque list keeps this close to the
// number of distinct materials.
func countMaterialRuns(list []Renderable) int {
	if len(list) == 0 {
		return 0
	}
	count := 1
	prev := list[0].primaryMaterial()
	for i := 1; i < len(list); i++ {
		cur := list[i].primaryMaterial()
		if cur != prev {
			count++
			prev = cur
		}
	}
	return count
}
