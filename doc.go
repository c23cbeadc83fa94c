// Package juniper is the frame-pipeline core of a retained-mode 3D engine
// for [Ebitengine].
//
// Juniper provides the entity/component registry, the transform hierarchy,
// visibility partitioning, render-queue sorting, and a renderer that drives
// a graphics [Device] through a [DeviceStateCache] so redundant state
// changes are never issued.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	rn := juniper.NewRunner(juniper.NewEbitenDevice(), juniper.DefaultConfig())
//	// ... create entities ...
//	juniper.Run(rn, juniper.RunConfig{Title: "My Game", Width: 640, Height: 480})
//
// For headless use, build the runner on a [NullDevice] and call
// [Runner.Frame] yourself.
//
// # Entities and components
//
// A [World] owns entities. Each entity has at most one component per
// [ComponentKind]. Component and membership changes to active entities are
// queued and applied at the next sync point, at the start of
// [World.Process], so systems never see a half-applied frame:
//
//	w := rn.World()
//	box := w.CreateEntity("box")
//	w.SetComponent(box, juniper.NewTransformComponent())
//	w.SetComponent(box, juniper.NewMeshDataComponent(juniper.NewBox("box", 1, 1, 1)))
//	w.SetComponent(box, juniper.NewMeshRendererComponent(mat))
//	w.AddToWorld(box)
//
// # Transforms
//
// [World.Attach] parents one transform to another. Cycles are rejected with
// [ErrTransformCycle]. [TransformSystem] recomputes world matrices only for
// dirty subtrees; a node's world matrix is its parent's world matrix times
// its local matrix.
//
// # Rendering
//
// [RenderSystem] collects visible entities through a [Partitioner], sorts
// them with a [RenderQueue] (opaque buckets by shader then material,
// transparent buckets back to front), and hands the list to the [Renderer].
// Shaders compile once per distinct set of defines. Missing textures draw
// with a placeholder; programs that are not ready are skipped and retried.
//
// Tweens (via [gween]) animate transforms, and the ecs subpackage mirrors
// engine events into a [Donburi] world.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package juniper
