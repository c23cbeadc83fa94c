// Package ecs provides ECS adapters for juniper's event bus.
//
// The primary adapter is [NewDonburiStore], which mirrors the entities of a
// juniper world into a [Donburi] world, tagging each with an [EntityRef],
// and republishes engine events (entity added and removed, recovered errors,
// frame stats) as typed Donburi events.
//
// Usage:
//
//	store := ecs.NewDonburiStore(donburi.NewWorld())
//	store.Attach(runner.Bus())
//	ecs.FrameEventType.Subscribe(store.World(), onFrame)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
