package juniper

import "github.com/google/uuid"

// noIndex marks an absent entity index in hierarchy links.
const noIndex int32 = -1

// Entity is an identity with at most one component per kind. Entities are
// created by a World and become active in systems only after AddToWorld
// takes effect at the next sync point.
type Entity struct {
	// Name is a human-readable label. Not required to be unique.
	Name string

	id    uint64
	index int32
	ref   uuid.UUID
	world *World

	components [kindCount]Component
	mask       KindMask
	inWorld    bool
}

// ID returns the entity's stable identifier.
func (e *Entity) ID() uint64 { return e.id }

// Index returns the entity's dense index in its world's entity table.
func (e *Entity) Index() int { return int(e.index) }

// Ref returns the entity's external reference id, used by loaders and
// editors to address entities across sessions.
func (e *Entity) Ref() uuid.UUID { return e.ref }

// World returns the world that created e.
func (e *Entity) World() *World { return e.world }

// InWorld reports whether e is active. Changes queued with AddToWorld or
// RemoveFromWorld take effect at the next sync point.
func (e *Entity) InWorld() bool { return e.inWorld }

// Mask returns the set of kinds e currently owns.
func (e *Entity) Mask() KindMask { return e.mask }

// Has reports whether e owns a component of kind k.
func (e *Entity) Has(k ComponentKind) bool { return e.mask.Has(k) }

// Component returns e's component of kind k, or nil.
func (e *Entity) Component(k ComponentKind) Component {
	if k >= kindCount {
		return nil
	}
	return e.components[k]
}

// Transform returns e's transform component, or nil.
func (e *Entity) Transform() *TransformComponent {
	c, _ := e.components[KindTransform].(*TransformComponent)
	return c
}

// MeshData returns e's mesh data component, or nil.
func (e *Entity) MeshData() *MeshDataComponent {
	c, _ := e.components[KindMeshData].(*MeshDataComponent)
	return c
}

// MeshRenderer returns e's mesh renderer component, or nil.
func (e *Entity) MeshRenderer() *MeshRendererComponent {
	c, _ := e.components[KindMeshRenderer].(*MeshRendererComponent)
	return c
}

// Camera returns e's camera component, or nil.
func (e *Entity) Camera() *CameraComponent {
	c, _ := e.components[KindCamera].(*CameraComponent)
	return c
}

// Light returns e's light component, or nil.
func (e *Entity) Light() *LightComponent {
	c, _ := e.components[KindLight].(*LightComponent)
	return c
}

// Script returns e's script component, or nil.
func (e *Entity) Script() *ScriptComponent {
	c, _ := e.components[KindScript].(*ScriptComponent)
	return c
}

// Parent returns the entity owning e's parent transform, or nil for roots.
func (e *Entity) Parent() *Entity {
	t := e.Transform()
	if t == nil || t.parent == noIndex {
		return nil
	}
	return e.world.entityAt(t.parent)
}

// Children returns the entities attached below e, in attach order.
func (e *Entity) Children() []*Entity {
	t := e.Transform()
	if t == nil || len(t.children) == 0 {
		return nil
	}
	out := make([]*Entity, 0, len(t.children))
	for _, idx := range t.children {
		if c := e.world.entityAt(idx); c != nil {
			out = append(out, c)
		}
	}
	return out
}
