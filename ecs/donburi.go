package ecs

import (
	"github.com/google/uuid"
	"github.com/phanxgames/juniper"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// Donburi event types carrying juniper engine events. Subscribe to these in
// your ECS systems and drain them with ProcessEvents.
var (
	EntityAddedEventType   = events.NewEventType[juniper.EntityAddedEvent]()
	EntityRemovedEventType = events.NewEventType[juniper.EntityRemovedEvent]()
	ErrorEventType         = events.NewEventType[juniper.ErrorEvent]()
	FrameEventType         = events.NewEventType[juniper.FrameEvent]()
)

// EntityRef links a Donburi entity to the juniper entity it mirrors.
type EntityRef struct {
	ID   uint64
	Ref  uuid.UUID
	Name string
}

// EntityRefComponent is the Donburi component holding an EntityRef.
var EntityRefComponent = donburi.NewComponentType[EntityRef]()

// DonburiStore mirrors the entities of a juniper world into a Donburi world
// and republishes engine events as Donburi events.
type DonburiStore struct {
	world  donburi.World
	mirror map[uint64]donburi.Entity
}

// NewDonburiStore creates a store backed by world. Call Attach to start
// receiving engine events.
func NewDonburiStore(world donburi.World) *DonburiStore {
	return &DonburiStore{world: world, mirror: make(map[uint64]donburi.Entity)}
}

// World returns the Donburi world.
func (s *DonburiStore) World() donburi.World { return s.world }

// Attach subscribes the store to bus.
func (s *DonburiStore) Attach(bus *juniper.EventBus) {
	juniper.Subscribe(bus, s.entityAdded)
	juniper.Subscribe(bus, s.entityRemoved)
	juniper.Subscribe(bus, func(e juniper.ErrorEvent) { ErrorEventType.Publish(s.world, e) })
	juniper.Subscribe(bus, func(e juniper.FrameEvent) { FrameEventType.Publish(s.world, e) })
}

// Entity returns the Donburi entity mirroring the juniper entity with id.
func (s *DonburiStore) Entity(id uint64) (donburi.Entity, bool) {
	de, ok := s.mirror[id]
	return de, ok
}

// Len returns the number of mirrored entities.
func (s *DonburiStore) Len() int { return len(s.mirror) }

func (s *DonburiStore) entityAdded(ev juniper.EntityAddedEvent) {
	e := ev.Entity
	if _, ok := s.mirror[e.ID()]; !ok {
		de := s.world.Create(EntityRefComponent)
		EntityRefComponent.SetValue(s.world.Entry(de), EntityRef{ID: e.ID(), Ref: e.Ref(), Name: e.Name})
		s.mirror[e.ID()] = de
	}
	EntityAddedEventType.Publish(s.world, ev)
}

func (s *DonburiStore) entityRemoved(ev juniper.EntityRemovedEvent) {
	id := ev.Entity.ID()
	if de, ok := s.mirror[id]; ok {
		if s.world.Valid(de) {
			s.world.Remove(de)
		}
		delete(s.mirror, id)
	}
	EntityRemovedEventType.Publish(s.world, ev)
}
