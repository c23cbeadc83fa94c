package ecs

import (
	"errors"
	"testing"

	"github.com/phanxgames/juniper"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func newWorld(t *testing.T) (*juniper.World, *DonburiStore) {
	t.Helper()
	bus := juniper.NewEventBus()
	w := juniper.NewWorld(juniper.WithEventBus(bus))
	w.RegisterComponent(juniper.KindTransform)
	store := NewDonburiStore(donburi.NewWorld())
	store.Attach(bus)
	return w, store
}

func TestNewDonburiStore(t *testing.T) {
	store := NewDonburiStore(donburi.NewWorld())
	if store == nil {
		t.Fatal("NewDonburiStore returned nil")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestDonburiStore_MirrorsEntities(t *testing.T) {
	w, store := newWorld(t)

	e := w.CreateEntity("crate")
	w.AddToWorld(e)
	w.Sync()

	de, ok := store.Entity(e.ID())
	if !ok {
		t.Fatal("entity not mirrored")
	}
	ref := EntityRefComponent.Get(store.World().Entry(de))
	if ref.ID != e.ID() || ref.Name != "crate" || ref.Ref != e.Ref() {
		t.Errorf("EntityRef = %+v", *ref)
	}

	w.RemoveFromWorld(e)
	w.Sync()
	if _, ok := store.Entity(e.ID()); ok {
		t.Error("entity still mirrored after removal")
	}
	if store.World().Valid(de) {
		t.Error("donburi entity still valid after removal")
	}
}

func TestDonburiStore_RepublishesEvents(t *testing.T) {
	w, store := newWorld(t)

	var added, removed []uint64
	EntityAddedEventType.Subscribe(store.World(), func(_ donburi.World, ev juniper.EntityAddedEvent) {
		added = append(added, ev.Entity.ID())
	})
	EntityRemovedEventType.Subscribe(store.World(), func(_ donburi.World, ev juniper.EntityRemovedEvent) {
		removed = append(removed, ev.Entity.ID())
	})

	a := w.CreateEntity("a")
	b := w.CreateEntity("b")
	w.AddToWorld(a)
	w.AddToWorld(b)
	w.Sync()
	w.RemoveFromWorld(a)
	w.Sync()

	// Events are queued until processed.
	if len(added) != 0 {
		t.Fatalf("events delivered before ProcessEvents: %v", added)
	}
	events.ProcessAllEvents(store.World())

	if len(added) != 2 || added[0] != a.ID() || added[1] != b.ID() {
		t.Errorf("added = %v, want [%d %d]", added, a.ID(), b.ID())
	}
	if len(removed) != 1 || removed[0] != a.ID() {
		t.Errorf("removed = %v, want [%d]", removed, a.ID())
	}
}

func TestDonburiStore_ErrorAndFrameEvents(t *testing.T) {
	bus := juniper.NewEventBus()
	store := NewDonburiStore(donburi.NewWorld())
	store.Attach(bus)

	var errs []juniper.ErrorEvent
	var frames []uint64
	ErrorEventType.Subscribe(store.World(), func(_ donburi.World, ev juniper.ErrorEvent) {
		errs = append(errs, ev)
	})
	FrameEventType.Subscribe(store.World(), func(_ donburi.World, ev juniper.FrameEvent) {
		frames = append(frames, ev.Frame)
	})

	boom := errors.New("boom")
	juniper.Publish(bus, juniper.ErrorEvent{Source: "script", Err: boom})
	juniper.Publish(bus, juniper.FrameEvent{Frame: 7})
	events.ProcessAllEvents(store.World())

	if len(errs) != 1 || errs[0].Source != "script" || !errors.Is(errs[0].Err, boom) {
		t.Errorf("errors = %+v", errs)
	}
	if len(frames) != 1 || frames[0] != 7 {
		t.Errorf("frames = %v, want [7]", frames)
	}
}
