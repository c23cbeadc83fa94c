package juniper

import "reflect"

// maxEventTypes is the number of distinct event types one bus can carry.
const maxEventTypes = 64

// EventBus delivers typed events to subscribers synchronously, in
// subscription order. It replaces process-wide signal channels: each Runner
// owns one bus and clears it on shutdown.
type EventBus struct {
	typeIDs  map[reflect.Type]uint8
	handlers [maxEventTypes][]any
	nextID   uint8
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers handler for events of type T.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	if bus == nil {
		return
	}
	id := bus.typeID(reflect.TypeFor[T]())
	bus.handlers[id] = append(bus.handlers[id], handler)
}

// Publish sends event to every handler subscribed to T. A nil bus drops the
// event.
func Publish[T any](bus *EventBus, event T) {
	if bus == nil || bus.typeIDs == nil {
		return
	}
	id, ok := bus.typeIDs[reflect.TypeFor[T]()]
	if !ok {
		return
	}
	for _, h := range bus.handlers[id] {
		h.(func(T))(event)
	}
}

// Clear drops every subscription.
func (bus *EventBus) Clear() {
	bus.typeIDs = nil
	bus.handlers = [maxEventTypes][]any{}
	bus.nextID = 0
}

func (bus *EventBus) typeID(t reflect.Type) uint8 {
	if bus.typeIDs == nil {
		bus.typeIDs = make(map[reflect.Type]uint8)
	}
	if id, ok := bus.typeIDs[t]; ok {
		return id
	}
	if int(bus.nextID) >= maxEventTypes {
		panic("juniper: too many event types")
	}
	id := bus.nextID
	bus.nextID++
	bus.typeIDs[t] = id
	return id
}

// ErrorEvent reports a recovered failure in user code or a skipped draw.
type ErrorEvent struct {
	Source string // "script", "system", "uniform", "callback"
	Entity *Entity
	Err    error
}

// EntityAddedEvent fires when an entity joins the world at a sync point.
type EntityAddedEvent struct {
	Entity *Entity
}

// EntityRemovedEvent fires when an entity leaves the world at a sync point.
type EntityRemovedEvent struct {
	Entity *Entity
}

// FrameEvent fires after each rendered frame with its statistics.
type FrameEvent struct {
	Frame uint64
	TPF   float64
	Stats RenderStats
}
