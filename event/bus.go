// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

// Package event implements the typed multi-producer/multi-consumer bus of
// §9: "the event bus ... should be a typed multi-producer/multi-consumer
// channel with per-subscriber filters; no dynamic reflection on handler
// shapes." It is grounded on the teacher's chainntnfs subscription
// pattern: callers get back a subscription struct carrying a channel they
// read from, closed when they unsubscribe.
package event

import "sync"

// Type enumerates the events of §9.
type Type int

const (
	ChannelUpdateEvent Type = iota
	ConditionalTransferCreated
	ConditionalTransferResolved
	IsAliveEvent
	RestoreStateEvent
	WithdrawalReconciledEvent
)

// Event is the envelope published on the bus. Payload is one of the
// concrete event payload types declared in payloads.go; consumers type
// assert after checking Type, never via reflection.
type Event struct {
	Type    Type
	Payload interface{}
}

// Filter reports whether a subscriber wants to receive ev.
type Filter func(ev Event) bool

// Subscription is handed back by Bus.Subscribe. Events matches the
// subscriber's filter are delivered on Events(); Unsubscribe stops
// delivery and closes the channel.
type Subscription struct {
	id     uint64
	bus    *Bus
	events chan Event
}

// Events returns the channel to range over for delivered events.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe removes the subscription from the bus and closes its
// channel. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

// Bus is a typed multi-producer/multi-consumer event bus. Publish never
// blocks on a slow subscriber beyond its buffer; a subscriber whose buffer
// is full misses the event being published rather than stalling producers,
// mirroring the teacher's notifier channels which are sized for the
// expected burst and documented as best-effort for slow consumers.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	subs      map[uint64]*subEntry
	bufferLen int
}

type subEntry struct {
	filter Filter
	sub    *Subscription
}

// New creates a Bus whose subscriber channels are buffered to bufferLen.
func New(bufferLen int) *Bus {
	if bufferLen <= 0 {
		bufferLen = 64
	}
	return &Bus{
		subs:      make(map[uint64]*subEntry),
		bufferLen: bufferLen,
	}
}

// Subscribe registers filter and returns a Subscription whose Events()
// channel receives every published Event for which filter returns true.
// A nil filter matches everything.
func (b *Bus) Subscribe(filter Filter) *Subscription {
	if filter == nil {
		filter = func(Event) bool { return true }
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := &Subscription{
		id:     id,
		bus:    b,
		events: make(chan Event, b.bufferLen),
	}
	b.subs[id] = &subEntry{filter: filter, sub: sub}
	return sub
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	entry, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(entry.sub.events)
	}
}

// Publish fans ev out to every subscriber whose filter matches. Per §5
// "Event emission for a channel is ordered identically to update
// application" — callers must publish in the same order they apply
// updates; the bus itself does not reorder.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, entry := range b.subs {
		if !entry.filter(ev) {
			continue
		}
		select {
		case entry.sub.events <- ev:
		default:
			// Slow subscriber; drop rather than block other
			// subscribers or the publishing actor.
		}
	}
}

// TypeFilter returns a Filter matching events of exactly the given types.
func TypeFilter(types ...Type) Filter {
	set := make(map[Type]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(ev Event) bool { return set[ev.Type] }
}
