/*
NAME
  broadcast.go

DESCRIPTION
  broadcast.go implements a topic-indexed, non-blocking fan-out fabric.
  Subscribers receive messages on a buffered channel; a subscriber whose
  channel is full has the message dropped for it, with a per-subscriber
  and per-topic drop counter, while delivery to other subscribers
  continues. Dead subscribers are harvested on each broadcast.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package broadcast provides a topic-indexed, best-effort publish
// fabric used to fan out processed frames and vital-signs estimates to
// interested observers without letting a slow subscriber stall the
// acquisition loop.
package broadcast

import "sync"

// DefaultInboxCapacity is the default per-subscriber channel buffer.
const DefaultInboxCapacity = 16

// Handle identifies a subscription returned by Subscribe; pass it to
// Unsubscribe to remove it.
type Handle uint64

// subscriber is one registered inbox for a topic.
type subscriber struct {
	handle Handle
	inbox  chan interface{}
	dead   bool
}

// Fabric is a topic-indexed, non-blocking broadcast fabric. It is safe
// for concurrent use; subscribe, unsubscribe, and broadcast calls may
// originate from any task.
type Fabric struct {
	mu          sync.Mutex
	subscribers map[string][]*subscriber
	nextHandle  Handle

	// dropsByTopic and dropsByHandle accumulate drop counts for
	// subscribers whose inbox was full at delivery time.
	dropsByTopic  map[string]uint64
	dropsByHandle map[Handle]uint64

	inboxCapacity int
}

// New returns an empty Fabric whose subscriber inboxes are buffered to
// capacity messages. A non-positive capacity uses DefaultInboxCapacity.
func New(capacity int) *Fabric {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Fabric{
		subscribers:   make(map[string][]*subscriber),
		dropsByTopic:  make(map[string]uint64),
		dropsByHandle: make(map[Handle]uint64),
		inboxCapacity: capacity,
	}
}

// Subscribe registers a new subscriber to topic and returns its handle
// and inbox channel. The caller owns draining the channel.
func (f *Fabric) Subscribe(topic string) (Handle, <-chan interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextHandle++
	h := f.nextHandle
	sub := &subscriber{handle: h, inbox: make(chan interface{}, f.inboxCapacity)}
	f.subscribers[topic] = append(f.subscribers[topic], sub)
	return h, sub.inbox
}

// Unsubscribe removes a subscription by handle, across all topics.
func (f *Fabric) Unsubscribe(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for topic, subs := range f.subscribers {
		for _, s := range subs {
			if s.handle == h {
				s.dead = true
			}
		}
		f.subscribers[topic] = removeDead(subs)
	}
}

// Broadcast delivers message to every live subscriber of topic, in
// subscription order, skipping (and counting) any subscriber whose inbox
// is currently full. Dead subscribers are harvested as part of the same
// pass.
func (f *Fabric) Broadcast(topic string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := f.subscribers[topic]
	if len(subs) == 0 {
		return
	}

	for _, s := range subs {
		if s.dead {
			continue
		}
		select {
		case s.inbox <- message:
		default:
			f.dropsByTopic[topic]++
			f.dropsByHandle[s.handle]++
		}
	}

	f.subscribers[topic] = removeDead(subs)
}

// TopicDrops returns the number of messages dropped for topic across all
// of its subscribers.
func (f *Fabric) TopicDrops(topic string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropsByTopic[topic]
}

// HandleDrops returns the number of messages dropped for a specific
// subscriber handle.
func (f *Fabric) HandleDrops(h Handle) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropsByHandle[h]
}

// SubscriberCount returns the number of live subscribers to topic.
func (f *Fabric) SubscriberCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subscribers[topic] {
		if !s.dead {
			n++
		}
	}
	return n
}

func removeDead(subs []*subscriber) []*subscriber {
	out := subs[:0]
	for _, s := range subs {
		if !s.dead {
			out = append(out, s)
		}
	}
	return out
}
