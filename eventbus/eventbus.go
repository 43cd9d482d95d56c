// Package eventbus is the in-process reporting plane: a retained-topic
// publish/subscribe trie. Driver-facing services publish sensor values and
// status here; anything upstream subscribes. Topics are string segments
// ("sensor", id, "accel"); "+" in a subscription matches any one segment.
package eventbus

import "sync"

// Topic is a sequence of path segments.
type Topic []string

// T builds a topic from segments.
func T(segs ...string) Topic { return Topic(segs) }

// Wildcard matches exactly one segment in a subscription topic.
const Wildcard = "+"

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	topic Topic
	conn  *Connection

	// mu serialises delivery against close: publishers snapshot matching
	// subscriptions under the bus lock but send after releasing it, so an
	// unguarded close could race a delivery mid-send.
	mu     sync.Mutex
	ch     chan *Message
	closed bool
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

type Bus struct {
	mu   sync.RWMutex
	root *node
	qLen int
}

// New creates a bus. queueLen bounds each subscription's channel; when a
// queue is full the oldest message is dropped in favour of the newest.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	n := b.root
	for _, seg := range sub.topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[seg]
		if !ok {
			child = &node{}
			n.children[seg] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	// Replay retained messages the new subscription matches.
	var replay []*Message
	collectRetained(b.root, sub.topic, &replay)
	b.mu.Unlock()

	for _, m := range replay {
		sub.deliver(m)
	}
}

// collectRetained walks the trie along topic, expanding wildcards.
func collectRetained(n *node, topic Topic, out *[]*Message) {
	if len(topic) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	seg, rest := topic[0], topic[1:]
	if seg == Wildcard {
		for _, child := range n.children {
			collectRetained(child, rest, out)
		}
		return
	}
	if child, ok := n.children[seg]; ok {
		collectRetained(child, rest, out)
	}
}

// Publish delivers msg to every matching subscription and, when retained,
// stores it at the topic node (nil payload clears the slot).
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	var matched []*Subscription
	match(b.root, msg.Topic, &matched)

	if msg.Retained {
		n := b.root
		for _, seg := range msg.Topic {
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			child, ok := n.children[seg]
			if !ok {
				child = &node{}
				n.children[seg] = child
			}
			n = child
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
	b.mu.Unlock()

	for _, sub := range matched {
		sub.deliver(msg)
	}
}

// match collects subscriptions whose (possibly wildcarded) topics match
// the published topic.
func match(n *node, topic Topic, out *[]*Subscription) {
	if len(topic) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	if n.children == nil {
		return
	}
	seg, rest := topic[0], topic[1:]
	if child, ok := n.children[seg]; ok {
		match(child, rest, out)
	}
	if child, ok := n.children[Wildcard]; ok {
		match(child, rest, out)
	}
}

// deliver queues msg, dropping the oldest entry when the channel is full.
// A message for a subscription that was closed between match and delivery
// is discarded.
func (s *Subscription) deliver(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
}

// shut marks the subscription closed and closes its channel. Safe against
// in-flight deliveries; idempotent so Unsubscribe after Disconnect is a
// no-op.
func (s *Subscription) shut() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, seg := range sub.topic {
		child, ok := n.children[seg]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// Connection groups subscriptions under one owner so they can be torn down
// together.
type Connection struct {
	bus  *Bus
	mu   sync.Mutex
	subs []*Subscription
	id   string
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan *Message, c.bus.qLen), conn: c}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	sub.shut()
}

// Disconnect closes all of the connection's subscriptions.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		sub.shut()
	}
}
