// Package bus is the in-process publish/subscribe hub that carries bring-up
// status and telemetry. Topics are slash-separated paths; subscriptions may
// use "+" for exactly one level and "#" for any remaining levels (including
// none). A retained message is kept per topic and handed to later
// subscribers; publishing a retained nil payload clears it.
package bus

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	wildOne  = "+"
	wildRest = "#"
)

// Topic is a sequence of path levels.
type Topic []string

// T splits a slash-separated path into a Topic.
func T(path string) Topic { return Topic(strings.Split(path, "/")) }

func (t Topic) String() string { return strings.Join(t, "/") }

// With returns a copy of t extended by levels.
func (t Topic) With(levels ...string) Topic {
	out := make(Topic, 0, len(t)+len(levels))
	return append(append(out, t...), levels...)
}

// Equal reports whether both topics have the same levels.
func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

type Subscription struct {
	topic  Topic
	ch     chan *Message
	conn   *Connection
	closed bool // guarded by Bus.mu
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// node is shared by the subscription trie (keyed by pattern level) and the
// retained trie (keyed by concrete level).
type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(k string, create bool) *node {
	c := n.children[k]
	if c == nil && create {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		c = &node{}
		n.children[k] = c
	}
	return c
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

type Bus struct {
	mu       sync.Mutex
	subs     *node
	retained *node
	qLen     int
	seq      atomic.Uint64
}

// NewBus creates a bus whose subscriptions buffer queueLen messages. A full
// queue drops its oldest message.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{subs: &node{}, retained: &node{}, qLen: queueLen}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription and updates the
// retained store when msg.Retained is set.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		b.retain(msg)
	}
	for _, s := range match(b.subs, msg.Topic, nil) {
		deliver(s, msg)
	}
}

func (b *Bus) retain(msg *Message) {
	if msg.Payload != nil {
		n := b.retained
		for _, lvl := range msg.Topic {
			n = n.child(lvl, true)
		}
		n.retained = msg
		return
	}
	path := []*node{b.retained}
	n := b.retained
	for _, lvl := range msg.Topic {
		if n = n.child(lvl, false); n == nil {
			return
		}
		path = append(path, n)
	}
	n.retained = nil
	prune(path, msg.Topic)
}

// Retained returns the retained message stored for topic, if any.
func (b *Bus) Retained(topic Topic) (*Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.retained
	for _, lvl := range topic {
		if n = n.child(lvl, false); n == nil {
			return nil, false
		}
	}
	return n.retained, n.retained != nil
}

// match collects subscriptions whose pattern matches the concrete topic t.
func match(n *node, t Topic, out []*Subscription) []*Subscription {
	if h := n.child(wildRest, false); h != nil {
		out = append(out, h.subs...)
	}
	if len(t) == 0 {
		return append(out, n.subs...)
	}
	if c := n.child(t[0], false); c != nil {
		out = match(c, t[1:], out)
	}
	if c := n.child(wildOne, false); c != nil {
		out = match(c, t[1:], out)
	}
	return out
}

// eachRetained visits retained messages whose topic matches pattern.
func eachRetained(n *node, pattern Topic, fn func(*Message)) {
	if len(pattern) == 0 {
		if n.retained != nil {
			fn(n.retained)
		}
		return
	}
	switch pattern[0] {
	case wildRest:
		var all func(*node)
		all = func(n *node) {
			if n.retained != nil {
				fn(n.retained)
			}
			for _, c := range n.children {
				all(c)
			}
		}
		all(n)
	case wildOne:
		for _, c := range n.children {
			eachRetained(c, pattern[1:], fn)
		}
	default:
		if c := n.child(pattern[0], false); c != nil {
			eachRetained(c, pattern[1:], fn)
		}
	}
}

// deliver never blocks: a full queue loses its oldest entry.
func deliver(s *Subscription, msg *Message) {
	select {
	case s.ch <- msg:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- msg:
	default:
	}
}

func (b *Bus) subscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.subs
	for _, lvl := range s.topic {
		n = n.child(lvl, true)
	}
	n.subs = append(n.subs, s)
	eachRetained(b.retained, s.topic, func(m *Message) { deliver(s, m) })
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)

	path := []*node{b.subs}
	n := b.subs
	for _, lvl := range s.topic {
		if n = n.child(lvl, false); n == nil {
			return
		}
		path = append(path, n)
	}
	for i, x := range n.subs {
		if x == s {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	prune(path, s.topic)
}

// prune removes empty nodes bottom-up; path[i+1] is path[i]'s child topic[i].
func prune(path []*node, topic Topic) {
	for i := len(topic) - 1; i >= 0; i-- {
		if !path[i+1].empty() {
			return
		}
		delete(path[i].children, topic[i])
	}
}

// Connection is one participant's handle on the bus. It owns the
// subscriptions made through it.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(topic Topic) *Subscription {
	s := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	c.bus.subscribe(s)
	return s
}

// Unsubscribe detaches s and closes its channel. Repeated calls are no-ops.
func (c *Connection) Unsubscribe(s *Subscription) {
	c.bus.unsubscribe(s)
	c.mu.Lock()
	for i, x := range c.subs {
		if x == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// Disconnect drops every subscription owned by c.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		c.bus.unsubscribe(s)
	}
}

// Request publishes req with a fresh reply topic and returns the
// subscription that will receive the answer.
func (c *Connection) Request(req *Message) *Subscription {
	req.ReplyTo = Topic{"_reply", c.id, strconv.FormatUint(c.bus.seq.Add(1), 10)}
	s := c.Subscribe(req.ReplyTo)
	c.Publish(req)
	return s
}

// RequestWait sends req and blocks for the first reply or ctx's end.
func (c *Connection) RequestWait(ctx context.Context, req *Message) (*Message, error) {
	s := c.Request(req)
	defer c.Unsubscribe(s)
	select {
	case m := <-s.Channel():
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply answers req on its reply topic. Requests without one are ignored.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}
