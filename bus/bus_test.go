package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"amoled-bsp/types"
)

func recv(t *testing.T, s *Subscription) *Message {
	t.Helper()
	select {
	case m := <-s.Channel():
		return m
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("nothing delivered on %v", s.Topic())
		return nil
	}
}

func none(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case m := <-s.Channel():
		t.Fatalf("unexpected %v on %v", m.Topic, s.Topic())
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, topic string
		want           bool
	}{
		{"bsp/power/value", "bsp/power/value", true},
		{"bsp/power/value", "bsp/power/status", false},
		{"bsp/+/value", "bsp/motion/value", true},
		{"bsp/+/value", "bsp/motion/status", false},
		{"bsp/+/value", "bsp/value", false},
		{"bsp/+", "bsp/power/value", false},
		{"bsp/bringup/#", "bsp/bringup/stage", true},
		{"bsp/bringup/#", "bsp/bringup", true},
		{"bsp/bringup/#", "bsp/clock/value", false},
		{"#", "config/telemetry", true},
		{"+/+/get", "bsp/clock/get", true},
	}
	for _, tc := range cases {
		t.Run(tc.pattern+"~"+tc.topic, func(t *testing.T) {
			b := NewBus(4)
			c := b.NewConnection("test")
			s := c.Subscribe(T(tc.pattern))
			c.Publish(c.NewMessage(T(tc.topic), "x", false))
			if tc.want {
				if m := recv(t, s); !m.Topic.Equal(T(tc.topic)) {
					t.Fatalf("delivered %v", m.Topic)
				}
			} else {
				none(t, s)
			}
		})
	}
}

func TestRetainedSnapshotOnSubscribe(t *testing.T) {
	b := NewBus(8)
	pub := b.NewConnection("telemetry")
	pub.Publish(pub.NewMessage(T("bsp/clock/value"), types.ClockValue{Unix: 1767225600}, true))
	pub.Publish(pub.NewMessage(T("bsp/power/value"), types.PowerValue{BatteryMilliV: 3900, State: "charging"}, true))
	pub.Publish(pub.NewMessage(T("bsp/power/status"), types.Status{Link: types.LinkUp}, true))
	pub.Publish(pub.NewMessage(T("bsp/power/value"), types.PowerValue{BatteryMilliV: 3850, State: "discharging"}, true))

	s := b.NewConnection("watch").Subscribe(T("bsp/+/value"))
	seen := map[string]any{}
	for i := 0; i < 2; i++ {
		m := recv(t, s)
		seen[m.Topic[1]] = m.Payload
	}
	none(t, s)

	if v, ok := seen["clock"].(types.ClockValue); !ok || v.Unix != 1767225600 {
		t.Fatalf("clock=%#v", seen["clock"])
	}
	if v, ok := seen["power"].(types.PowerValue); !ok || v.BatteryMilliV != 3850 || v.State != "discharging" {
		t.Fatalf("power=%#v, want latest value", seen["power"])
	}
}

func TestNonRetainedNotReplayed(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	c.Publish(c.NewMessage(T("bsp/bringup/stage"), types.StageEvent{Stage: "done"}, false))
	none(t, c.Subscribe(T("bsp/#")))
	if _, ok := b.Retained(T("bsp/bringup/stage")); ok {
		t.Fatal("non-retained message stored")
	}
}

func TestRequestReply(t *testing.T) {
	b := NewBus(8)
	svc := b.NewConnection("telemetry")
	gets := svc.Subscribe(T("bsp/+/get"))
	go func() {
		for m := range gets.Channel() {
			svc.Reply(m, types.PowerValue{SystemMilliV: 4800}, false)
		}
	}()
	defer svc.Disconnect()

	client := b.NewConnection("client")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req := client.NewMessage(T("bsp/power/get"), nil, false)
	reply, err := client.RequestWait(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Topic.Equal(req.ReplyTo) || reply.Topic[0] != "_reply" || reply.Topic[1] != "client" {
		t.Fatalf("reply on %v, request ReplyTo %v", reply.Topic, req.ReplyTo)
	}
	if v, ok := reply.Payload.(types.PowerValue); !ok || v.SystemMilliV != 4800 {
		t.Fatalf("payload=%#v", reply.Payload)
	}
	if _, ok := b.Retained(reply.Topic); ok {
		t.Fatal("reply retained")
	}
}

func TestRequestWaitHonoursContext(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("client")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.RequestWait(ctx, c.NewMessage(T("bsp/clock/get"), nil, false))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
}

func TestReplyWithoutReplyToIgnored(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(T("#"))
	c.Reply(c.NewMessage(T("bsp/clock/get"), nil, false), "x", false)
	none(t, s)
}

func TestTopicParse(t *testing.T) {
	tp := T("bsp/bringup/stage")
	if !tp.Equal(Topic{"bsp", "bringup", "stage"}) {
		t.Fatalf("got %#v", tp)
	}
	if tp.String() != "bsp/bringup/stage" {
		t.Fatalf("got %q", tp.String())
	}
	ext := tp.With("x")
	if len(tp) != 3 || ext.String() != "bsp/bringup/stage/x" {
		t.Fatalf("With modified receiver or produced %q", ext)
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("bsp/power/value"))

	for _, p := range []string{"1", "2", "3"} {
		c.Publish(b.NewMessage(T("bsp/power/value"), p, false))
	}
	for _, want := range []string{"2", "3"} {
		if m := recv(t, s); m.Payload != want {
			t.Fatalf("got %v, want %s", m.Payload, want)
		}
	}
	none(t, s)
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(T("a/b"))
	s.Unsubscribe()
	s.Unsubscribe()
	if _, ok := <-s.Channel(); ok {
		t.Fatal("channel still open")
	}
	// publishing after unsubscribe must not panic on the closed channel
	c.Publish(b.NewMessage(T("a/b"), "late", false))
	if len(b.subs.children) != 0 {
		t.Fatal("empty subscription nodes not pruned")
	}
}

func TestDisconnectDropsAll(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s1 := c.Subscribe(T("a/#"))
	s2 := c.Subscribe(T("b/+"))
	c.Disconnect()
	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatalf("%v still open", s.Topic())
		}
	}
}

func TestRetainedLookup(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	c.Publish(b.NewMessage(T("bsp/bringup/stage"), "power_init", true))
	c.Publish(b.NewMessage(T("bsp/bringup/stage"), "done", true))

	m, ok := b.Retained(T("bsp/bringup/stage"))
	if !ok || m.Payload != "done" {
		t.Fatalf("got %v %v", m, ok)
	}
	if _, ok := b.Retained(T("bsp/bringup")); ok {
		t.Fatal("intermediate level has no retained message")
	}

	c.Publish(b.NewMessage(T("bsp/bringup/stage"), nil, true))
	if _, ok := b.Retained(T("bsp/bringup/stage")); ok {
		t.Fatal("retained message not cleared")
	}
	if len(b.retained.children) != 0 {
		t.Fatal("cleared retained path not pruned")
	}
}
