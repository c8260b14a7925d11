package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dokzlo13/huefri/internal/hub"
)

type collector struct {
	mu     sync.Mutex
	events []hub.Event
}

func (c *collector) handle(ev hub.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) kinds() []hub.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]hub.EventKind, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestBus_DeliversInOrder(t *testing.T) {
	b := New()
	all := &collector{}
	manual := &collector{}
	b.SubscribeAll(all.handle)
	b.Subscribe(hub.EventManual, manual.handle)

	b.Record(hub.Event{Kind: hub.EventPropagated})
	b.Record(hub.Event{Kind: hub.EventManual})
	b.Record(hub.Event{Kind: hub.EventEchoSuppressed})
	b.Close(context.Background())

	assert.Equal(t, []hub.EventKind{hub.EventPropagated, hub.EventManual, hub.EventEchoSuppressed}, all.kinds())
	assert.Equal(t, []hub.EventKind{hub.EventManual}, manual.kinds())
}

func TestBus_SurvivesPanickingHandler(t *testing.T) {
	b := New()
	c := &collector{}
	b.SubscribeAll(func(hub.Event) { panic("boom") })
	b.SubscribeAll(c.handle)

	b.Record(hub.Event{Kind: hub.EventCycleError})
	b.Close(context.Background())

	assert.Equal(t, []hub.EventKind{hub.EventCycleError}, c.kinds())
}

func TestBus_DropsWhenFullOrClosed(t *testing.T) {
	b := NewWithConfig(1, 1)
	release := make(chan struct{})
	c := &collector{}
	b.SubscribeAll(func(ev hub.Event) {
		<-release
		c.handle(ev)
	})

	b.Record(hub.Event{Kind: hub.EventManual})
	// wait until the worker holds the first event
	assert.Eventually(t, func() bool { return len(b.workQueue) == 0 }, time.Second, time.Millisecond)
	b.Record(hub.Event{Kind: hub.EventPropagated})
	b.Record(hub.Event{Kind: hub.EventUnknownColor}) // queue full
	close(release)
	b.Close(context.Background())

	b.Record(hub.Event{Kind: hub.EventCycleError}) // closed
	b.Close(context.Background())

	assert.Equal(t, []hub.EventKind{hub.EventManual, hub.EventPropagated}, c.kinds())
}
