package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/resource"
)

const (
	busBuffer        = 10
	subscriberBuffer = 32
	maxPending       = 64

	loginTitle = "Login required"
)

// Sender is the write side of the bus.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Notifier interface {
	Notify(title string, body string) error
}

// Bus holds messages until the UI reports ready, then fans them out to
// every subscriber. Only Listen reads the channel.
type Bus struct {
	ch       chan Message
	notifier Notifier

	mu      sync.Mutex
	ready   bool
	pending []Message
	subs    map[int]chan Message
	nextID  int
}

func NewBus(notifier Notifier) *Bus {
	return &Bus{
		ch:       make(chan Message, busBuffer),
		notifier: notifier,
		subs:     make(map[int]chan Message),
	}
}

func (b *Bus) Send(ctx context.Context, msg Message) error {
	select {
	case b.ch <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending %s: %w", msg.Type, ctx.Err())
	}
}

// Subscribe returns a channel of broadcast messages and a function that
// closes it.
func (b *Bus) Subscribe() (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Message, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Listen dispatches messages until ctx is done.
func (b *Bus) Listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.ch:
			b.handle(msg)
		}
	}
}

func (b *Bus) handle(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch msg.Type {
	case TypeReady:
		b.ready = true
		for _, m := range b.pending {
			b.broadcast(m)
		}
		b.pending = nil
	case TypeExitRequested:
		b.ready = false
	case TypeLoginRequired:
		if b.ready {
			b.broadcast(msg)
			return
		}
		p, _ := msg.Payload.(LoginRequiredPayload)
		if b.notifier == nil {
			return
		}
		body := fmt.Sprintf("You have been logged out. Please log back in to %s", p.Host)
		if err := b.notifier.Notify(loginTitle, body); err != nil {
			log.Error("sending login notification: %v", err)
		}
	default:
		if b.ready {
			b.broadcast(msg)
			return
		}
		b.pending = append(b.pending, msg)
		if len(b.pending) > maxPending {
			b.pending = b.pending[len(b.pending)-maxPending:]
		}
	}
}

// broadcast never blocks; a subscriber with a full buffer misses msg.
func (b *Bus) broadcast(msg Message) {
	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			log.Warn("ui subscriber %d is full, dropping %s", id, msg.Type)
		}
	}
}

// Publisher turns watcher callbacks into bus messages.
type Publisher struct {
	Sender  Sender
	Timeout time.Duration
}

func (p Publisher) send(msg Message) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.Sender.Send(ctx, msg); err != nil {
		log.Warn("publishing ui message: %v", err)
	}
}

func (p Publisher) Apply(changes []resource.Change) {
	p.send(MenuChanged(changes))
}

func (p Publisher) SetReady(ready bool) {
	p.send(TrayReady(ready))
}
