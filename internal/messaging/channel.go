// Package messaging is an in-process rendition of the cross-context message
// channel between a host page and an embedded widget.
package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/and161185/dora-molecule/model"
)

// AnyOrigin addresses a message to the peer regardless of its origin.
const AnyOrigin = "*"

// ErrClosed is returned when posting through a closed endpoint or reading
// from a released subscription.
var ErrClosed = errors.New("endpoint closed")

// Endpoint is one side of a channel. Messages posted on an endpoint are
// delivered to the subscribers of its peer.
type Endpoint struct {
	origin string
	peer   *Endpoint

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewChannel creates a connected pair of endpoints for a host page and a
// widget served from the given origins.
func NewChannel(hostOrigin, widgetOrigin string) (host, widget *Endpoint) {
	host = &Endpoint{origin: hostOrigin, subs: make(map[*Subscription]struct{})}
	widget = &Endpoint{origin: widgetOrigin, subs: make(map[*Subscription]struct{})}
	host.peer, widget.peer = widget, host
	return host, widget
}

// Origin returns the origin of the context owning e.
func (e *Endpoint) Origin() string {
	return e.origin
}

// Post sends msg to the peer. As with window.postMessage, a message whose
// targetOrigin does not match the peer's origin is silently discarded.
func (e *Endpoint) Post(msg model.Message, targetOrigin string) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if targetOrigin != AnyOrigin && targetOrigin != e.peer.origin {
		return nil
	}
	msg.Origin = e.origin
	e.peer.deliver(msg)
	return nil
}

// Subscribe registers a new subscription for messages arriving at e.
func (e *Endpoint) Subscribe() *Subscription {
	s := &Subscription{
		ep:     e,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		s.release()
		return s
	}
	e.subs[s] = struct{}{}
	return s
}

// Close releases all subscriptions and rejects further posts.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	for s := range e.subs {
		delete(e.subs, s)
		s.release()
	}
	return nil
}

func (e *Endpoint) deliver(msg model.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for s := range e.subs {
		s.push(msg)
	}
}

// Subscription is an unbounded FIFO of the messages delivered to an
// endpoint. Messages are never dropped while the subscription is open.
type Subscription struct {
	ep *Endpoint

	mu     sync.Mutex
	queue  []model.Message
	closed bool
	notify chan struct{}
	done   chan struct{}
}

func (s *Subscription) push(msg model.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next returns the oldest pending message, waiting for one if the queue is
// empty. It returns ErrClosed once the subscription is released.
func (s *Subscription) Next(ctx context.Context) (model.Message, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return model.Message{}, ErrClosed
		}
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue[0] = model.Message{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return model.Message{}, ctx.Err()
		}
	}
}

// Pending returns the number of queued messages.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close releases the subscription. Pending messages are discarded.
func (s *Subscription) Close() error {
	s.ep.mu.Lock()
	defer s.ep.mu.Unlock()
	delete(s.ep.subs, s)
	s.release()
	return nil
}

// release must be called with the endpoint lock held.
func (s *Subscription) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}
