// Package conversation holds the chat session: the ordered message log, the
// loading flag and the pending input buffer. It owns the single in-flight
// request to the backend and notifies observers after every change.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bz888/cardadvisor/internal/logger"
	"github.com/bz888/cardadvisor/internal/reply"
	"github.com/google/uuid"
)

type Sender int

const (
	User Sender = iota
	Server
)

func (s Sender) String() string {
	switch s {
	case User:
		return "user"
	case Server:
		return "server"
	default:
		return "unknown"
	}
}

// Message is one entry of the log. It is never modified after it is appended.
type Message struct {
	ID     string
	Sender Sender
	Text   string
}

type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	if s == AwaitingResponse {
		return "awaiting response"
	}
	return "idle"
}

// Transport delivers a query to the backend and returns the raw reply.
type Transport interface {
	Send(ctx context.Context, query string) (string, error)
}

type EventKind int

const (
	EventMessage EventKind = iota
	EventLoading
	EventPending
	EventFailed
)

// Event describes one change. Message is set for EventMessage, Err for EventFailed.
type Event struct {
	Kind    EventKind
	Message Message
	Loading bool
	Err     error
}

type Observer func(Event)

var ErrBusy = errors.New("a message is already awaiting a response")

type observerEntry struct {
	id int
	fn Observer
}

type Session struct {
	transport Transport
	log       *logger.Logger

	mu        sync.Mutex
	messages  []Message
	state     State
	pending   string
	observers []observerEntry
	nextID    int
	inflight  sync.WaitGroup
}

func NewSession(transport Transport) *Session {
	return &Session{
		transport: transport,
		log:       logger.NewLogger("conversation"),
	}
}

// Subscribe registers fn for every subsequent event and returns a function that
// removes it. Observers run on the goroutine that caused the change, without
// the session lock held.
func (s *Session) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.observers {
			if entry.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Loading() bool {
	return s.State() == AwaitingResponse
}

func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SetPending replaces the pending input buffer.
func (s *Session) SetPending(text string) {
	s.mu.Lock()
	s.pending = text
	s.mu.Unlock()
	s.notify(Event{Kind: EventPending})
}

// SendMessage appends text as a user message and asks the backend for a reply
// in the background. Blank text is ignored. While a reply is outstanding the
// call is rejected with ErrBusy.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if s.state == AwaitingResponse {
		s.mu.Unlock()
		s.log.Warn("Send rejected, a request is in flight")
		return ErrBusy
	}
	msg := s.appendLocked(User, text)
	s.state = AwaitingResponse
	s.pending = ""
	s.inflight.Add(1)
	s.mu.Unlock()

	s.notify(Event{Kind: EventMessage, Message: msg})
	s.notify(Event{Kind: EventPending})
	s.notify(Event{Kind: EventLoading, Loading: true})

	go s.exchange(ctx, text)
	return nil
}

// Wait blocks until the outstanding request, if any, has resolved.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) exchange(ctx context.Context, text string) {
	defer s.inflight.Done()

	raw, err := s.transport.Send(ctx, text)
	if err != nil {
		s.log.Errorf("Chat request failed: %s", err)
		s.mu.Lock()
		s.state = Idle
		s.mu.Unlock()

		s.notify(Event{Kind: EventLoading, Loading: false})
		s.notify(Event{Kind: EventFailed, Err: err})
		return
	}

	parsed := reply.Parse(raw)
	if parsed.HasReasoning() {
		s.log.Infof("Dropped reasoning block of %d bytes", len(parsed.Reasoning))
	}

	s.mu.Lock()
	msg := s.appendLocked(Server, parsed.Conclusion)
	s.state = Idle
	s.mu.Unlock()

	s.notify(Event{Kind: EventMessage, Message: msg})
	s.notify(Event{Kind: EventLoading, Loading: false})
}

func (s *Session) appendLocked(sender Sender, text string) Message {
	msg := Message{ID: uuid.NewString(), Sender: sender, Text: text}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Session) notify(ev Event) {
	s.mu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, entry := range s.observers {
		observers = append(observers, entry.fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
