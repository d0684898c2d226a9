package inventory

import "sync"

// Signal is a payload-free notification with explicit subscription handles.
// The zero value is ready to use. Handlers run synchronously on the emitting
// goroutine in subscription order.
type Signal struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []signalHandler
}

type signalHandler struct {
	id uint64
	fn func()
}

// Subscription is the handle returned by Signal.Subscribe.
type Subscription struct {
	signal *Signal
	id     uint64
	once   sync.Once
}

// Subscribe registers fn and returns the handle that removes it.
func (s *Signal) Subscribe(fn func()) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.handlers = append(s.handlers, signalHandler{id: s.nextID, fn: fn})
	return &Subscription{signal: s, id: s.nextID}
}

// Emit calls every current handler. The handler list is copied first so
// handlers may subscribe, cancel, or trigger further emits.
func (s *Signal) Emit() {
	s.mu.Lock()
	snapshot := make([]signalHandler, len(s.handlers))
	copy(snapshot, s.handlers)
	s.mu.Unlock()

	for _, h := range snapshot {
		if s.active(h.id) {
			h.fn()
		}
	}
}

// Len returns the number of live subscriptions.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// active skips handlers cancelled by an earlier handler in the same emit.
func (s *Signal) active(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handlers {
		if h.id == id {
			return true
		}
	}
	return false
}

func (s *Signal) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.handlers {
		if h.id == id {
			s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
			return
		}
	}
}

// Cancel removes the handler. Safe to call more than once and on nil.
func (sub *Subscription) Cancel() {
	if sub == nil || sub.signal == nil {
		return
	}
	sub.once.Do(func() { sub.signal.remove(sub.id) })
}
