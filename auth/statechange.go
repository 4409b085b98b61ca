package auth

import "sync"

// Event describes an auth-state transition. User is nil when the state is
// signed-out.
type Event struct {
	User *UserView
}

// Notifier publishes auth-state transitions to subscribers. Subscribing
// delivers the current state immediately, then every later transition.
type Notifier struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Event
	current Event
}

// NewNotifier returns a Notifier in the signed-out state.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscription is a single-use handle. Receive events from C and call
// Unsubscribe exactly once on teardown; further calls are inert.
type Subscription struct {
	C      <-chan Event
	cancel func()
	once   sync.Once
}

// Unsubscribe stops delivery and releases the subscriber. Safe to call more
// than once, but one call is all that is ever needed.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe registers a subscriber. The channel is buffered so publishers
// never block; a subscriber that falls behind loses the oldest event rather
// than stalling sign-in.
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Event, 8)
	n.subs[id] = ch
	ch <- n.current

	return &Subscription{
		C: ch,
		cancel: func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if c, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(c)
			}
		},
	}
}

// Publish records the new state and fans it out to all subscribers.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = ev
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event to make room for the newest.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
