package events

import (
	"sync"
	"time"
)

const (
	KindWalletChanged      = "wallet.changed"
	KindStatsChanged       = "stats.changed"
	KindTransactionChanged = "transaction.changed"
	KindPayoutChanged      = "payout.changed"
	KindNotification       = "notification"
)

const DefaultSubscriberBuffer = 32

// Event tells dashboard consumers that committed ledger state changed.
type Event struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	EntityID   string    `json:"entity_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(event Event)
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu         sync.RWMutex
	subs       map[uint64]*Subscription
	nextID     uint64
	bufferSize int
}

type Subscription struct {
	bus    *Bus
	id     uint64
	userID string
	ch     chan Event
	once   sync.Once
}

func NewBus() *Bus {
	return &Bus{
		subs:       make(map[uint64]*Subscription),
		bufferSize: DefaultSubscriberBuffer,
	}
}

func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.userID != "" && sub.userID != event.UserID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Subscribe registers a consumer for one user, or for every user when
// userID is empty.
func (b *Bus) Subscribe(userID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		bus:    b,
		id:     b.nextID,
		userID: userID,
		ch:     make(chan Event, b.bufferSize),
	}
	b.nextID++
	b.subs[sub.id] = sub
	return sub
}

func (s *Subscription) C() <-chan Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

var _ Publisher = (*Bus)(nil)
