package engine

import "sync"

// EventType names what changed
type EventType string

const (
	EventPhaseEntered    EventType = "phase_entered"
	EventPhaseExited     EventType = "phase_exited"
	EventPlayerAdded     EventType = "player_added"
	EventActionCommitted EventType = "action_committed"
	EventMoveRecorded    EventType = "move_recorded"
	EventDiceRolled      EventType = "dice_rolled"
	EventTurnEnded       EventType = "turn_ended"
	EventGameOver        EventType = "game_over"
	EventStateChanged    EventType = "state_changed"
	EventStateLoaded     EventType = "state_loaded"
)

// Event is emitted synchronously after a committed mutation
type Event struct {
	Type     EventType    `json:"type"`
	Phase    Phase        `json:"phase"`
	PlayerID int          `json:"player_id,omitempty"`
	Action   ActionType   `json:"action,omitempty"`
	Position *Position    `json:"position,omitempty"`
	Roll     *RollOutcome `json:"roll,omitempty"`
	Winner   int          `json:"winner,omitempty"`
}

// Listener receives events on the goroutine that caused them
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Notifier fans events out to subscribers in subscription order
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

// NewNotifier creates a notifier with no subscribers
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers fn and returns a function that removes it
func (n *Notifier) Subscribe(fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(id) })
	}
}

func (n *Notifier) unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers e to every subscriber. Listeners may unsubscribe while
// handling an event.
func (n *Notifier) Emit(e Event) {
	n.mu.Lock()
	subs := make([]subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len returns the number of subscribers
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
