package consensus

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType is the closed set of notifications the engine emits.
type EventType string

const (
	TaskCreated      EventType = "TaskCreated"
	ResponseAccepted EventType = "ResponseAccepted"
	QuorumReached    EventType = "QuorumReached"
	TaskCompleted    EventType = "TaskCompleted"
	TaskFailed       EventType = "TaskFailed"
	OperatorAdded    EventType = "OperatorAdded"
	OperatorRemoved  EventType = "OperatorRemoved"
	HealthChanged    EventType = "HealthChanged"
	MetricsTick      EventType = "MetricsTick"
)

// Event is a single notification out of the engine. Only the fields
// relevant to Type are populated; the rest are zero values.
type Event struct {
	Type          EventType
	At            time.Time
	TaskID        TaskID
	Operator      common.Address
	FailReason    FailReason
	WinningHash   [32]byte
	GroupWeight   float64
	TotalWeight   float64
	Contributors  []common.Address
	HealthyBefore bool
	HealthyAfter  bool
	ActiveTasks   int
	Operators     int
	ResponseCount int
}

// EventSink receives engine events. Implementations must not block for
// long; the engine calls every subscriber synchronously and sequentially.
type EventSink func(Event)

// EventBus is a simple subscriber list. Subscribe is safe to call
// concurrently with emit; the bus always snapshots its subscriber list
// before invoking any of them, so a sink is never called while the bus's
// own lock is held.
type EventBus struct {
	mu   sync.Mutex
	subs []EventSink
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe(sink EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sink)
}

func (b *EventBus) emit(e Event) {
	b.mu.Lock()
	subs := make([]EventSink, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sink := range subs {
		sink(e)
	}
}
