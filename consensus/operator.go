package consensus

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	stakeWeightFraction      = 0.7
	reputationWeightFraction = 0.3
)

// Operator is one registered attestor: its stake and reputation determine
// the weight its responses carry toward quorum.
type Operator struct {
	Address      common.Address
	Stake        uint64
	Reputation   float64 // in [0, 1]
	Weight       float64 // derived, recomputed on every mutation
	LastSeen     time.Time
	SuccessCount uint64
	FailureCount uint64
	IsHealthy    bool
}

func weight(stake uint64, reputation float64, referenceStake uint64) float64 {
	normalizedStake := float64(stake) / float64(referenceStake)
	if normalizedStake > 1 {
		normalizedStake = 1
	}
	if normalizedStake < 0 {
		normalizedStake = 0
	}
	if reputation > 1 {
		reputation = 1
	}
	if reputation < 0 {
		reputation = 0
	}
	return stakeWeightFraction*normalizedStake + reputationWeightFraction*reputation
}

// OperatorTable is the registry of known operators, keyed by address. All
// mutation goes through methods that hold the table lock and keep Weight in
// sync with Stake/Reputation.
type OperatorTable struct {
	mu             sync.RWMutex
	referenceStake uint64
	operators      map[common.Address]*Operator
	bus            *EventBus
}

// NewOperatorTable creates a table. referenceStake is the stake level that
// normalizes to 1.0; it must be > 0.
func NewOperatorTable(referenceStake uint64, bus *EventBus) *OperatorTable {
	return &OperatorTable{
		referenceStake: referenceStake,
		operators:      make(map[common.Address]*Operator),
		bus:            bus,
	}
}

// Add registers an operator, or replaces its whole record if already
// present. The new record starts healthy, with a fresh LastSeen and zeroed
// success/failure counters.
func (t *OperatorTable) Add(addr common.Address, stake uint64, reputation float64) {
	t.mu.Lock()
	now := time.Now()
	o := &Operator{
		Address:    addr,
		Stake:      stake,
		Reputation: reputation,
		LastSeen:   now,
		IsHealthy:  true,
	}
	o.Weight = weight(stake, reputation, t.referenceStake)
	t.operators[addr] = o
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.emit(Event{Type: OperatorAdded, At: now, Operator: addr})
	}
}

// Remove deregisters an operator. Reports whether it was present.
func (t *OperatorTable) Remove(addr common.Address) bool {
	t.mu.Lock()
	_, ok := t.operators[addr]
	delete(t.operators, addr)
	t.mu.Unlock()

	if ok && t.bus != nil {
		t.bus.emit(Event{Type: OperatorRemoved, At: time.Now(), Operator: addr})
	}
	return ok
}

// Get returns a copy of the operator record, and whether it exists.
func (t *OperatorTable) Get(addr common.Address) (Operator, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.operators[addr]
	if !ok {
		return Operator{}, false
	}
	return *o, true
}

// TotalWeight sums the weight of every registered operator, healthy or not:
// an unhealthy operator still counts toward the quorum denominator until it
// is explicitly removed.
func (t *OperatorTable) TotalWeight() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var sum float64
	for _, o := range t.operators {
		sum += o.Weight
	}
	return sum
}

// touchSeen records that addr produced a response, updating only LastSeen.
// Whether the response counts as a success or failure is not known until
// the task it belongs to resolves, so the counters are not touched here.
func (t *OperatorTable) touchSeen(addr common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.operators[addr]
	if !ok {
		return
	}
	o.LastSeen = time.Now()
}

// recordOutcome bumps addr's successCount or failureCount once its task has
// resolved: success is true only for responses that ended up in the winning
// group of a completed task, false for every other responder (including all
// responders of a task that failed to reach quorum).
func (t *OperatorTable) recordOutcome(addr common.Address, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.operators[addr]
	if !ok {
		return
	}
	if success {
		o.SuccessCount++
	} else {
		o.FailureCount++
	}
}

type healthChange struct {
	addr   common.Address
	before bool
	after  bool
}

// Sweep marks every operator whose LastSeen is older than staleness as
// unhealthy, and every other operator as healthy, returning the set of
// operators whose health actually flipped.
func (t *OperatorTable) Sweep(staleness time.Duration) []healthChange {
	t.mu.Lock()
	now := time.Now()
	var changes []healthChange
	for addr, o := range t.operators {
		healthy := now.Sub(o.LastSeen) <= staleness
		if healthy != o.IsHealthy {
			changes = append(changes, healthChange{addr: addr, before: o.IsHealthy, after: healthy})
			o.IsHealthy = healthy
		}
	}
	t.mu.Unlock()

	if t.bus != nil {
		for _, c := range changes {
			t.bus.emit(Event{
				Type:          HealthChanged,
				At:            now,
				Operator:      c.addr,
				HealthyBefore: c.before,
				HealthyAfter:  c.after,
			})
		}
	}
	return changes
}

// Count returns the number of registered operators.
func (t *OperatorTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.operators)
}
