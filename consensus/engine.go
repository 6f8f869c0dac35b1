package consensus

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/hetu-project/attestor-subnet/errs"
	"github.com/hetu-project/attestor-subnet/signing"
)

// Config tunes the engine's timing and quorum behavior.
type Config struct {
	// QuorumThreshold is the fraction of total registered weight a single
	// response group must reach to win. Defaults to 2/3.
	QuorumThreshold float64
	// ResponseTimeout is how long a task stays Pending before it is
	// finalized on whatever quorum (if any) it has accumulated.
	ResponseTimeout time.Duration
	// HealthStaleness is how long an operator can go without a response
	// before a health sweep marks it unhealthy.
	HealthStaleness time.Duration
	// HealthSweepInterval is how often the background health sweep runs.
	HealthSweepInterval time.Duration
	// ReferenceStake normalizes operator stake to [0, 1] for weighting.
	ReferenceStake uint64
}

// DefaultConfig returns the engine's out-of-the-box tuning.
func DefaultConfig() Config {
	return Config{
		QuorumThreshold:     2.0 / 3.0,
		ResponseTimeout:     30 * time.Second,
		HealthStaleness:     5 * time.Minute,
		HealthSweepInterval: 30 * time.Second,
		ReferenceStake:      100,
	}
}

type group struct {
	responseBytes []byte
	weight        float64
	contributors  []common.Address
	lastArrival   time.Time
}

type taskState struct {
	mu         sync.Mutex
	task       Task
	responders map[common.Address]struct{}
	responses  []TaskResponse
	groups     map[[32]byte]*group
	timer      *time.Timer
	gcTimer    *time.Timer
}

// Engine runs the response-quorum state machine: tasks are created with a
// deadline, operators submit signed responses, and the first response group
// to cross the quorum threshold of total operator weight finalizes the
// task. A task that never reaches quorum before its deadline fails.
type Engine struct {
	cfg       Config
	bus       *EventBus
	operators *OperatorTable
	log       *zap.SugaredLogger

	mu    sync.RWMutex
	tasks map[TaskID]*taskState

	stopHealth chan struct{}
	wg         sync.WaitGroup
}

// NewEngine builds an Engine sharing the given operator table and event
// bus. Call Run to start the background health sweep, and Shutdown to stop
// it and cancel outstanding task timers. Logging is a no-op until
// SetLogger is called.
func NewEngine(cfg Config, operators *OperatorTable, bus *EventBus) *Engine {
	return &Engine{
		cfg:        cfg,
		bus:        bus,
		operators:  operators,
		log:        zap.NewNop().Sugar(),
		tasks:      make(map[TaskID]*taskState),
		stopHealth: make(chan struct{}),
	}
}

// SetLogger replaces the engine's structured logger. Pass nil to go back to
// a no-op logger.
func (e *Engine) SetLogger(logger *zap.Logger) {
	if logger == nil {
		e.log = zap.NewNop().Sugar()
		return
	}
	e.log = logger.Sugar()
}

// Run starts the periodic operator health sweep. Each tick also emits a
// MetricsTick event carrying a snapshot of active task and operator counts,
// so subscribers get a heartbeat even on a quiet engine. It returns
// immediately; the sweep runs in a background goroutine until Shutdown is
// called.
func (e *Engine) Run() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.HealthSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				changes := e.operators.Sweep(e.cfg.HealthStaleness)
				if len(changes) > 0 {
					e.log.Infow("operator health sweep flipped state", "count", len(changes))
				}
				e.bus.emit(Event{
					Type:        MetricsTick,
					At:          time.Now(),
					ActiveTasks: e.ActiveTaskCount(),
					Operators:   e.operators.Count(),
				})
			case <-e.stopHealth:
				return
			}
		}
	}()
}

// Shutdown stops the health sweep and cancels every outstanding task timer.
// It does not touch already-completed or already-failed tasks.
func (e *Engine) Shutdown() {
	close(e.stopHealth)
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ts := range e.tasks {
		ts.mu.Lock()
		if ts.timer != nil {
			ts.timer.Stop()
		}
		if ts.gcTimer != nil {
			ts.gcTimer.Stop()
		}
		ts.mu.Unlock()
	}
}

// CreateTask registers a new Pending task with a deadline of now +
// ResponseTimeout, and schedules its automatic finalization.
func (e *Engine) CreateTask(taskType TaskType, inputBytes []byte) TaskID {
	now := time.Now()
	id := NewTaskID()
	task := Task{
		ID:         id,
		Type:       taskType,
		InputBytes: inputBytes,
		CreatedAt:  now,
		Deadline:   now.Add(e.cfg.ResponseTimeout),
		State:      Pending,
	}
	ts := &taskState{
		task:       task,
		responders: make(map[common.Address]struct{}),
		responses:  make([]TaskResponse, 0),
		groups:     make(map[[32]byte]*group),
	}
	ts.timer = time.AfterFunc(e.cfg.ResponseTimeout, func() {
		e.finalizeOnDeadline(id)
	})
	ts.gcTimer = time.AfterFunc(2*e.cfg.ResponseTimeout, func() {
		e.mu.Lock()
		delete(e.tasks, id)
		e.mu.Unlock()
	})

	e.mu.Lock()
	e.tasks[id] = ts
	e.mu.Unlock()

	e.log.Infow("task created", "taskId", id.String(), "type", taskType, "deadline", task.Deadline)
	e.bus.emit(Event{Type: TaskCreated, At: now, TaskID: id})
	return id
}

func (e *Engine) getTaskState(id TaskID) (*taskState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ts, ok := e.tasks[id]
	return ts, ok
}

func groupKey(responseBytes []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(responseBytes)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Ingest accepts one operator's signed response to a task. It verifies the
// signature over the tight-packed (taskId || responseBytes) preimage,
// rejects responses from unregistered operators, rejects a second response
// from the same operator for the same task, and rejects responses that
// arrive once the task is no longer Pending (including, defensively, ones
// that arrive after the deadline but before the finalize timer has fired).
// On acceptance it evaluates quorum and may finalize the task.
func (e *Engine) Ingest(taskID TaskID, operator common.Address, responseBytes []byte, signature [65]byte) error {
	op, ok := e.operators.Get(operator)
	if !ok {
		e.log.Warnw("ingest rejected: unknown operator", "operator", operator.Hex())
		return errs.New(errs.UnknownOperator, "operator")
	}

	preimage := ResponsePreimage(taskID, responseBytes)
	if err := signing.Verify(preimage, signature, operator); err != nil {
		e.log.Warnw("ingest rejected: bad signature", "operator", operator.Hex(), "taskId", taskID.String())
		return err
	}

	ts, ok := e.getTaskState(taskID)
	if !ok {
		return errs.New(errs.TaskNotPending, "taskId")
	}

	var toEmit []Event
	ts.mu.Lock()
	switch {
	case ts.task.State != Pending:
		ts.mu.Unlock()
		return errs.New(errs.TaskNotPending, "taskId")
	case !time.Now().Before(ts.task.Deadline):
		ts.mu.Unlock()
		return errs.New(errs.TaskExpired, "taskId")
	}
	if _, dup := ts.responders[operator]; dup {
		ts.mu.Unlock()
		e.log.Warnw("ingest rejected: duplicate response", "operator", operator.Hex(), "taskId", taskID.String())
		return errs.New(errs.DuplicateResponse, "operator")
	}

	now := time.Now()
	ts.responders[operator] = struct{}{}
	ts.responses = append(ts.responses, TaskResponse{
		TaskID:        taskID,
		Operator:      operator,
		ResponseBytes: responseBytes,
		Signature:     signature,
		ReceivedAt:    now,
		WeightAtTime:  op.Weight,
	})
	key := groupKey(responseBytes)
	g, ok := ts.groups[key]
	if !ok {
		g = &group{responseBytes: responseBytes}
		ts.groups[key] = g
	}
	g.weight += op.Weight
	g.contributors = append(g.contributors, operator)
	g.lastArrival = now

	toEmit = append(toEmit, Event{Type: ResponseAccepted, At: now, TaskID: taskID, Operator: operator})

	winner, winKey := e.evaluateQuorumLocked(ts)
	if winner != nil {
		toEmit = append(toEmit, e.finalizeLocked(ts, winner, winKey, now)...)
	}
	ts.mu.Unlock()

	e.operators.touchSeen(operator)
	for _, ev := range toEmit {
		e.bus.emit(ev)
	}
	return nil
}

// evaluateQuorumLocked must be called with ts.mu held. It returns the
// winning group (if any) by total-weight share against the quorum
// threshold. Ties are broken deterministically: highest group weight wins;
// if weights tie, the group whose quorum-crossing response arrived first
// wins.
func (e *Engine) evaluateQuorumLocked(ts *taskState) (*group, [32]byte) {
	total := e.operators.TotalWeight()
	if total <= 0 {
		return nil, [32]byte{}
	}

	type candidate struct {
		key *[32]byte
		g   *group
	}
	var candidates []candidate
	for k, g := range ts.groups {
		k := k
		if g.weight/total >= e.cfg.QuorumThreshold {
			candidates = append(candidates, candidate{key: &k, g: g})
		}
	}
	if len(candidates) == 0 {
		return nil, [32]byte{}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].g.weight != candidates[j].g.weight {
			return candidates[i].g.weight > candidates[j].g.weight
		}
		return candidates[i].g.lastArrival.Before(candidates[j].g.lastArrival)
	})
	return candidates[0].g, *candidates[0].key
}

// finalizeLocked must be called with ts.mu held. Apart from Cancel, it is
// the only path that transitions a task out of Pending. It returns the
// events to emit once the lock is released.
func (e *Engine) finalizeLocked(ts *taskState, winner *group, winKey [32]byte, now time.Time) []Event {
	if ts.timer != nil {
		ts.timer.Stop()
	}
	total := e.operators.TotalWeight()
	responseCount := len(ts.responses)

	if winner != nil {
		ts.task.State = Completed
		ts.task.ResolvedResponse = winner.responseBytes
		ts.task.QuorumWeight = winner.weight

		winners := make(map[common.Address]struct{}, len(winner.contributors))
		for _, c := range winner.contributors {
			winners[c] = struct{}{}
		}
		for addr := range ts.responders {
			_, won := winners[addr]
			e.operators.recordOutcome(addr, won)
		}

		e.log.Infow("task completed", "taskId", ts.task.ID.String(), "groupWeight", winner.weight, "totalWeight", total, "responseCount", responseCount)
		return []Event{
			{Type: QuorumReached, At: now, TaskID: ts.task.ID, WinningHash: winKey, GroupWeight: winner.weight, TotalWeight: total, Contributors: winner.contributors, ResponseCount: responseCount},
			{Type: TaskCompleted, At: now, TaskID: ts.task.ID, GroupWeight: winner.weight, TotalWeight: total, ResponseCount: responseCount},
		}
	}

	ts.task.State = Failed
	reason := InsufficientQuorum
	if len(ts.groups) == 0 {
		reason = NoResponses
	}
	ts.task.FailReason = reason
	for addr := range ts.responders {
		e.operators.recordOutcome(addr, false)
	}
	e.log.Infow("task failed", "taskId", ts.task.ID.String(), "reason", reason, "responseCount", responseCount)
	return []Event{{Type: TaskFailed, At: now, TaskID: ts.task.ID, FailReason: reason, TotalWeight: total, ResponseCount: responseCount}}
}

// finalizeOnDeadline runs when a task's response-timeout timer fires. If
// the task already finalized via quorum during Ingest, this is a no-op.
func (e *Engine) finalizeOnDeadline(id TaskID) {
	ts, ok := e.getTaskState(id)
	if !ok {
		return
	}

	now := time.Now()
	ts.mu.Lock()
	var events []Event
	if ts.task.State == Pending {
		winner, winKey := e.evaluateQuorumLocked(ts)
		events = e.finalizeLocked(ts, winner, winKey, now)
	}
	ts.mu.Unlock()

	for _, ev := range events {
		e.bus.emit(ev)
	}
}

// Cancel transitions a Pending task to Failed with reason Cancelled.
// Cancelling an already-terminal or unknown task is a no-op and reports
// false.
func (e *Engine) Cancel(id TaskID) bool {
	ts, ok := e.getTaskState(id)
	if !ok {
		return false
	}

	now := time.Now()
	ts.mu.Lock()
	if ts.task.State != Pending {
		ts.mu.Unlock()
		return false
	}
	if ts.timer != nil {
		ts.timer.Stop()
	}
	ts.task.State = Failed
	ts.task.FailReason = CancelledReason
	responseCount := len(ts.responses)
	ts.mu.Unlock()

	e.bus.emit(Event{Type: TaskFailed, At: now, TaskID: id, FailReason: CancelledReason, ResponseCount: responseCount})
	return true
}

// Task returns a copy of the current task record.
func (e *Engine) Task(id TaskID) (Task, bool) {
	ts, ok := e.getTaskState(id)
	if !ok {
		return Task{}, false
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.task, true
}

// ActiveTaskCount reports the number of tasks still tracked by the engine
// (Pending, or terminal but not yet garbage-collected).
func (e *Engine) ActiveTaskCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tasks)
}
