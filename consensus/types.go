// Package consensus implements the multi-operator response-quorum engine:
// task lifecycle, per-operator response ingestion with signature
// verification, stake-weighted quorum detection, timeout-driven
// finalization, and operator health tracking. State lives in a per-task
// mutex-guarded map updated from concurrent producers, with outcomes
// delivered through an event sink rather than direct callbacks.
package consensus

import (
	"encoding/hex"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// TaskID uniquely identifies a task. It is stored as the raw 16 bytes of a
// uuid and folded into the uint256 used by the response preimage below.
type TaskID [16]byte

// NewTaskID generates a fresh, effectively-unique task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.New())
}

// Big returns the taskId as the uint256 used in the ABI-packed response
// preimage.
func (id TaskID) Big() *big.Int {
	return new(big.Int).SetBytes(id[:])
}

func (id TaskID) String() string {
	return hex.EncodeToString(id[:])
}

// TaskType is the closed set of task kinds dispatched to the engine.
type TaskType string

const (
	ComputePcs TaskType = "ComputePcs"
	ComputePrs TaskType = "ComputePrs"
	Batch      TaskType = "Batch"
	Verify     TaskType = "Verify"
)

// TaskState is the closed lifecycle. Pending is the only non-terminal
// state; Completed and Failed are both final.
type TaskState string

const (
	Pending   TaskState = "Pending"
	Completed TaskState = "Completed"
	Failed    TaskState = "Failed"
)

// FailReason is the closed set of reasons a Task can fail with.
type FailReason string

const (
	NoResponses        FailReason = "NoResponses"
	InsufficientQuorum FailReason = "InsufficientQuorum"
	CancelledReason    FailReason = "Cancelled"
)

// Task is the engine's task record. ResolvedResponse and QuorumWeight are
// only meaningful once State is Completed.
type Task struct {
	ID               TaskID
	Type             TaskType
	InputBytes       []byte
	CreatedAt        time.Time
	Deadline         time.Time
	State            TaskState
	FailReason       FailReason
	ResolvedResponse []byte
	QuorumWeight     float64
}

// TaskResponse is one operator's signed answer to a task. The weight is
// captured at reception time so a later stake/reputation change cannot
// retroactively invalidate it.
type TaskResponse struct {
	TaskID        TaskID
	Operator      common.Address
	ResponseBytes []byte
	Signature     [65]byte
	ReceivedAt    time.Time
	WeightAtTime  float64
}

// ResponsePreimage builds the tight-packed
// uint256(taskId) || responseBytes preimage that gets keccak256-hashed and
// signed by the signing package.
func ResponsePreimage(taskID TaskID, responseBytes []byte) []byte {
	out := make([]byte, 0, 32+len(responseBytes))
	out = append(out, common.LeftPadBytes(taskID.Big().Bytes(), 32)...)
	out = append(out, responseBytes...)
	return out
}
