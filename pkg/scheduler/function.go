package scheduler

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// functionState is the tracked lifecycle record for one batched invocation.
// Each record guards its own fields so status reads never contend on the
// scheduler-wide lock.
type functionState struct {
	id      int64
	entry   Entry
	invoker ports.ToolInvoker

	mu      sync.Mutex
	status  domain.FunctionStatus
	claimed bool
	result  string
	cancel  context.CancelFunc
	done    chan struct{}
}

func newFunctionState(id int64, entry Entry, invoker ports.ToolInvoker) *functionState {
	return &functionState{
		id:      id,
		entry:   entry,
		invoker: invoker,
		status:  domain.FunctionRegistered,
		done:    make(chan struct{}),
	}
}

// claim reserves the function for execution. Only an unclaimed REGISTERED
// function is eligible; claiming is what makes double-start a per-item error.
func (f *functionState) claim() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed || f.status != domain.FunctionRegistered {
		return false
	}
	f.claimed = true
	return true
}

// begin marks the function as running on a worker and stores its cancel func.
// Returns false if cleanup already forced a terminal status.
func (f *functionState) begin(cancel context.CancelFunc) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.Terminal() {
		return false
	}
	f.status = domain.FunctionRunning
	f.cancel = cancel
	return true
}

// finish records a terminal status and result exactly once.
func (f *functionState) finish(status domain.FunctionStatus, result string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.Terminal() {
		return false
	}
	f.status = status
	f.result = result
	close(f.done)
	return true
}

// interrupt cancels a running invocation (best effort) and forces CANCELLED.
// Returns the status the function held before the call.
func (f *functionState) interrupt() domain.FunctionStatus {
	f.mu.Lock()
	prev := f.status
	if !f.status.Terminal() {
		f.status = domain.FunctionCancelled
		f.result = domain.ErrInterrupted.Error()
		close(f.done)
	}
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return prev
}

// Snapshot is the externally visible view of a function's state.
type Snapshot struct {
	ID          int64                 `json:"id" yaml:"id" mapstructure:"id"`
	Name        string                `json:"name" yaml:"name" mapstructure:"name"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Tool        string                `json:"tool" yaml:"tool" mapstructure:"tool"`
	CallID      string                `json:"call_id,omitempty" yaml:"call_id,omitempty" mapstructure:"call_id"`
	Status      domain.FunctionStatus `json:"status" yaml:"status" mapstructure:"status"`
	Result      string                `json:"result,omitempty" yaml:"result,omitempty" mapstructure:"result"`
}

func (f *functionState) snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// pendingSnapshot returns the function's view only while it is still
// eligible to start: REGISTERED and unclaimed.
func (f *functionState) pendingSnapshot() (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed || f.status != domain.FunctionRegistered {
		return Snapshot{}, false
	}
	return f.snapshotLocked(), true
}

func (f *functionState) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          f.id,
		Name:        f.entry.Name,
		Description: f.entry.Description,
		Tool:        f.entry.Tool,
		CallID:      f.entry.CallID,
		Status:      f.status,
		Result:      f.result,
	}
}
