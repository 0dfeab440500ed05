package coordinator

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Handle is the asynchronous result of a plan submission.
// It resolves exactly once; after that the result is immutable.
type Handle struct {
	identity domain.Identity

	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	status domain.PlanStatus
	result domain.Result
	err    error
}

func newHandle(identity domain.Identity, cancel context.CancelFunc) *Handle {
	return &Handle{
		identity: identity,
		done:     make(chan struct{}),
		cancel:   cancel,
		status:   domain.PlanPreparing,
	}
}

// Identity returns the executing plan's position in its tree.
func (h *Handle) Identity() domain.Identity {
	return h.identity
}

// Done returns a channel that is closed once the execution resolves
// terminally, independent of any waiter's context.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Status returns the current lifecycle status.
func (h *Handle) Status() domain.PlanStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Wait blocks until the execution reaches a terminal state or ctx is done.
// Internal failures resolve to a failed Result with a nil error; the error
// return is reserved for interruption (errors.Is(err, domain.ErrInterrupted))
// and for the waiter's own context expiring.
func (h *Handle) Wait(ctx context.Context) (domain.Result, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, h.err
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	}
}

// Cancel requests cooperative interruption of the execution.
// A tool that never checks its context may keep running in the background;
// the handle still resolves as interrupted.
func (h *Handle) Cancel() {
	h.cancel()
}

// advance moves the status forward. Terminal states are final; a late
// transition attempt is ignored.
func (h *Handle) advance(status domain.PlanStatus) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Terminal() {
		return false
	}
	h.status = status
	return true
}

// complete resolves the handle exactly once.
func (h *Handle) complete(status domain.PlanStatus, result domain.Result, err error) {
	h.mu.Lock()
	if h.status.Terminal() {
		h.mu.Unlock()
		return
	}
	h.status = status
	h.result = result
	h.err = err
	h.mu.Unlock()
	close(h.done)
}
