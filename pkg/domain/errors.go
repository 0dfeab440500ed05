package domain

import "errors"

// ErrTemplateNotFound is returned when a template id cannot be found in the store.
var ErrTemplateNotFound = errors.New("plan template not found")

// ErrMissingCallID is returned when a tool is invoked without a call
// correlation token. This is a caller contract violation, not a runtime failure.
var ErrMissingCallID = errors.New("call id is required")

// ErrInterrupted is returned when an execution is cancelled cooperatively
// before reaching a terminal result.
var ErrInterrupted = errors.New("execution was interrupted")

// ErrUnknownTool is returned when a plan step references a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ErrPlanInFlight is returned when a plan id is submitted while an
// execution with the same id is still running.
var ErrPlanInFlight = errors.New("plan id already in flight")

// ErrPoolClosed is returned when work is submitted to a worker pool after shutdown.
var ErrPoolClosed = errors.New("worker pool is closed")
