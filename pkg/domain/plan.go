package domain

// Result is the outcome of one plan execution attempt.
// It is produced exactly once and never mutated after completion.
type Result struct {
	Success      bool   `json:"success" yaml:"success" mapstructure:"success"`
	FinalResult  string `json:"final_result,omitempty" yaml:"final_result,omitempty" mapstructure:"final_result"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty" mapstructure:"error_message"`
}

// Failure builds a failed Result carrying the given message.
func Failure(message string) Result {
	return Result{Success: false, ErrorMessage: message}
}

// PlanStatus is the lifecycle state of a single plan execution.
// Only the coordinator advances it.
type PlanStatus string

const (
	PlanPreparing PlanStatus = "preparing"
	PlanRunning   PlanStatus = "running"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
	PlanCancelled PlanStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s PlanStatus) Terminal() bool {
	switch s {
	case PlanCompleted, PlanFailed, PlanCancelled:
		return true
	default:
		return false
	}
}

// FunctionStatus is the lifecycle state of one batched tool invocation
// tracked by the scheduler.
type FunctionStatus string

const (
	FunctionRegistered FunctionStatus = "registered"
	FunctionRunning    FunctionStatus = "running"
	FunctionCompleted  FunctionStatus = "completed"
	FunctionFailed     FunctionStatus = "failed"
	FunctionCancelled  FunctionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s FunctionStatus) Terminal() bool {
	switch s {
	case FunctionCompleted, FunctionFailed, FunctionCancelled:
		return true
	default:
		return false
	}
}
