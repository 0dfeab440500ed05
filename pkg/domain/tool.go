package domain

// CallContext carries the correlation data attached to a tool invocation.
// It replaces the loose key/value context the surrounding agent layer used
// to smuggle these values: callers construct it explicitly, so there is no
// runtime type inspection at the invocation boundary.
type CallContext struct {
	// CallID correlates the invocation to the originating tool call.
	// It is required; invokers reject a missing CallID rather than invent one.
	CallID string `json:"call_id" yaml:"call_id" mapstructure:"call_id"`

	// RootPlanID anchors the invocation to its execution tree. A bridge uses
	// it to allocate the nested plan's identity; when empty, the bridge
	// anchors a fresh tree.
	RootPlanID string `json:"root_plan_id,omitempty" yaml:"root_plan_id,omitempty" mapstructure:"root_plan_id"`

	// PlanID identifies the plan whose step is performing the invocation.
	// A bridge uses it as the parent plan id for the nested execution.
	PlanID string `json:"plan_id,omitempty" yaml:"plan_id,omitempty" mapstructure:"plan_id"`

	// Depth is the invoking plan's depth in the execution tree.
	Depth int `json:"depth" yaml:"depth" mapstructure:"depth"`
}

// Tool describes an invocable tool for listing and schema purposes.
type Tool struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}
