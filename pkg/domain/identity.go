package domain

import "github.com/google/uuid"

// Identity locates a plan inside an execution tree.
// RootPlanID is shared by every plan in the tree; PlanID is unique within it.
type Identity struct {
	RootPlanID   string `json:"root_plan_id" yaml:"root_plan_id" mapstructure:"root_plan_id"`
	PlanID       string `json:"plan_id" yaml:"plan_id" mapstructure:"plan_id"`
	ParentPlanID string `json:"parent_plan_id,omitempty" yaml:"parent_plan_id,omitempty" mapstructure:"parent_plan_id"`
	Depth        int    `json:"depth" yaml:"depth" mapstructure:"depth"`
}

// NewRootIdentity mints the identity for a fresh execution tree.
// The root plan doubles as its own plan id and sits at depth 0.
func NewRootIdentity() Identity {
	id := "plan-" + uuid.NewString()
	return Identity{
		RootPlanID: id,
		PlanID:     id,
		Depth:      0,
	}
}

// Child derives the identity of a nested plan. The caller supplies the
// planID obtained from the identity dispatcher; depth increases by one hop.
func (i Identity) Child(planID string) Identity {
	return Identity{
		RootPlanID:   i.RootPlanID,
		PlanID:       planID,
		ParentPlanID: i.PlanID,
		Depth:        i.Depth + 1,
	}
}
