/*
Package domain contains the core domain models for the Espalier dispatcher.

It defines the fundamental entities of hierarchical plan execution: plan
identity, plan definitions and results, tool invocation contracts, and the
lifecycle statuses used by the coordinator and the batch scheduler. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Identity: The position of a plan inside an execution tree (root id, plan id, parent, depth).
  - Result: The immutable outcome of one plan execution attempt.
  - CallContext: The typed correlation context attached to a tool invocation.
  - PlanStatus / FunctionStatus: Lifecycle state machines for plans and batched functions.
*/
package domain
