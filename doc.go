/*
Package espalier is an in-process dispatcher for hierarchical plans: units of
work that can recursively invoke nested sub-plans and fan out batches of
independent tool invocations onto a bounded worker pool.

It implements a single-process, in-memory concurrent dispatch core. Plans are
YAML documents describing an ordered list of tool steps; a plan template can
itself be exposed as a tool, so invoking it from a step of another plan
triggers a nested execution with correct identity and depth propagation.
Espalier does not schedule across machines, does not persist task state
durably, and does not provide exactly-once delivery.

# Architecture

The core is ports-and-adapters:

  - pkg/domain: plan identity, results, call contexts, lifecycle statuses.
  - pkg/ports: the TemplateStore and ToolInvoker contracts.
  - pkg/identity: collision-free sub-plan id generation per execution tree.
  - pkg/template: placeholder substitution over plan definitions.
  - pkg/coordinator: asynchronous execution of one plan (submit, await).
  - pkg/bridge: a plan template wrapped as an invocable tool.
  - pkg/scheduler: batch registration, parallel fan-out, cancellation.
  - pkg/adapters: template store implementations (memory, redis).

# Usage

The root package wires the pieces into a System:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/espalier"
		"github.com/aretw0/espalier/pkg/adapters/memory"
	)

	func main() {
		store := memory.NewStore()
		store.Put(context.Background(), "greet", "steps:\n  - tool: echo\n    args:\n      text: hello <<name>>\n")

		sys := espalier.New(espalier.WithStore(store))
		defer sys.Close()

		sys.RegisterTool("echo", "repeats its text argument", echoTool{})

		res, err := sys.Run(context.Background(), "greet", map[string]any{"name": "world"})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.FinalResult)
	}

Templates registered via RegisterPlanTool become invocable from other plans'
steps, which is how execution trees grow beyond depth zero.
*/
package espalier
