// Package flowline is the core of an automation workflow engine: it lets a
// caller define multi-step automations (triggers, actions, branching
// conditions), validates their structural integrity before they may run or
// be published, matches incoming domain events against active trigger
// subscriptions, and tracks per-step execution state during a run.
//
// # Core Concepts
//
// The flowline programming model is intentionally small:
//
//  1. Step graph — a workflow version owns a list of typed steps
//     (TRIGGER, ACTION, CONDITION) whose dependency edges form a DAG.
//  2. Validator — pure checks over a step list: a lenient pass for saving
//     drafts and a stricter pass gating publication.
//  3. Subscriptions — (workflow, event type, filter) bindings deciding
//     whether an incoming event should trigger a workflow.
//  4. Registry — binds active subscriptions to an event bus and invokes an
//     injected executor when a delivered event passes the filter.
//  5. Tracker — records per-step execution state as the executor advances
//     through a run.
//
// # Validation
//
// Validation problems are data, not errors: both passes return every
// finding at once so a builder UI can render all of them.
//
//	steps := flowline.NewSteps().
//	    Trigger("t1", "on-publish", nil).
//	    Action("a1", "notify", nil, "t1").
//	    Steps()
//
//	res := flowline.ValidateWorkflow(steps)   // drafts: warnings allowed
//	pub := flowline.ValidateForPublish(steps) // publishing: hard gates
//
// # Event dispatch
//
// The registry consumes an external event bus that scopes delivery by event
// type and workspace only; the subscription's filter expression is always
// re-applied before the executor runs. Executing the actual business
// actions of a step is the executor's job, not flowline's.
//
// # Backends
//
// Stores can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Redis
//   - MongoDB
//
// LocalRunner bundles the in-memory store, an in-process bus, and both
// services into a single helper for development and unit testing.
package flowline
