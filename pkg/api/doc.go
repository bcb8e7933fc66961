// Package api defines the shared entity shapes of the flowline workflow
// engine core: workflow definitions and their versioned step graphs, event
// subscriptions, runs with per-step execution state, and the service
// interfaces implemented by the internal registry and tracker.
//
// The types here are consumed read-only by the structural validator and the
// filter matcher, and read/written by the subscription registry and the
// execution state tracker through the persistence collaborator.
package api
