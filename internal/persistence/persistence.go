package persistence

// Persistence bundles the store interfaces so the registry and tracker can
// depend on a single abstraction.
type Persistence struct {
	Workflows     WorkflowStore
	Subscriptions SubscriptionStore
	Runs          RunStore
	Log           RunLogStore
}
