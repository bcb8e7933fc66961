package flowline

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/juhoh/flowline/internal/persistence"
	"github.com/juhoh/flowline/internal/registry"
	"github.com/juhoh/flowline/internal/tracker"
	"github.com/juhoh/flowline/pkg/api"
	"github.com/juhoh/flowline/pkg/bus"
	"github.com/juhoh/flowline/pkg/validate"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Workflow            = api.Workflow
	WorkflowVersion     = api.WorkflowVersion
	WorkflowStep        = api.WorkflowStep
	WorkflowStatus      = api.WorkflowStatus
	StepType            = api.StepType
	BranchType          = api.BranchType
	Event               = api.Event
	EventType           = api.EventType
	EventSubscription   = api.EventSubscription
	SubscriptionMatch   = api.SubscriptionMatch
	Executor            = api.Executor
	WorkflowRun         = api.WorkflowRun
	RunStatus           = api.RunStatus
	StepStatus          = api.StepStatus
	StepExecutionState  = api.StepExecutionState
	StepExecutionUpdate = api.StepExecutionUpdate
	RunLogEntry         = api.RunLogEntry
	SubscriptionService = api.SubscriptionService
	RunTracker          = api.RunTracker

	CreateSubscriptionParams = api.CreateSubscriptionParams
	UpdateSubscriptionParams = api.UpdateSubscriptionParams
	CreateRunParams          = api.CreateRunParams

	Observer            = api.Observer
	NoopObserver        = api.NoopObserver
	LoggingObserver     = api.LoggingObserver
	BasicMetrics        = api.BasicMetrics
)

// Re-export the store abstractions so callers can mix backends without
// importing internal packages.

type (
	Persistence       = persistence.Persistence
	WorkflowStore     = persistence.WorkflowStore
	SubscriptionStore = persistence.SubscriptionStore
	RunStore          = persistence.RunStore
	RunLogStore       = persistence.RunLogStore
	RunFilter         = persistence.RunFilter
	InMemoryStore     = persistence.InMemoryStore
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	NewInMemoryStore     = persistence.NewInMemoryStore

	// ValidateWorkflow checks a draft step list; ValidateForPublish adds
	// the publish gates. See pkg/validate.
	ValidateWorkflow   = validate.Workflow
	ValidateForPublish = validate.ForPublish

	// InitializeStepExecutions produces the initial PENDING state map for
	// a new run.
	InitializeStepExecutions = tracker.InitializeStepExecutions
)

// Re-export status and type values for convenience.

const (
	WorkflowDraft    = api.WorkflowDraft
	WorkflowActive   = api.WorkflowActive
	WorkflowArchived = api.WorkflowArchived

	StepTrigger   = api.StepTrigger
	StepAction    = api.StepAction
	StepCondition = api.StepCondition

	RunPending   = api.RunPending
	RunRunning   = api.RunRunning
	RunCompleted = api.RunCompleted
	RunFailed    = api.RunFailed
	RunCancelled = api.RunCancelled

	StepPending   = api.StepPending
	StepRunning   = api.StepRunning
	StepCompleted = api.StepCompleted
	StepFailed    = api.StepFailedExec
	StepSkipped   = api.StepSkipped

	BranchIfTrue  = api.BranchIfTrue
	BranchIfFalse = api.BranchIfFalse
	BranchElse    = api.BranchElse

	EventPostPublished   = api.EventPostPublished
	EventPostFailed      = api.EventPostFailed
	EventCommentReceived = api.EventCommentReceived
	EventMentionReceived = api.EventMentionReceived
	EventMessageReceived = api.EventMessageReceived
	EventFollowerGained  = api.EventFollowerGained
	EventMetricThreshold = api.EventMetricThreshold
	EventScheduleTick    = api.EventScheduleTick
)

// Backend bundles the two core services with the workflow store backing
// them, so the authoring flow and the event path share one set of records.
type Backend struct {
	Subscriptions SubscriptionService
	Runs          RunTracker
	Workflows     WorkflowStore

	store Persistence
}

// Store returns the full persistence bundle behind the backend. Primarily
// useful for tests and custom wiring.
func (b *Backend) Store() Persistence {
	return b.store
}

// NewBackend wires a SubscriptionService and RunTracker over the given
// stores and bus. A nil observer defaults to NoopObserver.
func NewBackend(p Persistence, eventBus bus.EventBus, observer Observer) *Backend {
	return &Backend{
		Subscriptions: registry.New(p, eventBus, observer),
		Runs:          tracker.New(p.Runs, p.Log, observer),
		Workflows:     p.Workflows,
		store:         p,
	}
}

// NewInMemoryBackend returns a Backend backed entirely by in-memory stores.
func NewInMemoryBackend(eventBus bus.EventBus) *Backend {
	return NewInMemoryBackendWithObserver(eventBus, nil)
}

// NewInMemoryBackendWithObserver is NewInMemoryBackend with an Observer.
func NewInMemoryBackendWithObserver(eventBus bus.EventBus, observer Observer) *Backend {
	mem := persistence.NewInMemoryStore()
	return NewBackend(Persistence{
		Workflows:     mem,
		Subscriptions: mem,
		Runs:          mem,
		Log:           mem,
	}, eventBus, observer)
}

// NewSQLiteBackend returns a Backend that persists subscriptions, runs, and
// the run log in the given SQLite database. Workflow records remain
// in-memory; the authoring flow owns their durable storage.
//
// The caller is responsible for importing a SQLite driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//	db, _ := sql.Open("sqlite", "file:flowline.db?_journal=WAL")
func NewSQLiteBackend(db *sql.DB, eventBus bus.EventBus, observer Observer) (*Backend, error) {
	subs, err := persistence.NewSQLiteSubscriptionStore(db)
	if err != nil {
		return nil, err
	}
	runs, err := persistence.NewSQLiteRunStore(db)
	if err != nil {
		return nil, err
	}
	log, err := persistence.NewSQLiteRunLogStore(db)
	if err != nil {
		return nil, err
	}

	return NewBackend(Persistence{
		Workflows:     persistence.NewInMemoryStore(),
		Subscriptions: subs,
		Runs:          runs,
		Log:           log,
	}, eventBus, observer), nil
}

// NewRedisRunStore returns a RunStore backed by Redis, for mixing into a
// Persistence bundle via NewBackend. prefix defaults to "flowline:".
func NewRedisRunStore(client *redis.Client, prefix string) RunStore {
	return persistence.NewRedisRunStore(client, prefix)
}

// NewMongoRunStore returns a RunStore backed by MongoDB, for mixing into a
// Persistence bundle via NewBackend. dbName defaults to "flowline",
// collName to "runs".
func NewMongoRunStore(client *mongo.Client, dbName, collName string) RunStore {
	return persistence.NewMongoRunStore(client, dbName, collName)
}
