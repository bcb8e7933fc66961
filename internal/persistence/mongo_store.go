package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/juhoh/flowline/pkg/api"
)

// MongoRunStore is a RunStore backed by MongoDB. Opaque payloads are stored
// as gob blobs, matching the SQLite and Redis stores, so a run written by
// one backend decodes identically from another.
type MongoRunStore struct {
	coll *mongo.Collection
}

var _ RunStore = (*MongoRunStore)(nil)

// NewMongoRunStore creates a Mongo-backed run store.
// dbName defaults to "flowline" if empty, collName defaults to "runs".
func NewMongoRunStore(client *mongo.Client, dbName, collName string) *MongoRunStore {
	if dbName == "" {
		dbName = "flowline"
	}
	if collName == "" {
		collName = "runs"
	}
	return &MongoRunStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

type mongoRunDoc struct {
	ID             string `bson:"_id"`
	WorkflowID     string `bson:"workflow_id"`
	WorkspaceID    string `bson:"workspace_id"`
	Status         string `bson:"status"`
	StartedAt      int64  `bson:"started_at"`
	EndedAt        int64  `bson:"ended_at,omitempty"`
	TriggerType    string `bson:"trigger_type"`
	TriggerPayload []byte `bson:"trigger_payload,omitempty"`
	StepExecutions []byte `bson:"step_executions,omitempty"`
}

func runToMongoDoc(run *api.WorkflowRun) (*mongoRunDoc, error) {
	payloadBytes, err := EncodeValue(run.TriggerPayload)
	if err != nil {
		return nil, err
	}
	statesBytes, err := encodeStepStates(run.StepExecutions)
	if err != nil {
		return nil, err
	}

	doc := &mongoRunDoc{
		ID:             run.ID,
		WorkflowID:     run.WorkflowID,
		WorkspaceID:    run.WorkspaceID,
		Status:         string(run.Status),
		StartedAt:      run.StartedAt.UnixNano(),
		TriggerType:    string(run.TriggerType),
		TriggerPayload: payloadBytes,
		StepExecutions: statesBytes,
	}
	if run.EndedAt != nil {
		doc.EndedAt = run.EndedAt.UnixNano()
	}
	return doc, nil
}

func mongoDocToRun(doc *mongoRunDoc) (*api.WorkflowRun, error) {
	triggerPayload, err := DecodeValue[map[string]any](doc.TriggerPayload)
	if err != nil {
		return nil, err
	}
	states, err := decodeStepStates(doc.StepExecutions)
	if err != nil {
		return nil, err
	}

	run := &api.WorkflowRun{
		ID:             doc.ID,
		WorkflowID:     doc.WorkflowID,
		WorkspaceID:    doc.WorkspaceID,
		Status:         api.RunStatus(doc.Status),
		StartedAt:      time.Unix(0, doc.StartedAt),
		TriggerType:    api.EventType(doc.TriggerType),
		TriggerPayload: triggerPayload,
		StepExecutions: states,
	}
	if doc.EndedAt != 0 {
		t := time.Unix(0, doc.EndedAt)
		run.EndedAt = &t
	}
	return run, nil
}

func (s *MongoRunStore) SaveRun(ctx context.Context, run *api.WorkflowRun) error {
	doc, err := runToMongoDoc(run)
	if err != nil {
		return err
	}
	_, err = s.coll.InsertOne(ctx, doc)
	return err
}

func (s *MongoRunStore) UpdateRun(ctx context.Context, run *api.WorkflowRun) error {
	doc, err := runToMongoDoc(run)
	if err != nil {
		return err
	}

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": run.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *MongoRunStore) GetRun(ctx context.Context, id string) (*api.WorkflowRun, error) {
	var doc mongoRunDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return mongoDocToRun(&doc)
}

func (s *MongoRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.WorkflowRun, error) {
	query := bson.M{}
	if filter.WorkflowID != "" {
		query["workflow_id"] = filter.WorkflowID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	cursor, err := s.coll.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []*api.WorkflowRun
	for cursor.Next(ctx) {
		var doc mongoRunDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		run, err := mongoDocToRun(&doc)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, cursor.Err()
}
