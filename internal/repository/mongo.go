package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tasksCollection = "tasks"
	notesCollection = "stickynotes"
)

// Connect opens a MongoDB client and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the owner indexes used by list queries.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, name := range []string{tasksCollection, notesCollection} {
		_, err := db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create %s index: %w", name, err)
		}
	}
	return nil
}

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	Completed   bool               `bson:"completed"`
	List        string             `bson:"list"`
	Tags        []string           `bson:"tags"`
	Subtasks    []subtaskDocument  `bson:"subtasks"`
	Owner       string             `bson:"owner"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type subtaskDocument struct {
	Title     string `bson:"title"`
	Completed bool   `bson:"completed"`
}

func newTaskDocument(t *model.Task) taskDocument {
	doc := taskDocument{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     bsonTime(t.DueDate),
		Completed:   t.Completed,
		List:        string(t.List),
		Tags:        t.Tags,
		Subtasks:    subtaskDocuments(t.Subtasks),
		Owner:       t.Owner,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	return doc
}

// bsonTime reduces t to the millisecond UTC instant BSON stores.
func bsonTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}

func subtaskDocuments(in []model.Subtask) []subtaskDocument {
	out := make([]subtaskDocument, 0, len(in))
	for _, st := range in {
		out = append(out, subtaskDocument(st))
	}
	return out
}

func (d *taskDocument) toModel() *model.Task {
	t := &model.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		List:        model.List(d.List),
		Tags:        d.Tags,
		Subtasks:    make([]model.Subtask, 0, len(d.Subtasks)),
		Owner:       d.Owner,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	for _, st := range d.Subtasks {
		t.Subtasks = append(t.Subtasks, model.Subtask(st))
	}
	return t
}

// MongoTaskStore persists tasks in the "tasks" collection.
type MongoTaskStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoTaskStore creates a MongoTaskStore on db.
func NewMongoTaskStore(db *mongo.Database) *MongoTaskStore {
	return &MongoTaskStore{coll: db.Collection(tasksCollection), now: time.Now}
}

func (s *MongoTaskStore) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Create",
		trace.WithAttributes(attribute.String("task.owner", task.Owner)),
	)
	defer span.End()

	doc := newTaskDocument(task)
	now := s.now().UTC().Truncate(time.Millisecond)
	doc.CreatedAt = now
	doc.UpdatedAt = now

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		span.RecordError(err)
		return nil, model.StoreError("failed to insert task", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)

	span.SetAttributes(attribute.String("task.id", doc.ID.Hex()))
	return doc.toModel(), nil
}

func (s *MongoTaskStore) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.ListByOwner")
	defer span.End()

	cur, err := s.coll.Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		span.RecordError(err)
		return nil, model.StoreError("failed to find tasks", err)
	}
	defer cur.Close(ctx)

	tasks := make([]*model.Task, 0)
	for cur.Next(ctx) {
		var doc taskDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, model.StoreError("failed to decode task", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, model.StoreError("failed to iterate tasks", err)
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

func (s *MongoTaskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrTaskNotFound
	}

	var doc taskDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, model.StoreError("failed to find task", err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return doc.toModel(), nil
}

func (s *MongoTaskStore) Update(ctx context.Context, id, owner string, patch *model.UpdateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrTaskNotFound
	}
	return s.findOneAndUpdate(ctx, bson.M{"_id": oid, "owner": owner}, taskUpdate(patch, s.now()))
}

// SetCompleted flips the flag with a filter on its current value, so a
// concurrent writer that already changed it makes this call miss.
func (s *MongoTaskStore) SetCompleted(ctx context.Context, id, owner string, expected, next bool) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.SetCompleted",
		trace.WithAttributes(attribute.String("task.id", id), attribute.Bool("task.completed", next)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrTaskNotFound
	}

	update := bson.M{"$set": bson.M{"completed": next, "updatedAt": s.now().UTC()}}
	task, err := s.findOneAndUpdate(ctx, bson.M{"_id": oid, "owner": owner, "completed": expected}, update)
	if errors.Is(err, model.ErrTaskNotFound) {
		return nil, ErrCompletedChanged
	}
	return task, err
}

func (s *MongoTaskStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, model.StoreError("failed to update task", err)
	}
	return doc.toModel(), nil
}

func taskUpdate(patch *model.UpdateTaskRequest, now time.Time) bson.M {
	set := bson.M{"updatedAt": now.UTC()}
	update := bson.M{"$set": set}

	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.DueDate.Set {
		if patch.DueDate.Valid {
			set["dueDate"] = *bsonTime(&patch.DueDate.Value)
		} else {
			update["$unset"] = bson.M{"dueDate": ""}
		}
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if patch.List != nil {
		set["list"] = string(*patch.List)
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.Subtasks != nil {
		set["subtasks"] = subtaskDocuments(*patch.Subtasks)
	}
	return update
}

func (s *MongoTaskStore) Delete(ctx context.Context, id, owner string) error {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.ErrTaskNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "owner": owner})
	if err != nil {
		span.RecordError(err)
		return model.StoreError("failed to delete task", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (s *MongoTaskStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, model.StoreError("failed to count tasks", err)
	}
	return n, nil
}

type noteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Content   string             `bson:"content"`
	Color     string             `bson:"color"`
	Position  model.Position     `bson:"position"`
	Owner     string             `bson:"owner"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *noteDocument) toModel() *model.StickyNote {
	return &model.StickyNote{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		Color:     d.Color,
		Position:  d.Position,
		Owner:     d.Owner,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoNoteStore persists sticky notes in the "stickynotes" collection.
type MongoNoteStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoNoteStore creates a MongoNoteStore on db.
func NewMongoNoteStore(db *mongo.Database) *MongoNoteStore {
	return &MongoNoteStore{coll: db.Collection(notesCollection), now: time.Now}
}

func (s *MongoNoteStore) Create(ctx context.Context, note *model.StickyNote) (*model.StickyNote, error) {
	ctx, span := tracer.Start(ctx, "MongoNoteStore.Create")
	defer span.End()

	now := s.now().UTC().Truncate(time.Millisecond)
	doc := noteDocument{
		Content:   note.Content,
		Color:     note.Color,
		Position:  note.Position,
		Owner:     note.Owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		span.RecordError(err)
		return nil, model.StoreError("failed to insert note", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toModel(), nil
}

func (s *MongoNoteStore) ListByOwner(ctx context.Context, owner string) ([]*model.StickyNote, error) {
	ctx, span := tracer.Start(ctx, "MongoNoteStore.ListByOwner")
	defer span.End()

	cur, err := s.coll.Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		span.RecordError(err)
		return nil, model.StoreError("failed to find notes", err)
	}
	defer cur.Close(ctx)

	notes := make([]*model.StickyNote, 0)
	for cur.Next(ctx) {
		var doc noteDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, model.StoreError("failed to decode note", err)
		}
		notes = append(notes, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, model.StoreError("failed to iterate notes", err)
	}
	return notes, nil
}

func (s *MongoNoteStore) GetByID(ctx context.Context, id string) (*model.StickyNote, error) {
	ctx, span := tracer.Start(ctx, "MongoNoteStore.GetByID",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrNoteNotFound
	}

	var doc noteDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNoteNotFound
	}
	if err != nil {
		return nil, model.StoreError("failed to find note", err)
	}
	return doc.toModel(), nil
}

func (s *MongoNoteStore) Update(ctx context.Context, id, owner string, patch *model.UpdateNoteRequest) (*model.StickyNote, error) {
	ctx, span := tracer.Start(ctx, "MongoNoteStore.Update",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrNoteNotFound
	}

	set := bson.M{"updatedAt": s.now().UTC()}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Color != "" {
		set["color"] = patch.Color
	}
	if patch.Position != nil {
		set["position"] = *patch.Position
	}

	var doc noteDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "owner": owner}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNoteNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, model.StoreError("failed to update note", err)
	}
	return doc.toModel(), nil
}

func (s *MongoNoteStore) Delete(ctx context.Context, id, owner string) error {
	ctx, span := tracer.Start(ctx, "MongoNoteStore.Delete",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.ErrNoteNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "owner": owner})
	if err != nil {
		span.RecordError(err)
		return model.StoreError("failed to delete note", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrNoteNotFound
	}
	return nil
}
