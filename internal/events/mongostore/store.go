// Package mongostore persists events in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"duendefinder/internal/events"
	"duendefinder/internal/mongodb"
)

const fieldStatus = "pipelineStatus"

// document is the stored shape of an event.
type document struct {
	ObjectID     primitive.ObjectID `bson:"_id,omitempty"`
	events.Event `bson:",inline"`
}

// clearable lists omitempty keys that must be unset when the event field is
// empty, so a cleared value does not survive an update.
var clearable = []string{
	"artist", "city", "venue", "time", "sourceUrl", "description",
	"blogPostTitle", "blogPostMarkdown", "nightPlan", "excerpt", "socialCaptions", "hashtags",
	"imageId", "imageUrl", "secondaryImageId", "secondaryImageUrl",
	"contentGenerationDate", "contentModel",
	"wordpressPostId", "blogPostUrl", "featuredImageId", "featuredImageUrl", "publishedAt",
	"distributions", "distributedAt",
	"enrichmentAttempts", "publishAttempts", "errorMessage", "lastHeartbeat",
}

// Store implements events.Store on MongoDB.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// New wraps the collection. Call EnsureIndexes once at startup.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll, now: func() time.Time { return time.Now().UTC() }}
}

// Open connects the shared client and returns a store on database.collection.
func Open(ctx context.Context, opts mongodb.Options, database, collection string) (*Store, error) {
	client, err := mongodb.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	store := New(client.Database(database).Collection(collection))
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureIndexes creates the status and dedup key indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: fieldStatus, Value: 1}, {Key: "statusChangedAt", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "artist", Value: 1}, {Key: "name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, e *events.Event) error {
	events.PrepareInsert(e, s.now())
	doc := document{Event: *e}
	if e.ID != "" {
		oid, err := primitive.ObjectIDFromHex(e.ID)
		if err != nil {
			return fmt.Errorf("insert event: invalid id %q", e.ID)
		}
		doc.ObjectID = oid
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid.Hex()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*events.Event, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return doc.toEvent(), nil
}

func (s *Store) Update(ctx context.Context, e *events.Event) error {
	oid, err := objectID(e.ID)
	if err != nil {
		return err
	}
	e.UpdatedAt = s.now()
	update, err := updateFor(e)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid, fieldStatus: e.Status}, update)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missOrConflict(ctx, oid)
	}
	return nil
}

func (s *Store) Claim(ctx context.Context, from, processing events.Status) (*events.Event, error) {
	return s.ClaimReady(ctx, from, processing, time.Time{})
}

func (s *Store) ClaimReady(ctx context.Context, from, processing events.Status, retryCutoff time.Time) (*events.Event, error) {
	if err := events.ValidateTransition(from, processing); err != nil {
		return nil, err
	}
	filter := bson.M{fieldStatus: from}
	if !retryCutoff.IsZero() {
		filter["$or"] = bson.A{
			bson.M{"errorMessage": bson.M{"$in": bson.A{nil, ""}}},
			bson.M{"statusChangedAt": bson.M{"$lt": retryCutoff}},
		}
	}
	now := s.now()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "statusChangedAt", Value: 1}, {Key: "createdAt", Value: 1}})
	var doc document
	err := s.coll.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": bson.M{
			fieldStatus:       processing,
			"statusChangedAt": now,
			"updatedAt":       now,
			"lastHeartbeat":   now,
		}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim %s event: %w", from, err)
	}
	return doc.toEvent(), nil
}

func (s *Store) Transition(ctx context.Context, e *events.Event, from, to events.Status) error {
	if err := events.ValidateTransition(from, to); err != nil {
		return err
	}
	oid, err := objectID(e.ID)
	if err != nil {
		return err
	}
	now := s.now()
	restore := events.SnapshotStatus(e)
	e.Status = to
	e.StatusChangedAt = now
	e.UpdatedAt = now
	if !to.IsProcessing() {
		e.LastHeartbeat = nil
	}
	update, err := updateFor(e)
	if err != nil {
		restore()
		return err
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid, fieldStatus: from}, update)
	if err != nil {
		restore()
		return fmt.Errorf("transition event: %w", err)
	}
	if res.MatchedCount == 0 {
		restore()
		return s.missOrConflict(ctx, oid)
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter events.Filter) ([]*events.Event, error) {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		query[fieldStatus] = bson.M{"$in": filter.Statuses}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*events.Event
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, doc.toEvent())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (map[events.Status]int, error) {
	cursor, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{fieldStatus: bson.M{"$exists": true}}}},
		{{Key: "$group", Value: bson.M{"_id": "$" + fieldStatus, "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := make(map[events.Status]int)
	for cursor.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		stats[events.Status(row.Status)] = row.Count
	}
	return stats, cursor.Err()
}

func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, fieldStatus: bson.M{"$in": events.ProcessingStatuses()}},
		bson.M{"$set": bson.M{"lastHeartbeat": s.now()}},
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if res.MatchedCount == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time, statuses ...events.Status) (int64, error) {
	stale := bson.A{
		bson.M{"lastHeartbeat": bson.M{"$lt": cutoff.UTC()}},
		bson.M{"lastHeartbeat": bson.M{"$exists": false}},
	}
	return s.rollback(ctx, statuses, bson.M{"$or": stale})
}

func (s *Store) ResetProcessing(ctx context.Context) (int64, error) {
	return s.rollback(ctx, nil, bson.M{})
}

func (s *Store) rollback(ctx context.Context, statuses []events.Status, extra bson.M) (int64, error) {
	if len(statuses) == 0 {
		statuses = events.ProcessingStatuses()
	}
	now := s.now()
	var total int64
	for _, status := range statuses {
		target, ok := status.Rollback()
		if !ok {
			continue
		}
		filter := bson.M{fieldStatus: status}
		for k, v := range extra {
			filter[k] = v
		}
		res, err := s.coll.UpdateMany(ctx, filter, bson.M{
			"$set":   bson.M{fieldStatus: target, "statusChangedAt": now, "updatedAt": now},
			"$unset": bson.M{"lastHeartbeat": ""},
		})
		if err != nil {
			return total, fmt.Errorf("roll back %s events: %w", status, err)
		}
		total += res.ModifiedCount
	}
	return total, nil
}

func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	var idFilter bson.A
	for _, id := range ids {
		oid, err := objectID(id)
		if err != nil {
			return 0, err
		}
		idFilter = append(idFilter, oid)
	}
	now := s.now()
	var total int64
	for _, status := range events.FailedStatuses() {
		target, _ := status.RetryTarget()
		filter := bson.M{fieldStatus: status}
		if len(ids) > 0 {
			filter["_id"] = bson.M{"$in": idFilter}
		}
		unset := bson.M{"errorMessage": ""}
		switch status {
		case events.StatusEnrichmentFailed:
			unset["enrichmentAttempts"] = ""
		case events.StatusPublishFailed:
			unset["publishAttempts"] = ""
		}
		res, err := s.coll.UpdateMany(ctx, filter, bson.M{
			"$set":   bson.M{fieldStatus: target, "statusChangedAt": now, "updatedAt": now},
			"$unset": unset,
		})
		if err != nil {
			return total, fmt.Errorf("retry %s events: %w", status, err)
		}
		total += res.ModifiedCount
	}
	return total, nil
}

func (s *Store) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	oids := make(bson.A, 0, len(ids))
	for _, id := range ids {
		oid, err := objectID(id)
		if err != nil {
			return 0, err
		}
		oids = append(oids, oid)
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the shared client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return mongodb.Disconnect(ctx)
}

func (s *Store) missOrConflict(ctx context.Context, oid primitive.ObjectID) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if n == 0 {
		return events.ErrNotFound
	}
	return events.ErrConflict
}

func (d document) toEvent() *events.Event {
	e := d.Event
	e.ID = d.ObjectID.Hex()
	return &e
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, events.ErrNotFound
	}
	return oid, nil
}

// updateFor builds a $set of every stored field and an $unset of cleared ones.
func updateFor(e *events.Event) (bson.M, error) {
	raw, err := bson.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	delete(set, "_id")
	unset := bson.M{}
	for _, key := range clearable {
		if _, ok := set[key]; !ok {
			unset[key] = ""
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}
