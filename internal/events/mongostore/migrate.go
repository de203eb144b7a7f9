package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"duendefinder/internal/events"
)

type legacyDocument struct {
	ObjectID            primitive.ObjectID `bson:"_id"`
	events.LegacyFields `bson:",inline"`
}

// MigrateLegacy derives pipelineStatus for documents that lack it. With apply
// false the report is computed without writing.
func (s *Store) MigrateLegacy(ctx context.Context, apply bool) (events.MigrationReport, error) {
	report := events.MigrationReport{ByStatus: make(map[events.Status]int), Applied: apply}

	cursor, err := s.coll.Find(ctx, bson.M{fieldStatus: bson.M{"$exists": false}})
	if err != nil {
		return report, fmt.Errorf("find legacy events: %w", err)
	}
	defer cursor.Close(ctx)

	now := s.now()
	for cursor.Next(ctx) {
		var doc legacyDocument
		if err := cursor.Decode(&doc); err != nil {
			return report, fmt.Errorf("decode legacy event: %w", err)
		}
		report.Scanned++
		status := events.StatusFromLegacy(doc.LegacyFields)
		report.ByStatus[status]++
		if !apply {
			continue
		}
		res, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": doc.ObjectID, fieldStatus: bson.M{"$exists": false}},
			bson.M{
				"$set":   bson.M{fieldStatus: status, "statusChangedAt": now, "updatedAt": now},
				"$unset": bson.M{"contentStatus": "", "status": "", "isDistributed": ""},
			},
		)
		if err != nil {
			return report, fmt.Errorf("migrate event %s: %w", doc.ObjectID.Hex(), err)
		}
		report.Migrated += int(res.ModifiedCount)
	}
	return report, cursor.Err()
}
