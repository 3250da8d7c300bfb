package migration

import (
	"bytes"
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ds-wizard/dsw2to3/pkg/models"
)

// SourceReader is the read-only view of the legacy store. Implementations
// must never mutate the source under any run mode.
type SourceReader interface {
	// VerifySchema fails with SourceSchemaMismatchError when an expected
	// collection is absent, or SourceUnavailableError when the store
	// cannot be reached.
	VerifySchema(ctx context.Context) error

	// Stream passes every record of the group to fn in stable input
	// order. Re-invoking starts over from the beginning.
	Stream(ctx context.Context, spec GroupSpec, fn func(models.LegacyDocument) error) error

	// FetchBlob loads one binary object from the legacy blob store. The
	// second result is false when no object exists under that name.
	FetchBlob(ctx context.Context, bucket, name string) ([]byte, bool, error)
}

// MongoSource reads the legacy MongoDB database, including its GridFS
// buckets for binary content.
type MongoSource struct {
	db  *mongo.Database
	log logrus.FieldLogger
}

func NewMongoSource(db *mongo.Database, log logrus.FieldLogger) *MongoSource {
	return &MongoSource{db: db, log: log}
}

func (s *MongoSource) VerifySchema(ctx context.Context) error {
	names, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return &SourceUnavailableError{Err: err}
	}
	existing := map[string]bool{}
	for _, name := range names {
		existing[name] = true
	}
	for _, collection := range SourceCollections() {
		if !existing[collection] {
			return &SourceSchemaMismatchError{Collection: collection}
		}
	}
	return nil
}

func (s *MongoSource) Stream(ctx context.Context, spec GroupSpec, fn func(models.LegacyDocument) error) error {
	// _id order keeps repeated runs over the same snapshot deterministic.
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(spec.Collection).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return &SourceUnavailableError{Err: err}
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return &SourceUnavailableError{Err: err}
		}
		if spec.NestedField == "" {
			if err := fn(doc); err != nil {
				return err
			}
			continue
		}
		if err := s.emitNested(doc, spec, fn); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return &SourceUnavailableError{Err: err}
	}
	return nil
}

// emitNested unpacks the embedded child array of one parent document,
// annotating every child with its parent's identifier.
func (s *MongoSource) emitNested(parent bson.M, spec GroupSpec, fn func(models.LegacyDocument) error) error {
	parentID := models.Field(parent, "id")
	raw, ok := parent[spec.NestedField]
	if !ok || raw == nil {
		return nil
	}
	children, ok := raw.(primitive.A)
	if !ok {
		s.log.WithFields(logrus.Fields{
			"collection": spec.Collection,
			"field":      spec.NestedField,
			"parent":     parentID,
		}).Warn("nested field is not an array, skipping")
		return nil
	}
	for _, item := range children {
		childDoc, ok := item.(bson.M)
		if !ok {
			if plain, ok := item.(map[string]interface{}); ok {
				childDoc = plain
			} else {
				continue
			}
		}
		child := make(models.LegacyDocument, len(childDoc)+1)
		for k, v := range childDoc {
			child[k] = v
		}
		child["templateId"] = parentID
		if err := fn(child); err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoSource) FetchBlob(ctx context.Context, bucket, name string) ([]byte, bool, error) {
	fsBucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(bucket))
	if err != nil {
		return nil, false, &SourceUnavailableError{Err: err}
	}

	var buf bytes.Buffer
	if _, err := fsBucket.DownloadToStreamByName(name, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, false, nil
		}
		return nil, false, &SourceUnavailableError{Err: err}
	}
	return buf.Bytes(), true, nil
}
