package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements repository.Store on a MongoDB collection. Document IDs are
// stored in _id.
type Store[T any] struct {
	coll *mongo.Collection
}

// NewStore opens collection name in db.
func NewStore[T any](db *mongo.Database, name string) *Store[T] {
	return &Store[T]{coll: db.Collection(name)}
}

var _ repository.Store[model.Post] = (*Store[model.Post])(nil)

// Get returns the document with the given ID.
func (s *Store[T]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s/%s: %w", s.coll.Name(), id, errors.ErrDocumentNotFound)
		}
		return nil, err
	}
	return &doc, nil
}

// Create inserts doc, failing when the ID is already used.
func (s *Store[T]) Create(ctx context.Context, id string, doc *T) error {
	m, err := toDocument(id, doc)
	if err != nil {
		return err
	}
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s/%s: %w", s.coll.Name(), id, errors.ErrConflict)
		}
		return err
	}
	return nil
}

// Set replaces or inserts doc.
func (s *Store[T]) Set(ctx context.Context, id string, doc *T) error {
	m, err := toDocument(id, doc)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": id}, m, options.Replace().SetUpsert(true))
	return err
}

// Update applies a partial update to an existing document.
func (s *Store[T]) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	update := buildUpdate(fields)
	if len(update) == 0 {
		_, err := s.Get(ctx, id)
		return err
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", s.coll.Name(), id, errors.ErrDocumentNotFound)
	}
	return nil
}

// Delete removes the document. Missing documents are ignored.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Find runs query against the collection.
func (s *Store[T]) Find(ctx context.Context, query model.Query) ([]*T, error) {
	filter, err := buildFilter(query.Filters)
	if err != nil {
		return nil, err
	}
	cur, err := s.coll.Find(ctx, filter, buildFindOptions(query))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*T, 0)
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", s.coll.Name(), err)
		}
		out = append(out, &doc)
	}
	return out, cur.Err()
}

// Count returns the number of documents query would return.
func (s *Store[T]) Count(ctx context.Context, query model.Query) (int64, error) {
	filter, err := buildFilter(query.Filters)
	if err != nil {
		return 0, err
	}
	opts := options.Count()
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}
	if query.Offset > 0 {
		opts.SetSkip(int64(query.Offset))
	}
	return s.coll.CountDocuments(ctx, filter, opts)
}

// BatchWrite commits ops as ordered bulk writes of at most model.MaxBatchSize.
func (s *Store[T]) BatchWrite(ctx context.Context, ops []model.BatchOperation[T]) (int, error) {
	return repository.CommitInChunks(ctx, ops, model.MaxBatchSize, s.commit)
}

func (s *Store[T]) commit(ctx context.Context, chunk []model.BatchOperation[T]) error {
	models, err := writeModels(chunk)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return nil
	}
	_, err = s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func writeModels[T any](chunk []model.BatchOperation[T]) ([]mongo.WriteModel, error) {
	models := make([]mongo.WriteModel, 0, len(chunk))
	for _, op := range chunk {
		filter := bson.M{"_id": op.ID}
		switch op.Type {
		case model.BatchOperationTypeSet:
			if op.Doc == nil {
				return nil, fmt.Errorf("nil document %q", op.ID)
			}
			m, err := toDocument(op.ID, op.Doc)
			if err != nil {
				return nil, err
			}
			models = append(models, mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(m).SetUpsert(true))
		case model.BatchOperationTypeUpdate:
			update := buildUpdate(op.Fields)
			if len(update) == 0 {
				continue
			}
			models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update))
		case model.BatchOperationTypeDelete:
			models = append(models, mongo.NewDeleteOneModel().SetFilter(filter))
		default:
			return nil, fmt.Errorf("unknown batch operation %q", op.Type)
		}
	}
	return models, nil
}

// toDocument encodes doc and forces its _id.
func toDocument(id string, doc interface{}) (bson.M, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document %q", id)
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", id, err)
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode %q: %w", id, err)
	}
	m["_id"] = id
	return m, nil
}
