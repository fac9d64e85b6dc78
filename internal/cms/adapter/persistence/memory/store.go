package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Database is an in-process document database holding any number of collections.
// Documents are kept in their BSON-decoded form so both adapters share field
// naming and value semantics.
type Database struct {
	mu          sync.RWMutex
	collections map[string]map[string]bson.M
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{collections: make(map[string]map[string]bson.M)}
}

// CollectionNames lists the collections holding at least one document.
func (db *Database) CollectionNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.collections))
	for name, docs := range db.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (db *Database) collection(name string) map[string]bson.M {
	c, ok := db.collections[name]
	if !ok {
		c = make(map[string]bson.M)
		db.collections[name] = c
	}
	return c
}

// Store implements repository.Store on a Database collection.
type Store[T any] struct {
	db   *Database
	name string
}

// NewStore opens collection name in db.
func NewStore[T any](db *Database, name string) *Store[T] {
	return &Store[T]{db: db, name: name}
}

var _ repository.Store[model.Post] = (*Store[model.Post])(nil)

// Get returns the document with the given ID.
func (s *Store[T]) Get(ctx context.Context, id string) (*T, error) {
	s.db.mu.RLock()
	raw, ok := s.db.collections[s.name][id]
	s.db.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", s.name, id, errors.ErrDocumentNotFound)
	}
	return decode[T](raw)
}

// Create inserts doc, failing when the ID is already used.
func (s *Store[T]) Create(ctx context.Context, id string, doc *T) error {
	m, err := encode(id, doc)
	if err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	coll := s.db.collection(s.name)
	if _, exists := coll[id]; exists {
		return fmt.Errorf("%s/%s: %w", s.name, id, errors.ErrConflict)
	}
	coll[id] = m
	return nil
}

// Set replaces or inserts doc.
func (s *Store[T]) Set(ctx context.Context, id string, doc *T) error {
	m, err := encode(id, doc)
	if err != nil {
		return err
	}
	s.db.mu.Lock()
	s.db.collection(s.name)[id] = m
	s.db.mu.Unlock()
	return nil
}

// Update applies a partial update to an existing document.
func (s *Store[T]) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	coll := s.db.collection(s.name)
	current, ok := coll[id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", s.name, id, errors.ErrDocumentNotFound)
	}
	updated, err := applyUpdate(current, fields)
	if err != nil {
		return err
	}
	coll[id] = updated
	return nil
}

// Delete removes the document. Missing documents are ignored.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	delete(s.db.collection(s.name), id)
	s.db.mu.Unlock()
	return nil
}

// Find evaluates query against the collection.
func (s *Store[T]) Find(ctx context.Context, query model.Query) ([]*T, error) {
	matched, err := s.match(query)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(matched))
	for _, m := range matched {
		doc, err := decode[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Count returns the number of documents query would return.
func (s *Store[T]) Count(ctx context.Context, query model.Query) (int64, error) {
	matched, err := s.match(query)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (s *Store[T]) match(query model.Query) ([]bson.M, error) {
	for _, f := range query.Filters {
		if !f.Operator.IsValid() {
			return nil, fmt.Errorf("operator %q: %w", f.Operator, errors.ErrInvalidQuery)
		}
	}

	s.db.mu.RLock()
	var matched []bson.M
	for _, doc := range s.db.collections[s.name] {
		if matchesAll(doc, query.Filters) {
			matched = append(matched, doc)
		}
	}
	s.db.mu.RUnlock()

	sortDocs(matched, query.Orders)

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

// BatchWrite commits ops in chunks. Each chunk is applied atomically.
func (s *Store[T]) BatchWrite(ctx context.Context, ops []model.BatchOperation[T]) (int, error) {
	return repository.CommitInChunks(ctx, ops, model.MaxBatchSize, s.commit)
}

func (s *Store[T]) commit(ctx context.Context, chunk []model.BatchOperation[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	coll := s.db.collection(s.name)

	staged := make(map[string]bson.M, len(chunk))
	current := func(id string) (bson.M, bool) {
		if m, ok := staged[id]; ok {
			return m, m != nil
		}
		m, ok := coll[id]
		return m, ok
	}

	for _, op := range chunk {
		switch op.Type {
		case model.BatchOperationTypeSet:
			if op.Doc == nil {
				return fmt.Errorf("nil document %q", op.ID)
			}
			m, err := encode(op.ID, op.Doc)
			if err != nil {
				return err
			}
			staged[op.ID] = m
		case model.BatchOperationTypeUpdate:
			m, ok := current(op.ID)
			if !ok {
				// Matches nothing, like an update-one without upsert.
				continue
			}
			updated, err := applyUpdate(m, op.Fields)
			if err != nil {
				return err
			}
			staged[op.ID] = updated
		case model.BatchOperationTypeDelete:
			staged[op.ID] = nil
		default:
			return fmt.Errorf("unknown batch operation %q", op.Type)
		}
	}

	for id, m := range staged {
		if m == nil {
			delete(coll, id)
			continue
		}
		coll[id] = m
	}
	return nil
}

func encode(id string, doc interface{}) (bson.M, error) {
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

func decode[T any](m bson.M) (*T, error) {
	data, err := bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// applyUpdate returns a copy of doc with fields applied. Dotted keys address
// embedded documents.
func applyUpdate(doc bson.M, fields map[string]interface{}) (bson.M, error) {
	cp, err := deepCopy(doc)
	if err != nil {
		return nil, err
	}
	for path, value := range fields {
		if path == "_id" {
			continue
		}
		parts := strings.Split(path, ".")
		parent := cp
		for _, p := range parts[:len(parts)-1] {
			next, ok := asMap(parent[p])
			if !ok {
				next = bson.M{}
				parent[p] = next
			}
			parent = next
		}
		leaf := parts[len(parts)-1]
		if model.IsDeleteField(value) {
			delete(parent, leaf)
			continue
		}
		canon, err := canonical(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		parent[leaf] = canon
	}
	return cp, nil
}

func deepCopy(m bson.M) (bson.M, error) {
	data, err := bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cp bson.M
	if err := bson.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// canonical converts v to the form it takes after a BSON round trip.
func canonical(v interface{}) (interface{}, error) {
	data, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	var wrapper bson.M
	if err := bson.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	return wrapper["v"], nil
}
