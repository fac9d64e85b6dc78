package repository

import (
	"context"

	"blog-cms/internal/cms/domain/model"
)

// Store is a typed document collection.
//
// Get and Update return errors.ErrDocumentNotFound for a missing document and
// Create returns errors.ErrConflict when the ID is taken. Delete of a missing
// document succeeds.
type Store[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, id string, doc *T) error
	Set(ctx context.Context, id string, doc *T) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, query model.Query) ([]*T, error)
	Count(ctx context.Context, query model.Query) (int64, error)
	// BatchWrite commits ops in chunks of at most model.MaxBatchSize and returns
	// the number of operations written. A failing chunk stops the remaining ones.
	// An update of a missing document is skipped.
	BatchWrite(ctx context.Context, ops []model.BatchOperation[T]) (int, error)
}

// PostCollectionOpener opens an arbitrary post-shaped collection in the admin
// project, used for backups.
type PostCollectionOpener func(name string) Store[model.Post]

// Stores groups every collection the CMS reads or writes.
type Stores struct {
	AdminPosts   Store[model.Post]
	Boilerplates Store[model.PostBoilerplate]
	OpenAdmin    PostCollectionOpener

	PublicPosts  Store[model.Post]
	BlogIndex    Store[model.BlogIndexRef]
	PublicUsers  Store[model.PublicUser]
	Subscribers  Store[model.EmailSubscriber]
	ContactForms Store[model.ContactForm]
	Orders       Store[model.Order]
	Products     Store[model.Product]
}
