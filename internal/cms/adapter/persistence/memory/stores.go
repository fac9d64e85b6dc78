package memory

import (
	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
)

// NewStores wires every cms collection to the admin and public databases.
func NewStores(admin, public *Database) repository.Stores {
	return repository.Stores{
		AdminPosts:   NewStore[model.Post](admin, model.CollectionPosts),
		Boilerplates: NewStore[model.PostBoilerplate](admin, model.CollectionBoilerplates),
		OpenAdmin: func(name string) repository.Store[model.Post] {
			return NewStore[model.Post](admin, name)
		},

		PublicPosts:  NewStore[model.Post](public, model.CollectionPosts),
		BlogIndex:    NewStore[model.BlogIndexRef](public, model.CollectionBlogIndex),
		PublicUsers:  NewStore[model.PublicUser](public, model.CollectionPublicUsers),
		Subscribers:  NewStore[model.EmailSubscriber](public, model.CollectionSubscribers),
		ContactForms: NewStore[model.ContactForm](public, model.CollectionContactForms),
		Orders:       NewStore[model.Order](public, model.CollectionOrders),
		Products:     NewStore[model.Product](public, model.CollectionProducts),
	}
}
