package http

import (
	"context"

	authModel "blog-cms/internal/auth/domain/model"
	"blog-cms/internal/cms/usecase"
	"blog-cms/internal/shared/callable"
	"blog-cms/internal/shared/validation"
)

// Usecases groups the cms operations exposed to the admin client.
type Usecases struct {
	Posts        usecase.PostUsecaseInterface
	Autopublish  usecase.AutopublishUsecaseInterface
	Boilerplates usecase.BoilerplateUsecaseInterface
	Images       usecase.ImageUsecaseInterface
	PublicUsers  usecase.PublicUserUsecaseInterface
	Subscribers  usecase.SubscriberUsecaseInterface
	Contact      usecase.ContactUsecaseInterface
	Commerce     usecase.CommerceUsecaseInterface
	Maintenance  usecase.MaintenanceUsecaseInterface
}

// Editors may author content. Everything touching readers, customers or the
// stores as a whole is admin only.
var (
	contentRoles = callable.RequireRole(authModel.RoleAdmin, authModel.RoleEditor)
	adminRole    = callable.RequireRole(authModel.RoleAdmin)
)

// RegisterCallables registers every cms callable on reg.
func RegisterCallables(reg *callable.Registry, uc Usecases) {
	registerPostCallables(reg, uc)

	reg.Register("savePostBoilerplate", callable.Typed(uc.Boilerplates.SavePostBoilerplate), contentRoles)
	reg.Register("getPostBoilerplate", callable.Typed(byID(uc.Boilerplates.GetPostBoilerplate)), contentRoles)
	reg.Register("listPostBoilerplates", callable.Typed(uc.Boilerplates.ListPostBoilerplates), contentRoles)
	reg.Register("deletePostBoilerplate", callable.NoResult(byIDOnly(uc.Boilerplates.DeletePostBoilerplate)), contentRoles)

	reg.Register("resizeImage", callable.Typed(uc.Images.ResizeImage), contentRoles)
	reg.Register("deletePostImages", callable.Typed(byPostID(uc.Images.DeletePostImages)), contentRoles)

	reg.Register("listPublicUsers", callable.Typed(uc.PublicUsers.ListPublicUsers), adminRole)
	reg.Register("getPublicUser", callable.Typed(byID(uc.PublicUsers.GetPublicUser)), adminRole)
	reg.Register("updatePublicUser", callable.Typed(uc.PublicUsers.UpdatePublicUser), adminRole)
	reg.Register("deletePublicUser", callable.NoResult(byIDOnly(uc.PublicUsers.DeletePublicUser)), adminRole)
	reg.Register("exportPublicUsers", callable.Typed(uc.PublicUsers.ExportPublicUsers), adminRole)

	reg.Register("listSubscribers", callable.Typed(uc.Subscribers.ListSubscribers), adminRole)
	reg.Register("getSubscriber", callable.Typed(byID(uc.Subscribers.GetSubscriber)), adminRole)
	reg.Register("deleteSubscriber", callable.NoResult(byIDOnly(uc.Subscribers.DeleteSubscriber)), adminRole)
	reg.Register("exportSubscribers", callable.Typed(uc.Subscribers.ExportSubscribers), adminRole)

	reg.Register("listContactForms", callable.Typed(uc.Contact.ListContactForms), adminRole)
	reg.Register("getContactForm", callable.Typed(byID(uc.Contact.GetContactForm)), adminRole)
	reg.Register("markContactFormRead", callable.Typed(uc.Contact.MarkContactFormRead), adminRole)
	reg.Register("deleteContactForm", callable.NoResult(byIDOnly(uc.Contact.DeleteContactForm)), adminRole)

	reg.Register("listOrders", callable.Typed(uc.Commerce.ListOrders), adminRole)
	reg.Register("getOrder", callable.Typed(byID(uc.Commerce.GetOrder)), adminRole)
	reg.Register("exportOrders", callable.Typed(uc.Commerce.ExportOrders), adminRole)
	reg.Register("listProducts", callable.Typed(uc.Commerce.ListProducts), adminRole)
	reg.Register("getProduct", callable.Typed(byID(uc.Commerce.GetProduct)), adminRole)
	reg.Register("setProductActive", callable.Typed(uc.Commerce.SetProductActive), adminRole)

	reg.Register("backupPostCollection", callable.NoInput(uc.Maintenance.BackupPostCollection), adminRole)
	reg.Register("migratePostData", callable.NoInput(uc.Maintenance.MigratePostData), adminRole)
}

func registerPostCallables(reg *callable.Registry, uc Usecases) {
	posts := uc.Posts
	reg.Register("createPost", callable.Typed(posts.CreatePost), contentRoles)
	reg.Register("getPost", callable.Typed(byPostID(posts.GetPost)), contentRoles)
	reg.Register("listPosts", callable.Typed(posts.ListPosts), contentRoles)
	reg.Register("updatePost", callable.Typed(posts.UpdatePost), contentRoles)
	reg.Register("publishPost", callable.Typed(byPostID(posts.PublishPost)), contentRoles)
	reg.Register("unpublishPost", callable.Typed(byPostID(posts.UnpublishPost)), contentRoles)
	reg.Register("deletePost", callable.NoResult(func(ctx context.Context, req usecase.PostIDRequest) error {
		if err := validation.Struct(req); err != nil {
			return err
		}
		return posts.DeletePost(ctx, req.PostID)
	}), contentRoles)
	reg.Register("schedulePost", callable.Typed(posts.SchedulePost), contentRoles)
	reg.Register("cancelScheduledPost", callable.Typed(byPostID(posts.CancelScheduledPost)), contentRoles)
	reg.Register("syncPublishedPosts", callable.NoInput(posts.SyncPublishedPosts), adminRole)

	reg.Register("runAutopublishSweep", callable.NoInput(func(ctx context.Context) (*autopublishResult, error) {
		result, ran, err := uc.Autopublish.RunExclusive(ctx)
		if err != nil {
			return nil, err
		}
		return &autopublishResult{Ran: ran, SweepResult: result}, nil
	}), adminRole)
}

// autopublishResult reports a sweep; ran is false when another replica held the lock.
type autopublishResult struct {
	Ran bool `json:"ran"`
	*usecase.SweepResult
}

func byPostID[Res any](fn func(ctx context.Context, postID string) (Res, error)) func(context.Context, usecase.PostIDRequest) (Res, error) {
	return func(ctx context.Context, req usecase.PostIDRequest) (Res, error) {
		if err := validation.Struct(req); err != nil {
			var zero Res
			return zero, err
		}
		return fn(ctx, req.PostID)
	}
}

func byID[Res any](fn func(ctx context.Context, id string) (Res, error)) func(context.Context, usecase.IDRequest) (Res, error) {
	return func(ctx context.Context, req usecase.IDRequest) (Res, error) {
		if err := validation.Struct(req); err != nil {
			var zero Res
			return zero, err
		}
		return fn(ctx, req.ID)
	}
}

func byIDOnly(fn func(ctx context.Context, id string) error) func(context.Context, usecase.IDRequest) error {
	return func(ctx context.Context, req usecase.IDRequest) error {
		if err := validation.Struct(req); err != nil {
			return err
		}
		return fn(ctx, req.ID)
	}
}

