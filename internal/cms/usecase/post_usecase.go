package usecase

import (
	"context"
	"strings"
	"time"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/validation"

	"github.com/google/uuid"
)

// PostUsecaseInterface defines post authoring and the publishing workflow.
type PostUsecaseInterface interface {
	CreatePost(ctx context.Context, req CreatePostRequest) (*model.Post, error)
	GetPost(ctx context.Context, postID string) (*model.Post, error)
	ListPosts(ctx context.Context, req ListPostsRequest) ([]*model.Post, error)
	UpdatePost(ctx context.Context, req UpdatePostRequest) (*model.Post, error)
	PublishPost(ctx context.Context, postID string) (*model.Post, error)
	UnpublishPost(ctx context.Context, postID string) (*model.Post, error)
	DeletePost(ctx context.Context, postID string) error
	SchedulePost(ctx context.Context, req SchedulePostRequest) (*model.Post, error)
	CancelScheduledPost(ctx context.Context, postID string) (*model.Post, error)
	SyncPublishedPosts(ctx context.Context) (*SyncResult, error)
}

// PostUsecase writes posts to the admin store and mirrors published ones into
// the public store. Writes across the two stores are not transactional: a
// failure is returned as is and earlier writes stay in place.
type PostUsecase struct {
	deps Dependencies
	log  logger.Logger
}

var _ PostUsecaseInterface = (*PostUsecase)(nil)

func NewPostUsecase(deps Dependencies) *PostUsecase {
	deps = deps.withDefaults()
	return &PostUsecase{deps: deps, log: deps.Logger.WithComponent("post_usecase")}
}

func postFolder(postID string) string {
	return "posts/" + postID + "/"
}

func (uc *PostUsecase) getPost(ctx context.Context, postID string) (*model.Post, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, apperrors.NewValidationError("postId is required")
	}
	post, err := uc.deps.Stores.AdminPosts.Get(ctx, postID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("post").WithCause(err).WithDetail("postId", postID)
		}
		return nil, apperrors.WrapError(err, "failed to read post")
	}
	return post, nil
}

func (uc *PostUsecase) emit(ctx context.Context, eventType string, post *model.Post, at time.Time) {
	uc.deps.publish(ctx, eventType, model.NewPostEvent(post, actor(ctx), at), "posts")
}

// CreatePost creates an unpublished draft, optionally seeded from a boilerplate.
func (uc *PostUsecase) CreatePost(ctx context.Context, req CreatePostRequest) (*model.Post, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var content string
	if req.BoilerplateID != "" {
		bp, err := uc.deps.Stores.Boilerplates.Get(ctx, req.BoilerplateID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFoundError("post boilerplate").WithCause(err)
			}
			return nil, apperrors.WrapError(err, "failed to read post boilerplate")
		}
		content = bp.Content
	}

	now := uc.deps.now()
	userID := actor(ctx)
	title := strings.TrimSpace(req.Title)
	post := &model.Post{
		ID:                    uuid.NewString(),
		Title:                 title,
		Slug:                  model.MakeSlug(title),
		Keywords:              []string{},
		Content:               content,
		AuthorID:              userID,
		ImageFilePathList:     []string{},
		ImageSizesList:        []int{},
		CreatedTimestamp:      now,
		LastModifiedTimestamp: now,
		LastModifiedUserID:    userID,
	}
	if err := uc.deps.Stores.AdminPosts.Create(ctx, post.ID, post); err != nil {
		return nil, apperrors.WrapError(err, "failed to create post")
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": post.ID}).Info("Post created")
	uc.emit(ctx, eventbus.EventTypePostCreated, post, now)
	return post, nil
}

func (uc *PostUsecase) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	return uc.getPost(ctx, postID)
}

// ListPosts returns admin posts, most recently modified first.
func (uc *PostUsecase) ListPosts(ctx context.Context, req ListPostsRequest) ([]*model.Post, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q := model.NewQuery().
		OrderBy(model.FieldLastModifiedTimestamp, model.Descending).
		WithLimit(req.Limit).
		WithOffset(req.Offset)
	if req.Published != nil {
		q = q.Where(model.FieldPublished, model.OperatorEqual, *req.Published)
	}
	posts, err := uc.deps.Stores.AdminPosts.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list posts")
	}
	return posts, nil
}

// UpdatePost saves the editable fields of a post. The publication state and
// schedule are only changed by their dedicated operations. A published post
// is rewritten in the public store before the admin store.
func (uc *PostUsecase) UpdatePost(ctx context.Context, req UpdatePostRequest) (*model.Post, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	existing, err := uc.getPost(ctx, req.Post.ID)
	if err != nil {
		return nil, err
	}

	now := uc.deps.now()
	post := req.Post.Clone()
	post.Title = strings.TrimSpace(post.Title)
	post.Slug = model.MakeSlug(post.Title)
	post.Keywords = model.NormalizeKeywords(post.Keywords)
	post.Published = existing.Published
	post.PublishedTimestamp = existing.PublishedTimestamp
	post.ScheduledAutopublishTimestamp = existing.ScheduledAutopublishTimestamp
	post.CreatedTimestamp = existing.CreatedTimestamp
	post.ImagesUpdated = existing.ImagesUpdated
	if post.AuthorID == "" {
		post.AuthorID = existing.AuthorID
	}
	if post.ImageFilePathList == nil {
		post.ImageFilePathList = []string{}
	}
	if post.ImageSizesList == nil {
		post.ImageSizesList = []int{}
	}
	post.LastModifiedTimestamp = now
	post.LastModifiedUserID = actor(ctx)

	if post.Published {
		if err := uc.writePublic(ctx, post); err != nil {
			return nil, err
		}
	}
	if err := uc.deps.Stores.AdminPosts.Set(ctx, post.ID, post); err != nil {
		return nil, apperrors.WrapError(err, "failed to save post")
	}

	uc.emit(ctx, eventbus.EventTypePostUpdated, post, now)
	return post, nil
}

func (uc *PostUsecase) writePublic(ctx context.Context, post *model.Post) error {
	if err := uc.deps.Stores.PublicPosts.Set(ctx, post.ID, post); err != nil {
		return apperrors.NewInternalError("failed to write public post").WithCause(err)
	}
	if err := uc.deps.Stores.BlogIndex.Set(ctx, post.ID, post.IndexRef()); err != nil {
		return apperrors.NewInternalError("failed to write blog index").WithCause(err)
	}
	return nil
}

// PublishPost copies the post into the public store and marks it published.
// publishedTimestamp is set on first publication only.
func (uc *PostUsecase) PublishPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := uc.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	now := uc.deps.now()
	post.Published = true
	if post.PublishedTimestamp == nil {
		post.PublishedTimestamp = &now
	}
	post.ScheduledAutopublishTimestamp = nil
	post.LastModifiedTimestamp = now
	post.LastModifiedUserID = actor(ctx)

	if err := uc.writePublic(ctx, post); err != nil {
		uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": postID, "error": err.Error()}).Error("Publish failed")
		return nil, err
	}
	err = uc.deps.Stores.AdminPosts.Update(ctx, postID, map[string]interface{}{
		model.FieldPublished:                     true,
		model.FieldPublishedTimestamp:            *post.PublishedTimestamp,
		model.FieldScheduledAutopublishTimestamp: model.DeleteField,
		model.FieldLastModifiedTimestamp:         now,
		model.FieldLastModifiedUserID:            post.LastModifiedUserID,
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to mark post published").WithCause(err)
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": postID}).Info("Post published")
	uc.emit(ctx, eventbus.EventTypePostPublished, post, now)
	return post, nil
}

// UnpublishPost removes the public copies and marks the admin post unpublished.
func (uc *PostUsecase) UnpublishPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := uc.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := uc.deletePublic(ctx, postID); err != nil {
		return nil, err
	}

	now := uc.deps.now()
	post.Published = false
	post.LastModifiedTimestamp = now
	post.LastModifiedUserID = actor(ctx)
	err = uc.deps.Stores.AdminPosts.Update(ctx, postID, map[string]interface{}{
		model.FieldPublished:             false,
		model.FieldLastModifiedTimestamp: now,
		model.FieldLastModifiedUserID:    post.LastModifiedUserID,
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to mark post unpublished").WithCause(err)
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": postID}).Info("Post unpublished")
	uc.emit(ctx, eventbus.EventTypePostUnpublished, post, now)
	return post, nil
}

func (uc *PostUsecase) deletePublic(ctx context.Context, postID string) error {
	if err := uc.deps.Stores.PublicPosts.Delete(ctx, postID); err != nil {
		return apperrors.NewInternalError("failed to delete public post").WithCause(err)
	}
	if err := uc.deps.Stores.BlogIndex.Delete(ctx, postID); err != nil {
		return apperrors.NewInternalError("failed to delete blog index entry").WithCause(err)
	}
	return nil
}

// DeletePost removes the post from both stores and deletes its images.
func (uc *PostUsecase) DeletePost(ctx context.Context, postID string) error {
	post, err := uc.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Published {
		if err := uc.deletePublic(ctx, postID); err != nil {
			return err
		}
	}
	if err := uc.deps.Stores.AdminPosts.Delete(ctx, postID); err != nil {
		return apperrors.WrapError(err, "failed to delete post")
	}

	log := uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": postID})
	if uc.deps.Storage != nil {
		if n, err := uc.deps.Storage.DeletePrefix(ctx, postFolder(postID)); err != nil {
			log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Post deleted but its images were not")
		} else {
			log.WithFields(map[string]interface{}{"images_deleted": n}).Debug("Post images deleted")
		}
	}
	log.Info("Post deleted")
	uc.emit(ctx, eventbus.EventTypePostDeleted, post, uc.deps.now())
	return nil
}

// SchedulePost sets the time an unpublished post is published automatically.
func (uc *PostUsecase) SchedulePost(ctx context.Context, req SchedulePostRequest) (*model.Post, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	now := uc.deps.now()
	at := req.ScheduledAutopublishTimestamp.UTC().Truncate(time.Millisecond)
	if !at.After(now) {
		return nil, apperrors.NewValidationError("scheduledAutopublishTimestamp must be in the future")
	}

	post, err := uc.getPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if post.Published {
		return nil, apperrors.NewPreconditionError("post is already published")
	}

	post.ScheduledAutopublishTimestamp = &at
	post.LastModifiedTimestamp = now
	post.LastModifiedUserID = actor(ctx)
	err = uc.deps.Stores.AdminPosts.Update(ctx, post.ID, map[string]interface{}{
		model.FieldScheduledAutopublishTimestamp: at,
		model.FieldLastModifiedTimestamp:         now,
		model.FieldLastModifiedUserID:            post.LastModifiedUserID,
	})
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to schedule post")
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": post.ID, "at": at}).Info("Post scheduled")
	uc.emit(ctx, eventbus.EventTypePostScheduled, post, now)
	return post, nil
}

func (uc *PostUsecase) CancelScheduledPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := uc.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	now := uc.deps.now()
	post.ScheduledAutopublishTimestamp = nil
	post.LastModifiedTimestamp = now
	post.LastModifiedUserID = actor(ctx)
	err = uc.deps.Stores.AdminPosts.Update(ctx, postID, map[string]interface{}{
		model.FieldScheduledAutopublishTimestamp: model.DeleteField,
		model.FieldLastModifiedTimestamp:         now,
		model.FieldLastModifiedUserID:            post.LastModifiedUserID,
	})
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to cancel scheduled post")
	}
	uc.emit(ctx, eventbus.EventTypePostUpdated, post, now)
	return post, nil
}

// SyncPublishedPosts rewrites every published admin post and its index entry
// into the public store, and removes public posts that are no longer published.
func (uc *PostUsecase) SyncPublishedPosts(ctx context.Context) (*SyncResult, error) {
	published, err := uc.deps.Stores.AdminPosts.Find(ctx, model.NewQuery().Where(model.FieldPublished, model.OperatorEqual, true))
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read published posts")
	}

	keep := make(map[string]struct{}, len(published))
	postOps := make([]model.BatchOperation[model.Post], 0, len(published))
	refOps := make([]model.BatchOperation[model.BlogIndexRef], 0, len(published))
	for _, p := range published {
		keep[p.ID] = struct{}{}
		postOps = append(postOps, model.SetOp(p.ID, p))
		refOps = append(refOps, model.SetOp(p.ID, p.IndexRef()))
	}

	public, err := uc.deps.Stores.PublicPosts.Find(ctx, model.NewQuery())
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read public posts")
	}
	removed := 0
	for _, p := range public {
		if _, ok := keep[p.ID]; !ok {
			postOps = append(postOps, model.DeleteOp[model.Post](p.ID))
			refOps = append(refOps, model.DeleteOp[model.BlogIndexRef](p.ID))
			removed++
		}
	}

	result := &SyncResult{Removed: removed}
	if result.Posts, err = uc.deps.Stores.PublicPosts.BatchWrite(ctx, postOps); err != nil {
		return nil, apperrors.NewInternalError("failed to sync public posts").WithCause(err).WithDetail("written", result.Posts)
	}
	if result.IndexRefs, err = uc.deps.Stores.BlogIndex.BatchWrite(ctx, refOps); err != nil {
		return nil, apperrors.NewInternalError("failed to sync blog index").WithCause(err).WithDetail("written", result.IndexRefs)
	}
	result.Posts -= removed
	result.IndexRefs -= removed

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"posts":      result.Posts,
		"index_refs": result.IndexRefs,
		"removed":    removed,
	}).Info("Published posts synced")
	return result, nil
}
