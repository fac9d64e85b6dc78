package usecase

import (
	"context"
	"reflect"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"
)

// MaintenanceUsecaseInterface backs up and migrates admin posts.
type MaintenanceUsecaseInterface interface {
	BackupPostCollection(ctx context.Context) (*BackupResult, error)
	MigratePostData(ctx context.Context) (*MigrationResult, error)
}

type MaintenanceUsecase struct {
	deps Dependencies
	log  logger.Logger
}

var _ MaintenanceUsecaseInterface = (*MaintenanceUsecase)(nil)

func NewMaintenanceUsecase(deps Dependencies) *MaintenanceUsecase {
	deps = deps.withDefaults()
	return &MaintenanceUsecase{deps: deps, log: deps.Logger.WithComponent("maintenance")}
}

// BackupPostCollection copies every admin post into a new timestamped collection.
func (uc *MaintenanceUsecase) BackupPostCollection(ctx context.Context) (*BackupResult, error) {
	posts, err := uc.deps.Stores.AdminPosts.Find(ctx, model.NewQuery())
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read posts")
	}

	name := model.BackupCollectionName(uc.deps.Clock())
	ops := make([]model.BatchOperation[model.Post], 0, len(posts))
	for _, p := range posts {
		ops = append(ops, model.SetOp(p.ID, p))
	}
	written, err := uc.deps.Stores.OpenAdmin(name).BatchWrite(ctx, ops)
	if err != nil {
		return nil, apperrors.NewInternalError("post backup incomplete").WithCause(err).
			WithDetail("collection", name).WithDetail("written", written)
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"collection": name, "count": written}).Info("Posts backed up")
	return &BackupResult{Collection: name, Count: written}, nil
}

// MigratePostData fills slugs and creation times missing from legacy posts and
// normalises keywords. Only posts that change are written.
func (uc *MaintenanceUsecase) MigratePostData(ctx context.Context) (*MigrationResult, error) {
	posts, err := uc.deps.Stores.AdminPosts.Find(ctx, model.NewQuery())
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read posts")
	}

	var ops []model.BatchOperation[model.Post]
	for _, p := range posts {
		if fields := migrationFields(p); len(fields) > 0 {
			ops = append(ops, model.UpdateOp[model.Post](p.ID, fields))
		}
	}

	written, err := uc.deps.Stores.AdminPosts.BatchWrite(ctx, ops)
	if err != nil {
		return nil, apperrors.NewInternalError("post migration incomplete").WithCause(err).WithDetail("written", written)
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"scanned": len(posts), "updated": written}).Info("Post data migrated")
	return &MigrationResult{Scanned: len(posts), Updated: written}, nil
}

func migrationFields(p *model.Post) map[string]interface{} {
	fields := map[string]interface{}{}
	if p.Slug == "" && p.Title != "" {
		fields[model.FieldSlug] = model.MakeSlug(p.Title)
	}
	if p.CreatedTimestamp.IsZero() && !p.LastModifiedTimestamp.IsZero() {
		fields[model.FieldCreatedTimestamp] = p.LastModifiedTimestamp
	}
	if keywords := model.NormalizeKeywords(p.Keywords); !reflect.DeepEqual(keywords, p.Keywords) && !(len(keywords) == 0 && len(p.Keywords) == 0) {
		fields[model.FieldKeywords] = keywords
	}
	return fields
}
