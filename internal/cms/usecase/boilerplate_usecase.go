package usecase

import (
	"context"
	"strings"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/validation"

	"github.com/google/uuid"
)

// BoilerplateUsecaseInterface manages reusable post content.
type BoilerplateUsecaseInterface interface {
	SavePostBoilerplate(ctx context.Context, req SaveBoilerplateRequest) (*model.PostBoilerplate, error)
	GetPostBoilerplate(ctx context.Context, id string) (*model.PostBoilerplate, error)
	ListPostBoilerplates(ctx context.Context, req PageRequest) ([]*model.PostBoilerplate, error)
	DeletePostBoilerplate(ctx context.Context, id string) error
}

type BoilerplateUsecase struct {
	deps Dependencies
}

var _ BoilerplateUsecaseInterface = (*BoilerplateUsecase)(nil)

func NewBoilerplateUsecase(deps Dependencies) *BoilerplateUsecase {
	return &BoilerplateUsecase{deps: deps.withDefaults()}
}

// SavePostBoilerplate creates a boilerplate when req.ID is empty or unknown and
// overwrites it otherwise.
func (uc *BoilerplateUsecase) SavePostBoilerplate(ctx context.Context, req SaveBoilerplateRequest) (*model.PostBoilerplate, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	now := uc.deps.now()
	bp := &model.PostBoilerplate{
		ID:                    strings.TrimSpace(req.ID),
		Name:                  strings.TrimSpace(req.Name),
		Content:               req.Content,
		CreatedTimestamp:      now,
		LastModifiedTimestamp: now,
		LastModifiedUserID:    actor(ctx),
	}
	if bp.ID == "" {
		bp.ID = uuid.NewString()
	} else {
		existing, err := uc.deps.Stores.Boilerplates.Get(ctx, bp.ID)
		switch {
		case err == nil:
			bp.CreatedTimestamp = existing.CreatedTimestamp
		case !apperrors.IsNotFound(err):
			return nil, apperrors.WrapError(err, "failed to read post boilerplate")
		}
	}

	if err := uc.deps.Stores.Boilerplates.Set(ctx, bp.ID, bp); err != nil {
		return nil, apperrors.WrapError(err, "failed to save post boilerplate")
	}
	return bp, nil
}

func (uc *BoilerplateUsecase) GetPostBoilerplate(ctx context.Context, id string) (*model.PostBoilerplate, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id is required")
	}
	bp, err := uc.deps.Stores.Boilerplates.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("post boilerplate").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to read post boilerplate")
	}
	return bp, nil
}

// ListPostBoilerplates returns boilerplates ordered by name.
func (uc *BoilerplateUsecase) ListPostBoilerplates(ctx context.Context, req PageRequest) ([]*model.PostBoilerplate, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q := model.NewQuery().OrderBy(model.FieldName, model.Ascending).WithLimit(req.Limit).WithOffset(req.Offset)
	bps, err := uc.deps.Stores.Boilerplates.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list post boilerplates")
	}
	return bps, nil
}

func (uc *BoilerplateUsecase) DeletePostBoilerplate(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("id is required")
	}
	if err := uc.deps.Stores.Boilerplates.Delete(ctx, id); err != nil {
		return apperrors.WrapError(err, "failed to delete post boilerplate")
	}
	return nil
}
