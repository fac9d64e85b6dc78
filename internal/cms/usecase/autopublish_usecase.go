package usecase

import (
	"context"
	"sort"
	"time"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"
)

const (
	// AutopublishActor is recorded on posts published by the sweep.
	AutopublishActor = "system:autopublish"
	autopublishLock  = "autopublish-sweep"
)

// AutopublishUsecaseInterface publishes posts whose schedule has come due.
type AutopublishUsecaseInterface interface {
	RunSweep(ctx context.Context, now time.Time) (*SweepResult, error)
	RunExclusive(ctx context.Context) (*SweepResult, bool, error)
}

type AutopublishUsecase struct {
	deps  Dependencies
	posts *PostUsecase
	log   logger.Logger
}

var _ AutopublishUsecaseInterface = (*AutopublishUsecase)(nil)

func NewAutopublishUsecase(deps Dependencies, posts *PostUsecase) *AutopublishUsecase {
	deps = deps.withDefaults()
	return &AutopublishUsecase{deps: deps, posts: posts, log: deps.Logger.WithComponent("autopublish")}
}

// RunSweep publishes every unpublished post scheduled at or before now. A
// failing post does not stop the sweep; its error is reported in Failed.
func (uc *AutopublishUsecase) RunSweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	q := model.NewQuery().
		Where(model.FieldPublished, model.OperatorEqual, false).
		Where(model.FieldScheduledAutopublishTimestamp, model.OperatorLessThanOrEqual, now.UTC()).
		OrderBy(model.FieldScheduledAutopublishTimestamp, model.Ascending)
	due, err := uc.deps.Stores.AdminPosts.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to query scheduled posts")
	}

	ctx = utils.WithUserID(ctx, AutopublishActor)
	result := &SweepResult{Published: []string{}, Failed: map[string]string{}}
	for _, post := range due {
		if !post.IsScheduledBefore(now) {
			continue
		}
		log := uc.log.WithContext(ctx).WithFields(map[string]interface{}{"post_id": post.ID})
		if _, err := uc.posts.PublishPost(ctx, post.ID); err != nil {
			log.WithFields(map[string]interface{}{"error": err.Error()}).Error("Scheduled publish failed")
			result.Failed[post.ID] = err.Error()
			continue
		}
		log.Info("Scheduled post published")
		result.Published = append(result.Published, post.ID)
	}
	sort.Strings(result.Published)

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"due":       len(due),
		"published": len(result.Published),
		"failed":    len(result.Failed),
	}).Info("Autopublish sweep finished")
	return result, nil
}

// RunExclusive runs a sweep while holding the cross-replica lock. It reports
// false without sweeping when another replica holds the lock.
func (uc *AutopublishUsecase) RunExclusive(ctx context.Context) (*SweepResult, bool, error) {
	if uc.deps.Locker == nil {
		res, err := uc.RunSweep(ctx, uc.deps.Clock())
		return res, err == nil, err
	}

	release, ok, err := uc.deps.Locker.Acquire(ctx, autopublishLock, uc.deps.Settings.LockTTL)
	if err != nil {
		return nil, false, apperrors.NewUnavailableError("failed to acquire autopublish lock").WithCause(err)
	}
	if !ok {
		uc.log.WithContext(ctx).Debug("Autopublish sweep already running elsewhere")
		return nil, false, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			uc.log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Failed to release autopublish lock")
		}
	}()

	res, err := uc.RunSweep(ctx, uc.deps.Clock())
	if err != nil {
		return nil, true, err
	}
	return res, true, nil
}

// Start runs RunExclusive every interval until ctx is done. A zero interval
// disables the ticker.
func (uc *AutopublishUsecase) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	uc.log.WithFields(map[string]interface{}{"interval": interval.String()}).Info("Autopublish ticker started")
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, _, err := uc.RunExclusive(ctx); err != nil {
					uc.log.WithFields(map[string]interface{}{"error": err.Error()}).Error("Autopublish sweep failed")
				}
			}
		}
	}()
}
