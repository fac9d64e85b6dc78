package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"blog-cms/internal/cms/adapter/tabular"
	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/validation"
)

// SubscriberUsecaseInterface manages the email subscriber list.
type SubscriberUsecaseInterface interface {
	ListSubscribers(ctx context.Context, req ListSubscribersRequest) ([]*model.EmailSubscriber, error)
	GetSubscriber(ctx context.Context, id string) (*model.EmailSubscriber, error)
	DeleteSubscriber(ctx context.Context, id string) error
	ExportSubscribers(ctx context.Context, req ExportRequest) (*ExportFile, error)
	ImportSubscribers(ctx context.Context, req ImportRequest) (*ImportResult, error)
	Subscribe(ctx context.Context, req SubscribeRequest) (*model.EmailSubscriber, error)
	HandleSubscriberCreated(ctx context.Context, payload []byte) error
}

type SubscriberUsecase struct {
	deps Dependencies
	log  logger.Logger
}

var _ SubscriberUsecaseInterface = (*SubscriberUsecase)(nil)

func NewSubscriberUsecase(deps Dependencies) *SubscriberUsecase {
	deps = deps.withDefaults()
	return &SubscriberUsecase{deps: deps, log: deps.Logger.WithComponent("subscriber_usecase")}
}

var subscriberExporter = exporter[model.EmailSubscriber]{
	name:     "subscribers",
	variable: "subscriber",
	header:   []string{"email", "firstName", "lastSubSource", "subscriptionSources", "optInConfirmed", "optInTimestamp", "unsubscribed", "createdTimestamp"},
	row: func(s *model.EmailSubscriber) []string {
		return []string{
			s.Email, s.FirstName, s.LastSubSource, strings.Join(s.SubscriptionSources, ";"),
			formatBool(s.OptInConfirmed), formatTimePtr(s.OptInTimestamp),
			formatBool(s.Unsubscribed), formatTime(s.CreatedTimestamp),
		}
	},
}

// ListSubscribers returns subscribers, newest first.
func (uc *SubscriberUsecase) ListSubscribers(ctx context.Context, req ListSubscribersRequest) ([]*model.EmailSubscriber, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q := model.NewQuery().OrderBy(model.FieldCreatedTimestamp, model.Descending).WithLimit(req.Limit).WithOffset(req.Offset)
	if req.OptInConfirmed != nil {
		q = q.Where(model.FieldOptInConfirmed, model.OperatorEqual, *req.OptInConfirmed)
	}
	subs, err := uc.deps.Stores.Subscribers.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list subscribers")
	}
	return subs, nil
}

func (uc *SubscriberUsecase) GetSubscriber(ctx context.Context, id string) (*model.EmailSubscriber, error) {
	id = model.SubscriberID(id)
	if id == "" {
		return nil, apperrors.NewValidationError("id is required")
	}
	sub, err := uc.deps.Stores.Subscribers.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("subscriber").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to read subscriber")
	}
	return sub, nil
}

// DeleteSubscriber removes the subscriber and its marketing contact.
func (uc *SubscriberUsecase) DeleteSubscriber(ctx context.Context, id string) error {
	sub, err := uc.GetSubscriber(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if sub.SendgridContactID != "" && uc.deps.Contacts != nil {
		if err := uc.deps.Contacts.DeleteContact(ctx, sub.SendgridContactID); err != nil {
			return err
		}
	}
	if err := uc.deps.Stores.Subscribers.Delete(ctx, sub.ID); err != nil {
		return apperrors.WrapError(err, "failed to delete subscriber")
	}
	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"subscriber_id": sub.ID}).Info("Subscriber deleted")
	return nil
}

// ExportSubscribers exports subscribers matching req.Filter, a CEL expression
// over the variable subscriber.
func (uc *SubscriberUsecase) ExportSubscribers(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	subs, err := uc.deps.Stores.Subscribers.Find(ctx, model.NewQuery().OrderBy(model.FieldCreatedTimestamp, model.Ascending))
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read subscribers")
	}
	for _, s := range subs {
		if s.SubscriptionSources == nil {
			s.SubscriptionSources = []string{}
		}
	}
	return subscriberExporter.export(req, subs, uc.deps.now())
}

// Subscribe adds or refreshes a subscriber from the public signup form.
func (uc *SubscriberUsecase) Subscribe(ctx context.Context, req SubscribeRequest) (*model.EmailSubscriber, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	source := req.Source
	if source == "" {
		source = model.SubSourceBlog
	}
	sub, _, err := upsertSubscriber(ctx, uc.deps, req.Email, req.FirstName, source)
	return sub, err
}

// upsertSubscriber records source on the subscriber for email, creating it when
// missing. New subscribers are announced on the subscriber-created topic.
func upsertSubscriber(ctx context.Context, deps Dependencies, email, firstName, source string) (*model.EmailSubscriber, bool, error) {
	id := model.SubscriberID(email)
	now := deps.now()

	sub, err := deps.Stores.Subscribers.Get(ctx, id)
	created := false
	switch {
	case err == nil:
	case apperrors.IsNotFound(err):
		created = true
		sub = &model.EmailSubscriber{ID: id, Email: id, CreatedTimestamp: now}
	default:
		return nil, false, apperrors.WrapError(err, "failed to read subscriber")
	}

	if sub.FirstName == "" {
		sub.FirstName = strings.TrimSpace(firstName)
	}
	sub.AddSource(source)
	sub.Unsubscribed = false
	sub.LastModifiedTimestamp = now
	if err := deps.Stores.Subscribers.Set(ctx, id, sub); err != nil {
		return nil, false, apperrors.WrapError(err, "failed to save subscriber")
	}

	if created {
		announceSubscriber(ctx, deps, sub)
	}
	return sub, created, nil
}

func announceSubscriber(ctx context.Context, deps Dependencies, sub *model.EmailSubscriber) {
	deps.publish(ctx, eventbus.EventTypeSubscriberCreated, sub, "subscribers")
	if deps.Topics == nil {
		return
	}
	if err := deps.Topics.Publish(ctx, repository.TopicSubscriberCreated, sub); err != nil {
		deps.Logger.WithContext(ctx).WithFields(map[string]interface{}{
			"subscriber_id": sub.ID,
			"error":         err.Error(),
		}).Error("Failed to announce new subscriber")
	}
}

// ImportSubscribers upserts the rows of a CSV or XLSX file with columns email,
// firstName and source (plus optional optInConfirmed). Invalid and repeated
// emails are skipped and reported.
func (uc *SubscriberUsecase) ImportSubscribers(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	format, err := tabular.FormatFromFilename(req.FileName)
	if err != nil {
		return nil, err
	}
	table, err := tabular.Decode(format, req.Data)
	if err != nil {
		return nil, err
	}
	emailCol := table.Column("email")
	if emailCol < 0 {
		return nil, apperrors.NewValidationError("missing email column")
	}
	firstNameCol := table.Column("firstName")
	sourceCol := table.Column("source")
	optInCol := table.Column("optInConfirmed")

	result := &ImportResult{Skipped: []SkippedRow{}}
	type row struct {
		email, firstName, source string
		optIn                    bool
	}
	rows := make(map[string]row, len(table.Rows))
	order := make([]string, 0, len(table.Rows))
	for i, r := range table.Rows {
		line := table.Line(i)
		email := tabular.Value(r, emailCol)
		if !validation.Email(email) {
			result.Skipped = append(result.Skipped, SkippedRow{Row: line, Value: email, Reason: "invalid email"})
			continue
		}
		id := model.SubscriberID(email)
		if _, dup := rows[id]; dup {
			result.Skipped = append(result.Skipped, SkippedRow{Row: line, Value: email, Reason: "duplicate email"})
			continue
		}
		source := tabular.Value(r, sourceCol)
		if source == "" {
			source = model.SubSourceImport
		}
		rows[id] = row{email: id, firstName: tabular.Value(r, firstNameCol), source: source, optIn: parseBool(tabular.Value(r, optInCol))}
		order = append(order, id)
	}

	existing, err := uc.findByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	now := uc.deps.now()
	ops := make([]model.BatchOperation[model.EmailSubscriber], 0, len(order))
	var fresh []*model.EmailSubscriber
	for _, id := range order {
		r := rows[id]
		sub, ok := existing[id]
		if ok {
			result.Updated++
		} else {
			result.Created++
			sub = &model.EmailSubscriber{ID: id, Email: r.email, CreatedTimestamp: now}
			fresh = append(fresh, sub)
		}
		if sub.FirstName == "" {
			sub.FirstName = r.firstName
		}
		if r.optIn && !sub.OptInConfirmed {
			sub.OptInConfirmed = true
			sub.OptInTimestamp = &now
		}
		sub.AddSource(r.source)
		sub.LastModifiedTimestamp = now
		ops = append(ops, model.SetOp(id, sub))
	}

	result.Written, err = uc.deps.Stores.Subscribers.BatchWrite(ctx, ops)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to write subscribers").WithCause(err).WithDetail("written", result.Written)
	}
	for _, sub := range fresh {
		announceSubscriber(ctx, uc.deps, sub)
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"file":    req.FileName,
		"created": result.Created,
		"updated": result.Updated,
		"skipped": len(result.Skipped),
	}).Info("Subscribers imported")
	return result, nil
}

func (uc *SubscriberUsecase) findByIDs(ctx context.Context, ids []string) (map[string]*model.EmailSubscriber, error) {
	found := make(map[string]*model.EmailSubscriber, len(ids))
	for start := 0; start < len(ids); start += model.MaxBatchSize {
		end := min(start+model.MaxBatchSize, len(ids))
		subs, err := uc.deps.Stores.Subscribers.Find(ctx, model.NewQuery().Where(model.FieldID, model.OperatorIn, ids[start:end]))
		if err != nil {
			return nil, apperrors.WrapError(err, "failed to read existing subscribers")
		}
		for _, s := range subs {
			found[s.ID] = s
		}
	}
	return found, nil
}

// HandleSubscriberCreated registers a new subscriber as a marketing contact and
// stores the provider reference. Malformed messages are dropped.
func (uc *SubscriberUsecase) HandleSubscriberCreated(ctx context.Context, payload []byte) error {
	var msg model.EmailSubscriber
	if err := json.Unmarshal(payload, &msg); err != nil || msg.ID == "" {
		uc.log.WithFields(map[string]interface{}{"payload": string(payload)}).Error("Dropping malformed subscriber-created message")
		return nil
	}

	sub, err := uc.deps.Stores.Subscribers.Get(ctx, msg.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return apperrors.WrapError(err, "failed to read subscriber")
	}
	if sub.Unsubscribed {
		return nil
	}

	ref, err := uc.deps.Contacts.UpsertContact(ctx, sub)
	if err != nil {
		return err
	}
	err = uc.deps.Stores.Subscribers.Update(ctx, sub.ID, map[string]interface{}{
		model.FieldSendgridContactID:     ref,
		model.FieldLastModifiedTimestamp: uc.deps.now(),
	})
	if err != nil {
		return apperrors.WrapError(err, "failed to store contact reference")
	}
	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"subscriber_id": sub.ID, "contact_ref": ref}).Info("Subscriber synced to marketing contacts")
	return nil
}
