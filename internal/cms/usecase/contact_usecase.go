package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/validation"

	"github.com/google/uuid"
)

// ContactUsecaseInterface manages contact form submissions.
type ContactUsecaseInterface interface {
	ListContactForms(ctx context.Context, req ListContactFormsRequest) ([]*model.ContactForm, error)
	GetContactForm(ctx context.Context, id string) (*model.ContactForm, error)
	MarkContactFormRead(ctx context.Context, req MarkContactFormReadRequest) (*model.ContactForm, error)
	DeleteContactForm(ctx context.Context, id string) error
	SubmitContactForm(ctx context.Context, req SubmitContactFormRequest) (*model.ContactForm, error)
	HandleContactFormCreated(ctx context.Context, payload []byte) error
}

type ContactUsecase struct {
	deps Dependencies
	log  logger.Logger
}

var _ ContactUsecaseInterface = (*ContactUsecase)(nil)

func NewContactUsecase(deps Dependencies) *ContactUsecase {
	deps = deps.withDefaults()
	return &ContactUsecase{deps: deps, log: deps.Logger.WithComponent("contact_usecase")}
}

// ListContactForms returns submissions, newest first.
func (uc *ContactUsecase) ListContactForms(ctx context.Context, req ListContactFormsRequest) ([]*model.ContactForm, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q := model.NewQuery().OrderBy(model.FieldCreatedTimestamp, model.Descending).WithLimit(req.Limit).WithOffset(req.Offset)
	if req.Read != nil {
		q = q.Where(model.FieldRead, model.OperatorEqual, *req.Read)
	}
	forms, err := uc.deps.Stores.ContactForms.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list contact forms")
	}
	return forms, nil
}

func (uc *ContactUsecase) GetContactForm(ctx context.Context, id string) (*model.ContactForm, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id is required")
	}
	form, err := uc.deps.Stores.ContactForms.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("contact form").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to read contact form")
	}
	return form, nil
}

// MarkContactFormRead sets the read flag, true unless req.Read says otherwise.
func (uc *ContactUsecase) MarkContactFormRead(ctx context.Context, req MarkContactFormReadRequest) (*model.ContactForm, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	form, err := uc.GetContactForm(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	form.Read = req.Read == nil || *req.Read
	if err := uc.deps.Stores.ContactForms.Update(ctx, form.ID, map[string]interface{}{model.FieldRead: form.Read}); err != nil {
		return nil, apperrors.WrapError(err, "failed to update contact form")
	}
	return form, nil
}

func (uc *ContactUsecase) DeleteContactForm(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("id is required")
	}
	if err := uc.deps.Stores.ContactForms.Delete(ctx, id); err != nil {
		return apperrors.WrapError(err, "failed to delete contact form")
	}
	return nil
}

// SubmitContactForm stores a submission from the public site and announces it
// on the contact-form-created topic.
func (uc *ContactUsecase) SubmitContactForm(ctx context.Context, req SubmitContactFormRequest) (*model.ContactForm, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	form := &model.ContactForm{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.TrimSpace(req.Email),
		Message:          strings.TrimSpace(req.Message),
		OptInSubscriber:  req.OptInSubscriber,
		CreatedTimestamp: uc.deps.now(),
	}
	if err := uc.deps.Stores.ContactForms.Create(ctx, form.ID, form); err != nil {
		return nil, apperrors.WrapError(err, "failed to save contact form")
	}

	uc.deps.publish(ctx, eventbus.EventTypeContactFormCreated, form, "contact")
	if uc.deps.Topics != nil {
		if err := uc.deps.Topics.Publish(ctx, repository.TopicContactFormCreated, form); err != nil {
			uc.log.WithContext(ctx).WithFields(map[string]interface{}{"form_id": form.ID, "error": err.Error()}).Error("Failed to announce contact form")
		}
	}
	return form, nil
}

// HandleContactFormCreated notifies the site admin of a submission and, when
// the sender opted in, subscribes them. Malformed messages are dropped.
func (uc *ContactUsecase) HandleContactFormCreated(ctx context.Context, payload []byte) error {
	var form model.ContactForm
	if err := json.Unmarshal(payload, &form); err != nil || form.ID == "" {
		uc.log.WithFields(map[string]interface{}{"payload": string(payload)}).Error("Dropping malformed contact-form-created message")
		return nil
	}
	log := uc.log.WithContext(ctx).WithFields(map[string]interface{}{"form_id": form.ID})

	if admin := uc.deps.Settings.AdminEmail; admin != "" && uc.deps.Email != nil {
		msg := &repository.EmailMessage{
			ToEmail:     admin,
			Subject:     fmt.Sprintf("New contact form submission from %s", form.Name),
			TextContent: fmt.Sprintf("Name: %s\nEmail: %s\nSubscribe: %t\n\n%s", form.Name, form.Email, form.OptInSubscriber, form.Message),
			HTMLContent: fmt.Sprintf("<p><strong>Name:</strong> %s<br><strong>Email:</strong> %s<br><strong>Subscribe:</strong> %t</p><p>%s</p>",
				html.EscapeString(form.Name), html.EscapeString(form.Email), form.OptInSubscriber,
				strings.ReplaceAll(html.EscapeString(form.Message), "\n", "<br>")),
			ReplyTo: form.Email,
		}
		if err := uc.deps.Email.Send(ctx, msg); err != nil {
			return err
		}
		log.Info("Contact form notification sent")
	}

	if form.OptInSubscriber && validation.Email(form.Email) {
		firstName := strings.Fields(form.Name)
		name := ""
		if len(firstName) > 0 {
			name = firstName[0]
		}
		if _, _, err := upsertSubscriber(ctx, uc.deps, form.Email, name, model.SubSourceContactForm); err != nil {
			return err
		}
		log.Info("Contact form sender subscribed")
	}
	return nil
}
