package email

import (
	"context"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	"blog-cms/internal/shared/logger"

	"github.com/google/uuid"
)

// LogMailer stands in for SendGrid when no API key is configured: messages and
// contact changes are written to the log.
type LogMailer struct {
	log logger.Logger
}

var (
	_ repository.EmailSender       = (*LogMailer)(nil)
	_ repository.MarketingContacts = (*LogMailer)(nil)
)

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{log: log.WithComponent("log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg *repository.EmailMessage) error {
	m.log.WithContext(ctx).WithFields(map[string]interface{}{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
		"text":    msg.TextContent,
	}).Info("Email not sent, SendGrid disabled")
	return nil
}

func (m *LogMailer) UpsertContact(ctx context.Context, sub *model.EmailSubscriber) (string, error) {
	ref := "local-" + uuid.NewString()
	m.log.WithContext(ctx).WithFields(map[string]interface{}{"email": sub.Email, "ref": ref}).Info("Contact upsert logged")
	return ref, nil
}

func (m *LogMailer) DeleteContact(ctx context.Context, contactID string) error {
	m.log.WithContext(ctx).WithFields(map[string]interface{}{"contact_id": contactID}).Info("Contact delete logged")
	return nil
}
