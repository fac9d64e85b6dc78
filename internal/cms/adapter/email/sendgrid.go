package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blog-cms/internal/cms/domain/model"
	"blog-cms/internal/cms/domain/repository"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker"
)

const (
	defaultHost      = "https://api.sendgrid.com"
	mailSendEndpoint = "/v3/mail/send"
	contactsEndpoint = "/v3/marketing/contacts"
	sendgridTimeout  = 30 * time.Second
	breakerName      = "sendgrid"
)

// SendgridConfig configures the SendGrid client.
type SendgridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	ListID    string
	// Host overrides the API host, used by tests.
	Host string
}

// SendgridClient sends transactional mail and manages marketing contacts
// through the SendGrid v3 API. Every call goes through one circuit breaker.
type SendgridClient struct {
	cfg     SendgridConfig
	from    *mail.Email
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
}

var (
	_ repository.EmailSender       = (*SendgridClient)(nil)
	_ repository.MarketingContacts = (*SendgridClient)(nil)
)

// NewSendgridClient creates a client for cfg.
func NewSendgridClient(cfg SendgridConfig, log logger.Logger) (*SendgridClient, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, errors.New("invalid SendGrid configuration")
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	return &SendgridClient{
		cfg:  cfg,
		from: mail.NewEmail(cfg.FromName, cfg.FromEmail),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}),
		log: log.WithComponent("sendgrid"),
	}, nil
}

// Send delivers msg through the mail send endpoint.
func (c *SendgridClient) Send(ctx context.Context, msg *repository.EmailMessage) error {
	m := mail.NewV3Mail()
	m.SetFrom(c.from)
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.ToEmail))
	p.Subject = msg.Subject
	m.AddPersonalizations(p)
	if msg.TextContent != "" {
		m.AddContent(mail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTMLContent))
	}
	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	_, err := c.call(ctx, http.MethodPost, mailSendEndpoint, mail.GetRequestBody(m), nil)
	if err != nil {
		return err
	}
	c.log.WithContext(ctx).WithFields(map[string]interface{}{"to": msg.ToEmail, "subject": msg.Subject}).Info("Email sent")
	return nil
}

type contactRequest struct {
	ListIDs  []string  `json:"list_ids,omitempty"`
	Contacts []contact `json:"contacts"`
}

type contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

// UpsertContact adds sub to the configured list. SendGrid processes contacts
// asynchronously, so the returned reference is the import job ID.
func (c *SendgridClient) UpsertContact(ctx context.Context, sub *model.EmailSubscriber) (string, error) {
	req := contactRequest{Contacts: []contact{{Email: sub.Email, FirstName: sub.FirstName}}}
	if c.cfg.ListID != "" {
		req.ListIDs = []string{c.cfg.ListID}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode contact: %w", err)
	}

	resBody, err := c.call(ctx, http.MethodPut, contactsEndpoint, body, nil)
	if err != nil {
		return "", err
	}
	var job jobResponse
	if err := json.Unmarshal([]byte(resBody), &job); err != nil {
		return "", apperrors.NewInfrastructureError("unexpected SendGrid contacts response").WithCause(err)
	}
	return job.JobID, nil
}

// DeleteContact removes a marketing contact by its SendGrid ID.
func (c *SendgridClient) DeleteContact(ctx context.Context, contactID string) error {
	if contactID == "" {
		return nil
	}
	_, err := c.call(ctx, http.MethodDelete, contactsEndpoint, nil, map[string]string{"ids": contactID})
	return err
}

func (c *SendgridClient) call(ctx context.Context, method, endpoint string, body []byte, query map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, sendgridTimeout)
	defer cancel()

	res, err := c.breaker.Execute(func() (interface{}, error) {
		req := sendgrid.GetRequest(c.cfg.APIKey, endpoint, c.cfg.Host)
		req.Method = rest.Method(method)
		req.Body = body
		req.QueryParams = query
		response, err := sendgrid.MakeRequestWithContext(ctx, req)
		if err != nil {
			return nil, err
		}
		if response.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("sendgrid %s %s: status %d: %s", method, endpoint, response.StatusCode, response.Body)
		}
		return response.Body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", apperrors.NewUnavailableError("email provider temporarily unavailable").WithCause(err)
		}
		c.log.WithContext(ctx).WithFields(map[string]interface{}{"endpoint": endpoint, "error": err.Error()}).Error("SendGrid request failed")
		return "", apperrors.NewInfrastructureError("email provider request failed").WithCause(err)
	}
	return res.(string), nil
}

// State reports the circuit breaker state.
func (c *SendgridClient) State() gobreaker.State {
	return c.breaker.State()
}
