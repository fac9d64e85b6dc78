package scheduler

import (
	"context"
	"strings"

	"blog-cms/internal/cms/domain/repository"
	apperrors "blog-cms/internal/shared/errors"

	"google.golang.org/api/idtoken"
)

// ValidateFunc checks a Google-signed ID token for audience.
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// OIDCVerifier authenticates the job scheduler by the ID token it attaches to
// each request.
type OIDCVerifier struct {
	audience       string
	serviceAccount string
	validate       ValidateFunc
}

var _ repository.SchedulerTokenVerifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier accepts tokens issued for audience. When serviceAccount is
// set the token email must match it.
func NewOIDCVerifier(audience, serviceAccount string) *OIDCVerifier {
	return &OIDCVerifier{
		audience:       audience,
		serviceAccount: serviceAccount,
		validate:       idtoken.Validate,
	}
}

// WithValidateFunc replaces the token validation, used in tests.
func (v *OIDCVerifier) WithValidateFunc(fn ValidateFunc) *OIDCVerifier {
	v.validate = fn
	return v
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*repository.SchedulerIdentity, error) {
	if v.audience == "" {
		return nil, apperrors.NewAuthenticationError("scheduler audience not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewAuthenticationError("missing bearer token")
	}

	payload, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("invalid scheduler token").WithCause(err)
	}

	email, _ := payload.Claims["email"].(string)
	if v.serviceAccount != "" {
		verified, _ := payload.Claims["email_verified"].(bool)
		if !strings.EqualFold(email, v.serviceAccount) || !verified {
			return nil, apperrors.NewAuthenticationError("scheduler token issued to an unexpected account")
		}
	}

	return &repository.SchedulerIdentity{
		Email:    email,
		Subject:  payload.Subject,
		Audience: payload.Audience,
	}, nil
}
