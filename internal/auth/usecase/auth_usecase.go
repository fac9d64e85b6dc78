package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"blog-cms/internal/auth/config"
	"blog-cms/internal/auth/domain/model"
	"blog-cms/internal/auth/domain/repository"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/eventbus"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Password validation constants
const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

const eventSource = "auth"

var (
	ErrWeakPassword = apperrors.NewValidationError(
		"password must contain an upper case letter, a lower case letter, a number and a special character")
	ErrLastAdmin = apperrors.NewPreconditionError("cannot remove the last admin")

	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasNumber  = regexp.MustCompile(`[0-9]`)
	hasSpecial = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// AuthUsecaseInterface defines the contract for admin authentication and user management.
type AuthUsecaseInterface interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, tokenString string) error
	RefreshToken(ctx context.Context, refreshToken string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error)
	GetUserByID(ctx context.Context, userID string) (*model.AdminUser, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error

	CreateUser(ctx context.Context, req CreateUserRequest) (*model.AdminUser, error)
	UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*model.AdminUser, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*model.AdminUser, error)
	DeleteUser(ctx context.Context, userID string) error
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries a fresh token pair
type LoginResponse struct {
	User         *model.AdminUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresAt    time.Time        `json:"expiresAt"`
}

// CreateUserRequest creates an admin panel account
type CreateUserRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required"`
	DisplayName string   `json:"displayName" validate:"max=100"`
	Roles       []string `json:"roles" validate:"required,min=1,dive,oneof=admin editor"`
}

// UpdateUserRequest changes the fields that are set
type UpdateUserRequest struct {
	DisplayName *string  `json:"displayName,omitempty" validate:"omitempty,max=100"`
	AvatarURL   *string  `json:"avatarUrl,omitempty" validate:"omitempty,max=2048"`
	Roles       []string `json:"roles,omitempty" validate:"omitempty,min=1,dive,oneof=admin editor"`
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	repo     repository.AuthRepository
	tokenSvc repository.TokenService
	config   *config.Config
	bus      eventbus.EventBusInterface
	log      logger.Logger
	now      func() time.Time
}

var _ AuthUsecaseInterface = (*AuthUsecase)(nil)

// NewAuthUsecase creates a new instance of AuthUsecase. bus may be nil.
func NewAuthUsecase(
	repo repository.AuthRepository,
	tokenSvc repository.TokenService,
	cfg *config.Config,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *AuthUsecase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AuthUsecase{
		repo:     repo,
		tokenSvc: tokenSvc,
		config:   cfg,
		bus:      bus,
		log:      log.WithComponent("auth"),
		now:      time.Now,
	}
}

func (uc *AuthUsecase) timestamp() time.Time {
	return uc.now().UTC().Truncate(time.Millisecond)
}

func (uc *AuthUsecase) publish(ctx context.Context, eventType string, data interface{}) {
	if uc.bus == nil {
		return
	}
	uc.bus.PublishAndForget(context.WithoutCancel(ctx), eventbus.NewBasicEventWithSource(eventType, data, eventSource))
}

// validatePassword validates password strength
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password is too short").WithDetail("minLength", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return apperrors.NewValidationError("password is too long").WithDetail("maxLength", maxPasswordLength)
	}
	if !hasUpper.MatchString(password) || !hasLower.MatchString(password) ||
		!hasNumber.MatchString(password) || !hasSpecial.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func dedupeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// issue starts a session and signs an access token for it
func (uc *AuthUsecase) issue(ctx context.Context, user *model.AdminUser) (*LoginResponse, error) {
	now := uc.timestamp()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.config.RefreshTokenTTL),
	}
	if err := uc.repo.CreateSession(ctx, session); err != nil {
		return nil, apperrors.WrapError(err, "failed to create session")
	}

	token, err := uc.tokenSvc.GenerateToken(ctx, repository.TokenSubject{
		UserID:    user.ID,
		Email:     user.Email,
		Roles:     user.Roles,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to generate token")
	}

	return &LoginResponse{
		User:         user,
		AccessToken:  token,
		RefreshToken: session.ID,
		ExpiresAt:    now.Add(uc.config.AccessTokenTTL),
	}, nil
}

// Login checks credentials and opens a session
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := uc.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, apperrors.WrapError(err, "failed to get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		uc.log.WithFields(map[string]interface{}{"userId": user.ID}).Warn("Failed admin login")
		return nil, model.ErrInvalidCredentials
	}

	now := uc.timestamp()
	user.LastAuthenticatedTimestamp = &now
	if err := uc.repo.UpdateUser(ctx, user); err != nil {
		uc.log.WithFields(map[string]interface{}{"userId": user.ID, "error": err.Error()}).
			Warn("Failed to record last authentication time")
	}

	resp, err := uc.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, eventbus.EventTypeUserAuthenticated, map[string]interface{}{"userId": user.ID})
	return resp, nil
}

// Logout ends the session the access token belongs to
func (uc *AuthUsecase) Logout(ctx context.Context, tokenString string) error {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return model.ErrTokenInvalid
	}

	if claims.SessionID != "" {
		err = uc.repo.DeleteSession(ctx, claims.SessionID)
	} else {
		err = uc.repo.DeleteUserSessions(ctx, claims.UserID)
	}
	if err != nil && !errors.Is(err, model.ErrSessionNotFound) {
		return apperrors.WrapError(err, "failed to delete session")
	}

	uc.publish(ctx, eventbus.EventTypeUserLoggedOut, map[string]interface{}{"userId": claims.UserID})
	return nil
}

// ValidateToken verifies the access token and that its session is still open
func (uc *AuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, model.ErrTokenInvalid
	}
	if claims.SessionID == "" {
		return claims, nil
	}

	session, err := uc.repo.GetSessionByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, model.ErrTokenInvalid
		}
		return nil, apperrors.WrapError(err, "failed to read session")
	}
	if session.UserID != claims.UserID || session.Expired(uc.now()) {
		return nil, model.ErrTokenInvalid
	}
	return claims, nil
}

// RefreshToken rotates a refresh token: the old session is closed and a new pair issued.
func (uc *AuthUsecase) RefreshToken(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, model.ErrSessionNotFound
	}

	session, err := uc.repo.GetSessionByID(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, model.ErrSessionNotFound
		}
		return nil, apperrors.WrapError(err, "failed to read session")
	}
	if err := uc.repo.DeleteSession(ctx, session.ID); err != nil {
		// a concurrent refresh already consumed it
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, model.ErrSessionNotFound
		}
		return nil, apperrors.WrapError(err, "failed to rotate session")
	}
	if session.Expired(uc.now()) {
		return nil, model.ErrSessionNotFound
	}

	user, err := uc.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, model.ErrSessionNotFound
		}
		return nil, apperrors.WrapError(err, "failed to get user")
	}
	return uc.issue(ctx, user)
}

// GetUserByID retrieves an admin user
func (uc *AuthUsecase) GetUserByID(ctx context.Context, userID string) (*model.AdminUser, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("user ID is required")
	}
	user, err := uc.repo.GetUserByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, model.ErrUserNotFound
		}
		return nil, apperrors.WrapError(err, "failed to get user")
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one. Every
// session of the user is closed.
func (uc *AuthUsecase) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := uc.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return model.ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.WrapError(err, "failed to hash password")
	}
	user.PasswordHash = string(hashed)
	user.LastModifiedTimestamp = uc.timestamp()
	if err := uc.repo.UpdateUser(ctx, user); err != nil {
		return apperrors.WrapError(err, "failed to update password")
	}
	if err := uc.repo.DeleteUserSessions(ctx, user.ID); err != nil {
		return apperrors.WrapError(err, "failed to close sessions")
	}
	return nil
}

// CreateUser adds an admin panel account
func (uc *AuthUsecase) CreateUser(ctx context.Context, req CreateUserRequest) (*model.AdminUser, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if _, err := uc.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, model.ErrEmailTaken
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.WrapError(err, "failed to check existing user")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to hash password")
	}

	now := uc.timestamp()
	user := &model.AdminUser{
		ID:                    uuid.NewString(),
		Email:                 email,
		DisplayName:           strings.TrimSpace(req.DisplayName),
		Roles:                 dedupeRoles(req.Roles),
		PasswordHash:          string(hashed),
		CreatedTimestamp:      now,
		LastModifiedTimestamp: now,
	}
	if err := uc.repo.CreateUser(ctx, user); err != nil {
		return nil, apperrors.WrapError(err, "failed to create user")
	}

	uc.log.WithFields(map[string]interface{}{"userId": user.ID, "roles": user.Roles}).Info("Admin user created")
	return user, nil
}

// UpdateUser changes profile fields and roles
func (uc *AuthUsecase) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*model.AdminUser, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user, err := uc.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	rolesChanged := false
	if req.Roles != nil {
		roles := dedupeRoles(req.Roles)
		if user.HasRole(model.RoleAdmin) && !containsRole(roles, model.RoleAdmin) {
			if err := uc.ensureAnotherAdmin(ctx, user.ID); err != nil {
				return nil, err
			}
		}
		rolesChanged = !sameRoles(user.Roles, roles)
		user.Roles = roles
	}

	user.LastModifiedTimestamp = uc.timestamp()
	if err := uc.repo.UpdateUser(ctx, user); err != nil {
		return nil, apperrors.WrapError(err, "failed to update user")
	}
	// Issued tokens carry the old roles.
	if rolesChanged {
		if err := uc.repo.DeleteUserSessions(ctx, user.ID); err != nil {
			return nil, apperrors.WrapError(err, "failed to close sessions")
		}
	}
	return user, nil
}

func sameRoles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, r := range a {
		if !containsRole(b, r) {
			return false
		}
	}
	return true
}

// ListUsers returns admin users ordered by email
func (uc *AuthUsecase) ListUsers(ctx context.Context, limit, offset int) ([]*model.AdminUser, error) {
	if limit < 0 || offset < 0 {
		return nil, apperrors.NewValidationError("limit and offset cannot be negative")
	}
	users, err := uc.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list users")
	}
	return users, nil
}

// DeleteUser removes an account and its sessions. Deleting a missing user succeeds.
func (uc *AuthUsecase) DeleteUser(ctx context.Context, userID string) error {
	user, err := uc.GetUserByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if user.HasRole(model.RoleAdmin) {
		if err := uc.ensureAnotherAdmin(ctx, user.ID); err != nil {
			return err
		}
	}

	if err := uc.repo.DeleteUserSessions(ctx, user.ID); err != nil {
		return apperrors.WrapError(err, "failed to close sessions")
	}
	if err := uc.repo.DeleteUser(ctx, user.ID); err != nil {
		return apperrors.WrapError(err, "failed to delete user")
	}
	return nil
}

// EnsureBootstrapAdmin creates the first admin account when no user exists yet.
func (uc *AuthUsecase) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" {
		return false, nil
	}
	count, err := uc.repo.CountUsers(ctx)
	if err != nil {
		return false, apperrors.WrapError(err, "failed to count users")
	}
	if count > 0 {
		return false, nil
	}
	if _, err := uc.CreateUser(ctx, CreateUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: "Administrator",
		Roles:       []string{model.RoleAdmin},
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (uc *AuthUsecase) ensureAnotherAdmin(ctx context.Context, exceptID string) error {
	users, err := uc.repo.ListUsers(ctx, 0, 0)
	if err != nil {
		return apperrors.WrapError(err, "failed to list users")
	}
	for _, u := range users {
		if u.ID != exceptID && u.HasRole(model.RoleAdmin) {
			return nil
		}
	}
	return ErrLastAdmin
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
