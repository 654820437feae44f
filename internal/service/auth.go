// Package service composes the credential store, tenant resolver and
// token service into the register / login / refresh / password flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Abdullah628/workspace-notes/internal/apperror"
	"github.com/Abdullah628/workspace-notes/internal/domain"
	"github.com/Abdullah628/workspace-notes/internal/password"
	"github.com/Abdullah628/workspace-notes/internal/repository"
	"github.com/Abdullah628/workspace-notes/internal/tenant"
	"github.com/Abdullah628/workspace-notes/internal/token"
)

// AuthService implements the authentication flows. Every operation is
// request-scoped; the only shared state is configuration captured at
// construction.
type AuthService struct {
	users    repository.UserRepository
	resolver *tenant.Resolver
	hasher   *password.Hasher
	tokens   *token.Service
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewAuthService wires the orchestrator.
func NewAuthService(
	users repository.UserRepository,
	resolver *tenant.Resolver,
	hasher *password.Hasher,
	tokens *token.Service,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		resolver: resolver,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		tracer:   otel.Tracer("workspace-notes/identity"),
	}
}

// RegisterInput is the allow-listed field set for registration. Role
// and status are never caller-settable.
type RegisterInput struct {
	TenantName string
	Name       string
	Email      string
	Password   string
}

// ExternalProfile is the verified identity tuple supplied by the
// provider integration after its own handshake.
type ExternalProfile struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// TokenPair is what a successful authentication hands back. The
// refresh token travels to the client on an http-only cookie, never
// in the response body.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// Register creates a user, resolving or creating its tenant from the
// email domain. The first registrant of a domain becomes OWNER; later
// ones join as MEMBER.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeEmail(in.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.User{}, apperror.Conflict("user with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("check existing user: %w", err)
	}

	resolved, role, err := s.resolver.ResolveOrCreate(ctx, email, in.TenantName)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, domain.User{
		TenantID:     resolved.ID,
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StatusActive,
		Providers: []domain.AuthProvider{
			{Provider: domain.ProviderCredentials, ProviderID: email},
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, apperror.Conflict("user with this email already exists")
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", created.ID),
		zap.Int64("tenant_id", created.TenantID),
		zap.String("role", string(created.Role)),
	)
	return created, nil
}

// Login authenticates email/password credentials and returns the user.
func (s *AuthService) Login(ctx context.Context, email, plain string) (domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, apperror.Unauthorized("invalid email or password")
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	if !user.HasPassword() {
		return domain.User{}, apperror.Validation("no password set for this account, use your linked login provider or set a password first")
	}

	ok, err := s.hasher.Verify(ctx, plain, user.PasswordHash)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Warn("login failed", zap.Int64("user_id", user.ID))
		return domain.User{}, apperror.Unauthorized("invalid email or password")
	}

	if user.Status != domain.StatusActive {
		return domain.User{}, apperror.Forbidden("your account is " + strings.ToLower(string(user.Status)))
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.Int64("tenant_id", user.TenantID))
	return user, nil
}

// ExternalLogin handles a verified callback from an external identity
// provider. An existing linked account logs straight in; an account
// with the same email gains the provider entry (linking by email); an
// unknown email registers a fresh passwordless user.
func (s *AuthService) ExternalLogin(ctx context.Context, profile ExternalProfile) (domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ExternalLogin")
	defer span.End()

	email := normalizeEmail(profile.Email)

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Status != domain.StatusActive {
			return domain.User{}, apperror.Forbidden("your account is " + strings.ToLower(string(user.Status)))
		}
		if user.HasProvider(profile.Provider) {
			return user, nil
		}
		user.Providers = append(user.Providers, domain.AuthProvider{
			Provider:   profile.Provider,
			ProviderID: profile.ProviderID,
		})
		linked, err := s.users.Update(ctx, user)
		if err != nil {
			span.RecordError(err)
			return domain.User{}, fmt.Errorf("link provider: %w", err)
		}
		s.logger.Info("provider linked",
			zap.Int64("user_id", linked.ID),
			zap.String("provider", profile.Provider),
		)
		return linked, nil

	case errors.Is(err, repository.ErrNotFound):
		return s.registerExternal(ctx, profile, email)

	default:
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
}

// registerExternal creates a passwordless account for a first-time
// external login. With no caller-proposed tenant name the email
// domain itself names a newly created tenant, so the flow never
// dead-ends on an unseen domain.
func (s *AuthService) registerExternal(ctx context.Context, profile ExternalProfile, email string) (domain.User, error) {
	emailDomain, err := tenant.DomainOf(email)
	if err != nil {
		return domain.User{}, err
	}

	resolved, role, err := s.resolver.ResolveOrCreate(ctx, email, emailDomain)
	if err != nil {
		return domain.User{}, err
	}

	created, err := s.users.Create(ctx, domain.User{
		TenantID: resolved.ID,
		Name:     strings.TrimSpace(profile.Name),
		Email:    email,
		Role:     role,
		Status:   domain.StatusActive,
		Providers: []domain.AuthProvider{
			{Provider: profile.Provider, ProviderID: profile.ProviderID},
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, apperror.Conflict("user with this email already exists")
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("external user registered",
		zap.Int64("user_id", created.ID),
		zap.Int64("tenant_id", created.TenantID),
		zap.String("provider", profile.Provider),
	)
	return created, nil
}

// IssueTokens mints the access/refresh pair for an authenticated user.
func (s *AuthService) IssueTokens(ctx context.Context, user domain.User) (TokenPair, error) {
	_, span := s.tracer.Start(ctx, "AuthService.IssueTokens")
	defer span.End()

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// RefreshTTLSeconds exposes the refresh token lifetime so the
// transport layer can bound its cookie max-age.
func (s *AuthService) RefreshTTLSeconds() int64 {
	return int64(s.tokens.RefreshTTL().Seconds())
}

// Refresh rotates a refresh token into a new access token. The user
// is re-read so the fresh token carries the current role and so
// deleted or deactivated accounts stop refreshing even before the
// refresh token expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	claims, err := s.tokens.Verify(token.KindRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", apperror.Unauthorized("refresh token expired")
		}
		return "", apperror.Unauthorized("invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.NotFound("user no longer exists")
		}
		span.RecordError(err)
		return "", fmt.Errorf("find user: %w", err)
	}

	if user.Status != domain.StatusActive {
		return "", apperror.Forbidden("your account is " + strings.ToLower(string(user.Status)))
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return access, nil
}

// ChangePassword swaps the user's password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPlain, newPlain string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user not found")
		}
		span.RecordError(err)
		return fmt.Errorf("find user: %w", err)
	}
	if !user.HasPassword() {
		return apperror.NotFound("user not found")
	}

	ok, err := s.hasher.Verify(ctx, oldPlain, user.PasswordHash)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return apperror.Unauthorized("old password does not match")
	}

	hash, err := s.hasher.Hash(ctx, newPlain)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hash
	if _, err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("password changed", zap.Int64("user_id", user.ID))
	return nil
}

// SetPassword lets an externally-created account claim credentials
// login. An account that already holds both a password and an
// external provider has completed that upgrade, and must use
// ChangePassword instead of silently overwriting here.
func (s *AuthService) SetPassword(ctx context.Context, userID int64, newPlain string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.SetPassword")
	defer span.End()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user not found")
		}
		span.RecordError(err)
		return fmt.Errorf("find user: %w", err)
	}

	if user.HasPassword() && user.HasExternalProvider() {
		return apperror.Validation("password already set, use the change-password flow instead")
	}

	hash, err := s.hasher.Hash(ctx, newPlain)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hash
	if !user.HasProvider(domain.ProviderCredentials) {
		user.Providers = append(user.Providers, domain.AuthProvider{
			Provider:   domain.ProviderCredentials,
			ProviderID: user.Email,
		})
	}

	if _, err := s.users.Update(ctx, user); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("password set", zap.Int64("user_id", user.ID))
	return nil
}

// GetUser loads a user by id for profile-style endpoints.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, apperror.NotFound("user not found")
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
