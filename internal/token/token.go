// Package token issues and verifies the three signed bearer token
// kinds: short-lived access tokens carrying user, tenant and role;
// long-lived refresh tokens carrying the user id only (role is
// deliberately omitted so rotation always re-reads the current one);
// and single-purpose reset tokens. Tokens are stateless HS256 JWTs,
// each kind signed with its own secret.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Abdullah628/workspace-notes/internal/config"
	"github.com/Abdullah628/workspace-notes/internal/domain"
)

// Kind selects the signing secret and expiry policy.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindReset   Kind = "reset"
)

var (
	// ErrExpired is returned when the embedded expiry has passed.
	ErrExpired = errors.New("token: expired")
	// ErrInvalid is returned when the signature check fails or a
	// required claim is absent.
	ErrInvalid = errors.New("token: invalid")
)

// Claims are the decoded token contents. TenantID and Role are only
// present on access tokens.
type Claims struct {
	UserID   int64       `json:"uid"`
	TenantID int64       `json:"tid,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type kindPolicy struct {
	secret []byte
	ttl    time.Duration
}

// Service signs and verifies tokens. Secrets and TTLs come from
// process configuration and are immutable after construction.
type Service struct {
	kinds map[Kind]kindPolicy
	now   func() time.Time
}

// Option tweaks Service construction.
type Option func(*Service)

// WithClock overrides the time source, used by tests to cross expiry
// boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService builds a token service from the configured secrets and
// lifetimes.
func NewService(cfg config.Config, opts ...Option) *Service {
	s := &Service{
		kinds: map[Kind]kindPolicy{
			KindAccess:  {secret: []byte(cfg.AccessTokenSecret), ttl: cfg.AccessTokenTTL},
			KindRefresh: {secret: []byte(cfg.RefreshTokenSecret), ttl: cfg.RefreshTokenTTL},
			KindReset:   {secret: []byte(cfg.ResetTokenSecret), ttl: cfg.ResetTokenTTL},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueAccess signs an access token embedding the user's tenant and
// current role.
func (s *Service) IssueAccess(user domain.User) (string, error) {
	return s.sign(KindAccess, Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	})
}

// IssueRefresh signs a refresh token for the user.
func (s *Service) IssueRefresh(userID int64) (string, error) {
	return s.sign(KindRefresh, Claims{UserID: userID})
}

// IssueReset signs a single-purpose password-reset token.
func (s *Service) IssueReset(userID int64) (string, error) {
	return s.sign(KindReset, Claims{UserID: userID})
}

// AccessTTL exposes the configured access token lifetime for
// expires_in style responses.
func (s *Service) AccessTTL() time.Duration {
	return s.kinds[KindAccess].ttl
}

// RefreshTTL exposes the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration {
	return s.kinds[KindRefresh].ttl
}

func (s *Service) sign(kind Kind, claims Claims) (string, error) {
	policy := s.kinds[kind]
	issued := s.now()

	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(policy.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(policy.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses raw as a token of the given kind. It fails with
// ErrExpired past the embedded expiry and ErrInvalid on a bad
// signature, wrong kind, or missing claims.
func (s *Service) Verify(kind Kind, raw string) (*Claims, error) {
	policy := s.kinds[kind]

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return policy.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == 0 || claims.ExpiresAt == nil {
		return nil, ErrInvalid
	}
	return claims, nil
}
