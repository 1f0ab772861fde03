package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/infra/config"
	"github.com/qnit18/genzf/internal/infra/security"
	"github.com/qnit18/genzf/internal/repository"
)

// minSecretBytes is the smallest HMAC key accepted for HS512.
const minSecretBytes = 64

// AccessTokenClaims is the typed claim set carried by every access token.
type AccessTokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Principal rebuilds the authorization view encoded in the claims.
func (c AccessTokenClaims) Principal() domain.Principal {
	return domain.PrincipalFromScope(c.Subject, c.Scope)
}

// TokenService owns token issuance, verification, introspection, and
// revocation for the identity provider.
type TokenService struct {
	cfg         *config.AppConfig
	secret      []byte
	users       port.UserRepository
	revocations port.RevocationStore
	publisher   port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// TokenServiceOption configures optional TokenService collaborators.
type TokenServiceOption func(*TokenService)

// WithEventPublisher wires revocation event fan-out.
func WithEventPublisher(publisher port.EventPublisher) TokenServiceOption {
	return func(s *TokenService) {
		s.publisher = publisher
	}
}

// WithClock overrides the service clock for deterministic tests.
func WithClock(clock func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewTokenService constructs the token service. A missing or undersized
// signing secret is a startup error; issuance never fails on key material
// afterwards.
func NewTokenService(
	cfg *config.AppConfig,
	users port.UserRepository,
	revocations port.RevocationStore,
	logger *zap.Logger,
	opts ...TokenServiceOption,
) (*TokenService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if revocations == nil {
		return nil, fmt.Errorf("revocation store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	secret, err := DecodeSigningSecret(cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}

	service := &TokenService{
		cfg:         cfg,
		secret:      secret,
		users:       users,
		revocations: revocations,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}

	return service, nil
}

// DecodeSigningSecret validates and decodes the configured HMAC secret.
// Accepts standard base64 or a raw string; either way the key must be at
// least 64 bytes for HS512.
func DecodeSigningSecret(secret string) ([]byte, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, fmt.Errorf("jwt signing secret is required")
	}

	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		key = []byte(trimmed)
	}

	if len(key) < minSecretBytes {
		return nil, fmt.Errorf("jwt signing secret must be at least %d bytes, got %d", minSecretBytes, len(key))
	}

	return key, nil
}

// Issue builds, signs, and serializes an access token for the principal.
func (s *TokenService) Issue(principal domain.Principal) (string, error) {
	if principal.Subject == "" {
		return "", fmt.Errorf("principal subject is required: %w", domain.ErrInvalidRequest)
	}

	now := s.now()
	ttl := s.cfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	claims := AccessTokenClaims{
		Scope: domain.BuildScope(principal),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.Subject,
			Issuer:    s.cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify checks signature, expiry, and revocation. All three must pass;
// every failure collapses into ErrUnauthenticated so callers cannot tell
// an expired token from a revoked or forged one.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*AccessTokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("access token is required: %w", domain.ErrInvalidRequest)
	}

	claims, err := ParseAndVerify(tokenString, s.secret, s.cfg.JWT.Issuer, s.now)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("revocation lookup failed", zap.Error(err))
		return nil, fmt.Errorf("revocation state unknown: %w", domain.ErrUnauthenticated)
	}
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", domain.ErrUnauthenticated)
	}

	return claims, nil
}

// ParseAndVerify decodes the token and checks signature and expiry against
// the shared secret. Revocation is deliberately not checked here: this is
// the local verification primitive the perimeter filter shares with the
// full Verify path.
func ParseAndVerify(tokenString string, secret []byte, issuer string, now func() time.Time) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
	}
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}
	if now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(now))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", domain.ErrUnauthenticated)
	}

	if parsed == nil || !parsed.Valid {
		return nil, fmt.Errorf("token invalid: %w", domain.ErrUnauthenticated)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("token missing required claims: %w", domain.ErrUnauthenticated)
	}

	return claims, nil
}

// Introspect folds Verify into a boolean. It never surfaces an error.
func (s *TokenService) Introspect(ctx context.Context, tokenString string) bool {
	if _, err := s.Verify(ctx, tokenString); err != nil {
		s.logger.Debug("token introspection failed", zap.Error(err))
		return false
	}
	return true
}

// Revoke records the token's jti in the revocation store. The token is
// parsed without verification so a token past expiry is still revocable;
// only an unparseable token fails.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return fmt.Errorf("access token is required: %w", domain.ErrInvalidRequest)
	}

	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return fmt.Errorf("parse token for revocation: %w", domain.ErrInvalidRequest)
	}
	if claims.ID == "" {
		return fmt.Errorf("token has no jti: %w", domain.ErrInvalidRequest)
	}

	expiresAt := s.now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revocations.Record(ctx, claims.ID, expiresAt); err != nil {
		return fmt.Errorf("record revocation: %w", err)
	}

	if s.publisher != nil {
		event := domain.TokenRevokedEvent{
			EventID:   uuid.NewString(),
			JTI:       claims.ID,
			Subject:   claims.Subject,
			RevokedAt: s.now(),
			ExpiresAt: expiresAt,
		}
		if err := s.publisher.PublishTokenRevoked(ctx, event); err != nil {
			// Fan-out is best effort; the durable row is authoritative.
			s.logger.Warn("publish token revoked event failed",
				zap.String("jti", claims.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Authenticate validates credentials and issues an access token.
func (s *TokenService) Authenticate(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("username and password are required: %w", domain.ErrInvalidRequest)
	}
	if s.users == nil {
		return "", nil, fmt.Errorf("user repository not configured")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, fmt.Errorf("unknown user: %w", domain.ErrNotFound)
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return "", nil, fmt.Errorf("password mismatch: %w", domain.ErrUnauthenticated)
	}

	token, err := s.Issue(user.Principal())
	if err != nil {
		return "", nil, err
	}

	sanitized := *user
	sanitized.PasswordHash = ""

	return token, &sanitized, nil
}
