package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reservalia/service-accounts-go/internal/account"
	"github.com/reservalia/service-accounts-go/internal/account/entity"
)

var (
	// ErrBadCredentials covers unknown username, inactive account and wrong
	// password alike, so a failed login never reveals which factor was wrong.
	ErrBadCredentials = errors.New("invalid username or password")
	ErrInvalidToken   = errors.New("invalid or expired token")
)

// SessionStore is the persistence surface for opaque tokens. The sqlx
// implementation lives in internal/auth/repo.
type SessionStore interface {
	Save(ctx context.Context, token, accountExternalID, kind string, expiresAt time.Time) error
	Get(ctx context.Context, token string) (accountExternalID string, kind string, expiresAt time.Time, err error)
	Delete(ctx context.Context, token string) error
}

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration
}

// ConfigFromEnv reads auth config from env vars with workable defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		Secret:     os.Getenv("JWT_SECRET"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		SessionTTL: 24 * time.Hour,
	}
	if cfg.Secret == "" {
		cfg.Secret = "dev-only-secret"
	}
	if v := os.Getenv("AUTH_ACCESS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AccessTTL = d
		}
	}
	if v := os.Getenv("AUTH_REFRESH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshTTL = d
		}
	}
	if v := os.Getenv("AUTH_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	return cfg
}

// Service owns credential checks, the cookie-session surface and the JWT
// token surface. Both surfaces validate credentials the same way.
type Service struct {
	accounts   account.Repository
	sessions   SessionStore
	hasher     account.PasswordHasher
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessionTTL time.Duration
}

func NewService(accounts account.Repository, sessions SessionStore, hasher account.PasswordHasher, cfg Config) *Service {
	if hasher == nil {
		hasher = account.BcryptHasher{Cost: 12}
	}
	return &Service{
		accounts:   accounts,
		sessions:   sessions,
		hasher:     hasher,
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		sessionTTL: cfg.SessionTTL,
	}
}

// Authenticate looks up an active account by username and verifies the
// password. On success the last-login timestamp is stamped.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.Account, error) {
	a, err := s.accounts.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if err := s.accounts.TouchLastLogin(ctx, a.ID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a.LastLoginAt = &now
	return a, nil
}

// IssueTokenPair signs an access token carrying the account's external id,
// username and type, and persists an opaque refresh token alongside it.
func (s *Service) IssueTokenPair(ctx context.Context, a *entity.Account) (*TokenPair, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ExternalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Username:    a.Username,
		AccountType: string(a.AccountType),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	refresh, err := randToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, refresh, a.ExternalID, KindRefresh, now.Add(s.refreshTTL)); err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh rotates a live refresh token: the presented token is revoked before
// a new pair is issued, so each refresh token works exactly once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *entity.Account, error) {
	a, err := s.resolve(ctx, refreshToken, KindRefresh)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		// if revocation fails, do not issue a replacement
		return nil, nil, ErrInvalidToken
	}
	pair, err := s.IssueTokenPair(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	return pair, a, nil
}

// ParseAccessToken verifies signature and expiry and returns the claims.
func (s *Service) ParseAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// StartSession persists a server-side session for the account and returns
// the cookie token and its expiry.
func (s *Service) StartSession(ctx context.Context, a *entity.Account) (string, time.Time, error) {
	token, err := randToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().Add(s.sessionTTL)
	if err := s.sessions.Save(ctx, token, a.ExternalID, KindSession, expires); err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// EndSession invalidates a session token. Unknown tokens are not an error.
func (s *Service) EndSession(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// SessionAccount resolves a session cookie back to its active account.
func (s *Service) SessionAccount(ctx context.Context, token string) (*entity.Account, error) {
	return s.resolve(ctx, token, KindSession)
}

// resolve maps an opaque token of the expected kind to its active account.
// Expired, mistyped or orphaned tokens all come back as ErrInvalidToken.
func (s *Service) resolve(ctx context.Context, token, wantKind string) (*entity.Account, error) {
	externalID, kind, expiresAt, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if kind != wantKind || expiresAt.Before(time.Now()) {
		return nil, ErrInvalidToken
	}
	a, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		// account soft-deleted since the token was issued
		return nil, ErrInvalidToken
	}
	return a, nil
}

func randToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
