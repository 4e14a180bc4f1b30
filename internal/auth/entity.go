package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session kinds stored in the auth_sessions table. Cookie-backed web sessions
// and API refresh tokens share the same opaque-token store.
const (
	KindSession = "session"
	KindRefresh = "refresh"
)

// Session is a persisted opaque token referencing an account by external id.
type Session struct {
	Token             string
	AccountExternalID string
	Kind              string
	ExpiresAt         time.Time
}

// TokenPair is the signed access token plus its opaque refresh companion.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Claims augments the registered claims (sub = external id, exp, iat) with
// the account fields API consumers need without a second round trip.
type Claims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
}
