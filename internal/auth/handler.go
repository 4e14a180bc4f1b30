package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/reservalia/service-accounts-go/internal/account"
	"github.com/reservalia/service-accounts-go/internal/account/entity"
)

// SessionCookie names the cookie carrying the server-side session token.
const SessionCookie = "account_session"

// Handler exposes the session login/logout flow and the token endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Login handles the web form flow: form credentials in, session cookie and a
// redirect to the landing route out. Every failure gets the same generic
// message regardless of which factor was wrong.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}
	username := r.Form.Get("username")
	password := r.Form.Get("password")

	a, err := h.svc.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
			return
		}
		h.logger.Warnw("login failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}

	token, expires, err := h.svc.StartSession(r.Context(), a)
	if err != nil {
		h.logger.Warnw("session start failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout invalidates the session server-side and expires the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if err := h.svc.EndSession(r.Context(), c.Value); err != nil {
			h.logger.Debugw("session end failed", "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// TokenRequest is the JSON credential payload for token issuance.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse mirrors the pair plus the minimal account projection clients
// need to bootstrap their UI.
type TokenResponse struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	User    TokenUser `json:"user"`
}

type TokenUser struct {
	ExternalID  string `json:"external_id"`
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
}

// Token issues an access/refresh pair. No session state is created here.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
			return
		}
		h.logger.Warnw("token issuance failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token issuance failed"})
		return
	}
	pair, err := h.svc.IssueTokenPair(r.Context(), a)
	if err != nil {
		h.logger.Warnw("token issuance failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token issuance failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, tokenResponse(pair, a))
}

// RefreshRequest carries the opaque refresh token to rotate.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh exchanges a live refresh token for a new pair, revoking the old one.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	pair, a, err := h.svc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			return
		}
		h.logger.Warnw("token refresh failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token refresh failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, tokenResponse(pair, a))
}

func tokenResponse(pair *TokenPair, a *entity.Account) TokenResponse {
	return TokenResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User: TokenUser{
			ExternalID:  a.ExternalID,
			Username:    a.Username,
			AccountType: string(a.AccountType),
		},
	}
}

// Require guards an endpoint: it resolves a bearer token or session cookie
// into the requester identity on the context, or rejects with 401.
func (h *Handler) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester, ok := h.requester(r)
		if !ok {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next(w, r.WithContext(account.WithRequester(r.Context(), requester)))
	}
}

func (h *Handler) requester(r *http.Request) (account.Requester, bool) {
	if ah := r.Header.Get("Authorization"); ah != "" {
		if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			return account.Requester{}, false
		}
		claims, err := h.svc.ParseAccessToken(strings.TrimSpace(ah[len("bearer "):]))
		if err != nil {
			return account.Requester{}, false
		}
		return account.Requester{
			ExternalID:  claims.Subject,
			Username:    claims.Username,
			AccountType: entity.Type(claims.AccountType),
		}, true
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		a, err := h.svc.SessionAccount(r.Context(), c.Value)
		if err != nil {
			return account.Requester{}, false
		}
		return account.Requester{
			ExternalID:  a.ExternalID,
			Username:    a.Username,
			AccountType: a.AccountType,
		}, true
	}
	return account.Requester{}, false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
