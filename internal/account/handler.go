package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Handler exposes the REST endpoints for account management.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the registration body. Registration is public.
type CreateRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm"`
	GivenName       *string `json:"given_name"`
	FamilyName      *string `json:"family_name"`
	Phone           *string `json:"phone"`
	BirthDate       string  `json:"birth_date"`
	AccountType     string  `json:"account_type"`
}

// UpdateRequest carries partial updates; absent fields stay untouched.
type UpdateRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"password_confirm"`
	GivenName       *string `json:"given_name"`
	FamilyName      *string `json:"family_name"`
	Phone           *string `json:"phone"`
	BirthDate       *string `json:"birth_date"`
	AccountType     *string `json:"account_type"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid create payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	view, err := h.svc.Create(r.Context(), CreateInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		GivenName:       req.GivenName,
		FamilyName:      req.FamilyName,
		Phone:           req.Phone,
		BirthDate:       req.BirthDate,
		AccountType:     req.AccountType,
	})
	if err != nil {
		h.writeError(w, err, "create failed")
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err, "list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Retrieve(r.Context(), r.PathValue("externalId"))
	if err != nil {
		h.writeError(w, err, "retrieve failed")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	requester, ok := RequesterFrom(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid update payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	view, err := h.svc.Update(r.Context(), r.PathValue("externalId"), UpdateInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		GivenName:       req.GivenName,
		FamilyName:      req.FamilyName,
		Phone:           req.Phone,
		BirthDate:       req.BirthDate,
		AccountType:     req.AccountType,
	}, requester)
	if err != nil {
		h.writeError(w, err, "update failed")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	requester, ok := RequesterFrom(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	if err := h.svc.Delete(r.Context(), r.PathValue("externalId"), requester); err != nil {
		h.writeError(w, err, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps service failures onto the HTTP surface. Field errors keep
// their per-field codes; anything unexpected collapses to a 500 without
// leaking internals.
func (h *Handler) writeError(w http.ResponseWriter, err error, logMsg string) {
	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		status := http.StatusBadRequest
		if fieldErrs.HasConflict() {
			status = http.StatusConflict
		}
		h.writeJSON(w, status, map[string]any{"errors": fieldErrs})
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
	case errors.Is(err, ErrPermission):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "operation not permitted"})
	default:
		h.logger.Warnw(logMsg, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": logMsg})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
