package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/reservalia/service-accounts-go/internal/account/entity"
	"github.com/reservalia/service-accounts-go/pkg/utilities"
)

// Repository is the store surface the service needs. The sqlx implementation
// lives in internal/account/repo; tests substitute fakes.
type Repository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByExternalID(ctx context.Context, externalID string) (*entity.Account, error)
	GetActiveByUsername(ctx context.Context, username string) (*entity.Account, error)
	ListActive(ctx context.Context) ([]entity.Account, error)
	ActiveUsernameExists(ctx context.Context, username string, excludeID int64) (bool, error)
	ActiveEmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	Update(ctx context.Context, a *entity.Account) error
	SaveSoftDelete(ctx context.Context, a *entity.Account) error
	TouchLastLogin(ctx context.Context, id int64) error
}

// Requester identifies the authenticated caller of a mutating operation.
type Requester struct {
	ExternalID  string
	Username    string
	AccountType entity.Type
}

// CanModify is the owner-or-admin authorization predicate applied to update
// and delete. Kept as a standalone function so it stays independently testable.
func CanModify(r Requester, target *entity.Account) bool {
	return r.AccountType == entity.TypeAdmin || r.ExternalID == target.ExternalID
}

// Service orchestrates account lifecycle flows.
type Service struct {
	repo   Repository
	hasher PasswordHasher
}

func NewService(repo Repository, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: repo, hasher: hasher}
}

// CreateInput is the registration payload. BirthDate uses YYYY-MM-DD.
type CreateInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	GivenName       *string
	FamilyName      *string
	Phone           *string
	BirthDate       string
	AccountType     string
}

// UpdateInput carries partial updates; nil fields are left unchanged.
type UpdateInput struct {
	Username        *string
	Email           *string
	Password        *string
	PasswordConfirm *string
	GivenName       *string
	FamilyName      *string
	Phone           *string
	BirthDate       *string
	AccountType     *string
}

// List returns the minimal projection of every active account.
func (s *Service) List(ctx context.Context) ([]entity.ListView, error) {
	accounts, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ListView, 0, len(accounts))
	for i := range accounts {
		out = append(out, accounts[i].AsListItem())
	}
	return out, nil
}

// Create registers a new active, unverified account. Validation failures come
// back as FieldErrors without touching the store; a concurrent duplicate that
// slips past the pre-check is caught by the partial unique index and reported
// the same way.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.DetailView, error) {
	var fieldErrs FieldErrors

	if fe := ValidateUsernameFormat(in.Username); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if taken, err := s.repo.ActiveUsernameExists(ctx, in.Username, 0); err != nil {
		return nil, err
	} else if taken {
		fieldErrs = append(fieldErrs, FieldError{Field: "username", Code: CodeConflict})
	}

	if fe := ValidateEmailFormat(in.Email); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if taken, err := s.repo.ActiveEmailExists(ctx, in.Email, 0); err != nil {
		return nil, err
	} else if taken {
		fieldErrs = append(fieldErrs, FieldError{Field: "email", Code: CodeConflict})
	}

	if in.Password == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "password", Code: CodeRequired})
	} else if fe := ValidatePasswordConfirmation(in.Password, in.PasswordConfirm); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	}

	accountType := entity.Type(in.AccountType)
	if in.AccountType == "" {
		accountType = entity.TypeCustomer
	} else if !accountType.Valid() {
		fieldErrs = append(fieldErrs, FieldError{Field: "account_type", Code: CodeFormat})
	}

	var birthDate *time.Time
	if in.BirthDate != "" {
		d, err := time.Parse("2006-01-02", in.BirthDate)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "birth_date", Code: CodeFormat})
		} else {
			birthDate = &d
		}
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	a := &entity.Account{
		ID:           utilities.NewAccountID(),
		ExternalID:   utilities.NewExternalID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		GivenName:    in.GivenName,
		FamilyName:   in.FamilyName,
		Phone:        in.Phone,
		BirthDate:    birthDate,
		RegisteredAt: time.Now().UTC(),
		IsActive:     true,
		IsVerified:   false,
		AccountType:  accountType,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if conflict := conflictFromUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, err
	}
	view := a.AsDetail()
	return &view, nil
}

// Retrieve returns the detail projection of an active account.
func (s *Service) Retrieve(ctx context.Context, externalID string) (*entity.DetailView, error) {
	a, err := s.getActive(ctx, externalID)
	if err != nil {
		return nil, err
	}
	view := a.AsDetail()
	return &view, nil
}

// Update applies a partial update on behalf of requester, who must be the
// account itself or an admin. Username and email changes re-run the
// active-scoped uniqueness checks, excluding the record being edited.
func (s *Service) Update(ctx context.Context, externalID string, in UpdateInput, requester Requester) (*entity.DetailView, error) {
	a, err := s.getActive(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !CanModify(requester, a) {
		return nil, ErrPermission
	}

	var fieldErrs FieldErrors

	if in.Username != nil && *in.Username != a.Username {
		if fe := ValidateUsernameFormat(*in.Username); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else if taken, err := s.repo.ActiveUsernameExists(ctx, *in.Username, a.ID); err != nil {
			return nil, err
		} else if taken {
			fieldErrs = append(fieldErrs, FieldError{Field: "username", Code: CodeConflict})
		} else {
			a.Username = *in.Username
		}
	}

	if in.Email != nil && *in.Email != a.Email {
		if fe := ValidateEmailFormat(*in.Email); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else if taken, err := s.repo.ActiveEmailExists(ctx, *in.Email, a.ID); err != nil {
			return nil, err
		} else if taken {
			fieldErrs = append(fieldErrs, FieldError{Field: "email", Code: CodeConflict})
		} else {
			a.Email = *in.Email
		}
	}

	if in.Password != nil && *in.Password != "" {
		confirm := ""
		if in.PasswordConfirm != nil {
			confirm = *in.PasswordConfirm
		}
		if fe := ValidatePasswordConfirmation(*in.Password, confirm); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else {
			hash, err := s.hasher.Hash(*in.Password)
			if err != nil {
				return nil, err
			}
			a.PasswordHash = hash
		}
	}

	if in.AccountType != nil {
		t := entity.Type(*in.AccountType)
		if !t.Valid() {
			fieldErrs = append(fieldErrs, FieldError{Field: "account_type", Code: CodeFormat})
		} else {
			a.AccountType = t
		}
	}

	if in.BirthDate != nil {
		if *in.BirthDate == "" {
			a.BirthDate = nil
		} else if d, err := time.Parse("2006-01-02", *in.BirthDate); err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "birth_date", Code: CodeFormat})
		} else {
			a.BirthDate = &d
		}
	}

	if in.GivenName != nil {
		a.GivenName = in.GivenName
	}
	if in.FamilyName != nil {
		a.FamilyName = in.FamilyName
	}
	if in.Phone != nil {
		a.Phone = in.Phone
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	if err := s.repo.Update(ctx, a); err != nil {
		if conflict := conflictFromUniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, err
	}
	view := a.AsDetail()
	return &view, nil
}

// Delete soft-deletes the account: deactivates it and releases its username
// and email for reuse. Same permission rule as Update.
func (s *Service) Delete(ctx context.Context, externalID string, requester Requester) error {
	a, err := s.getActive(ctx, externalID)
	if err != nil {
		return err
	}
	if !CanModify(requester, a) {
		return ErrPermission
	}
	a.SoftDelete()
	return s.repo.SaveSoftDelete(ctx, a)
}

func (s *Service) getActive(ctx context.Context, externalID string) (*entity.Account, error) {
	a, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// conflictFromUniqueViolation maps a Postgres unique violation raised by the
// partial indexes to the field-scoped conflict the pre-check would have
// produced, so racing registrations fail the same way as sequential ones.
func conflictFromUniqueViolation(err error) FieldErrors {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "idx_accounts_username_active":
		return FieldErrors{{Field: "username", Code: CodeConflict}}
	case "idx_accounts_email_active":
		return FieldErrors{{Field: "email", Code: CodeConflict}}
	}
	return FieldErrors{{Field: "username", Code: CodeConflict}}
}
