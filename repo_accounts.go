package tripauth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the account repository surface used by login, phone
// verification, and the state machine.
type Accounts interface {
	repository.Repository[*Account]

	ByEmail(ctx context.Context, email string) (*Account, error)
	ByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	GetOrCreateByEmail(ctx context.Context, record *Account) (*Account, bool, error)
	GetOrCreateByEmailTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, bool, error)

	UpdateStatus(ctx context.Context, account *Account, status AccountStatus) (*Account, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, account *Account, status AccountStatus) (*Account, error)
	MarkPhoneVerified(ctx context.Context, account *Account, phoneNumber string) (*Account, error)
	MarkPhoneVerifiedTx(ctx context.Context, tx bun.IDB, account *Account, phoneNumber string) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
	_ StatusWriter                    = (*accounts)(nil)
	_ AccountSource                   = (*accounts)(nil)
)

// NewAccountsRepository builds the account repository over bun.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) ByEmail(ctx context.Context, email string) (*Account, error) {
	return a.ByEmailTx(ctx, a.db, email)
}

func (a *accounts) ByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	record := &Account{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// GetOrCreateByEmail makes external-identity login idempotent: the email is
// the join key, so a returning user maps onto the same record regardless of
// how many times the provider round trip runs. The bool reports whether a new
// record was created.
func (a *accounts) GetOrCreateByEmail(ctx context.Context, record *Account) (*Account, bool, error) {
	return a.GetOrCreateByEmailTx(ctx, a.db, record)
}

func (a *accounts) GetOrCreateByEmailTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, bool, error) {
	if record == nil || record.Email == "" {
		return nil, false, errors.New("account email is required", errors.CategoryBadInput)
	}

	existing, err := a.ByEmailTx(ctx, tx, record.Email)
	if err == nil {
		return existing, false, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	created, err := a.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CategoryConflict, "could not create account")
	}

	return created, true, nil
}

func (a *accounts) UpdateStatus(ctx context.Context, account *Account, status AccountStatus) (*Account, error) {
	return a.UpdateStatusTx(ctx, a.db, account, status)
}

func (a *accounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, account *Account, status AccountStatus) (*Account, error) {
	if account == nil || account.ID == uuid.Nil {
		return nil, ErrAccountNotFound
	}

	now := time.Now()
	res, err := tx.NewUpdate().Model((*Account)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("id = ?", account.ID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": account.ID.String(),
			})
	}

	account.Status = status
	account.UpdatedAt = &now
	return account, nil
}

func (a *accounts) MarkPhoneVerified(ctx context.Context, account *Account, phoneNumber string) (*Account, error) {
	return a.MarkPhoneVerifiedTx(ctx, a.db, account, phoneNumber)
}

// MarkPhoneVerifiedTx persists the verified flag together with the normalized
// number in one statement so the pair can never disagree.
func (a *accounts) MarkPhoneVerifiedTx(ctx context.Context, tx bun.IDB, account *Account, phoneNumber string) (*Account, error) {
	if account == nil || account.ID == uuid.Nil {
		return nil, ErrAccountNotFound
	}

	now := time.Now()
	res, err := tx.NewUpdate().Model((*Account)(nil)).
		Set("phone_number = ?", phoneNumber).
		Set("phone_verified = ?", true).
		Set("updated_at = ?", now).
		Where("id = ?", account.ID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": account.ID.String(),
			})
	}

	account.PhoneNumber = phoneNumber
	account.PhoneVerified = true
	account.UpdatedAt = &now
	return account, nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = strings.TrimSpace(strings.ToLower(record.Email))
	record.EnsureStatus()
	record.EnsureRoles()

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}
}
