package tripauth

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultNicknamePrefix seeds the placeholder nickname assigned on first login.
const DefaultNicknamePrefix = "User"

// Profiles is the profile repository surface. Profile edits feed the
// activation predicate, so Save recomputes completeness on every write.
type Profiles interface {
	repository.Repository[*Profile]

	ByAccount(ctx context.Context, accountID uuid.UUID) (*Profile, error)
	ByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Profile, error)
	NicknameTaken(ctx context.Context, nickname string) (bool, error)
	Save(ctx context.Context, record *Profile) (*Profile, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

// NewProfilesRepository builds the profile repository over bun.
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "nickname"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (p *profiles) ByAccount(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	return p.ByAccountTx(ctx, p.db, accountID)
}

func (p *profiles) ByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.account_id = ?", accountID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"account_id": accountID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (p *profiles) NicknameTaken(ctx context.Context, nickname string) (bool, error) {
	count, err := p.db.NewSelect().Model((*Profile)(nil)).
		Where("nickname = ?", strings.TrimSpace(nickname)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *profiles) Save(ctx context.Context, record *Profile) (*Profile, error) {
	return p.SaveTx(ctx, p.db, record)
}

// SaveTx upserts the profile and refreshes the stored completeness flag. The
// flag is denormalized output of Complete(); it never drives the predicate.
func (p *profiles) SaveTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	if record == nil || record.AccountID == uuid.Nil {
		return nil, repository.NewRecordNotFound()
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.ProfileCompleted = record.Complete()

	existing, err := p.ByAccountTx(ctx, tx, record.AccountID)
	if err == nil {
		record.ID = existing.ID
		return p.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return p.Repository.CreateTx(ctx, tx, record)
}

// PlaceholderNickname derives the first-login nickname from the account id.
// The uuid prefix keeps collisions rare; callers retry through NicknameTaken
// when a clash does happen.
func PlaceholderNickname(accountID uuid.UUID) string {
	return DefaultNicknamePrefix + strings.ReplaceAll(accountID.String(), "-", "")[:8]
}
