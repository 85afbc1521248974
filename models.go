package tripauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleUser is the default role granted to every account on first login.
const RoleUser = "ROLE_USER"

// RoleAdmin marks operator accounts.
const RoleAdmin = "ROLE_ADMIN"

// AccountStatus is the lifecycle status of an account
type AccountStatus = string

const (
	// AccountStatusPending is a newly created or phone-unverified account
	AccountStatusPending AccountStatus = "pending"
	// AccountStatusActive is a phone-verified account with a complete profile
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended is an administratively suspended account
	AccountStatusSuspended AccountStatus = "suspended"
	// AccountStatusInactive is a deactivated account (e.g. long logout)
	AccountStatusInactive AccountStatus = "inactive"
	// AccountStatusDeleted is the terminal status; records are never hard-deleted here
	AccountStatusDeleted AccountStatus = "deleted"
)

// AuthProvider identifies the external identity provider an account came from.
type AuthProvider = string

const (
	ProviderGoogle AuthProvider = "google"
	ProviderKakao  AuthProvider = "kakao"
	ProviderNaver  AuthProvider = "naver"
)

// Account is the account model. Created on first successful external-identity
// login, mutated by phone verification and profile completion.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Picture       string     `bun:"picture" json:"picture,omitempty"`
	PhoneNumber   string     `bun:"phone_number" json:"phone_number,omitempty"`
	PhoneVerified bool       `bun:"phone_verified" json:"phone_verified,omitempty"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	Provider      AuthProvider  `bun:"provider" json:"provider,omitempty"`
	ProviderID    string     `bun:"provider_id" json:"provider_id,omitempty"`
	Roles         []string   `bun:"roles" json:"roles,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults a zero status to pending.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusPending
	}
}

// EnsureRoles defaults an empty role set to the user role.
func (a *Account) EnsureRoles() {
	if len(a.Roles) == 0 {
		a.Roles = []string{RoleUser}
	}
}

// NeedsPhoneVerification reports whether the account still has to complete
// the phone-verification step before the app grants access.
func (a *Account) NeedsPhoneVerification() bool {
	if a == nil {
		return true
	}
	return a.PhoneNumber == "" || a.Status == AccountStatusPending
}

// Profile carries the user-editable profile fields gating activation.
type Profile struct {
	bun.BaseModel    `bun:"table:profiles,alias:prf"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID        uuid.UUID  `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	Account          *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Nickname         string     `bun:"nickname,unique" json:"nickname,omitempty"`
	Bio              string     `bun:"bio" json:"bio,omitempty"`
	Gender           string     `bun:"gender" json:"gender,omitempty"`
	BirthDate        *time.Time `bun:"birth_date,nullzero" json:"birth_date,omitempty"`
	Tags             []string   `bun:"tags" json:"tags,omitempty"`
	ProfileCompleted bool       `bun:"profile_completed" json:"profile_completed,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Complete is the activation predicate: nickname, bio, gender, birth date,
// and at least one tag must all be present. It is re-evaluated on every
// profile mutation, not only at phone-verification time, because either side
// may finish last.
func (p *Profile) Complete() bool {
	if p == nil {
		return false
	}
	return p.Nickname != "" &&
		p.Bio != "" &&
		p.Gender != "" &&
		p.BirthDate != nil &&
		len(p.Tags) > 0
}

// Tag is the master tag record. Tag CRUD itself lives outside this subsystem;
// the model exists so the profile repo can resolve names it stores.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:tag"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Category      string     `bun:"category" json:"category,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
