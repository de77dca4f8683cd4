package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthTypeCode distinguishes how a credential was established
type AuthTypeCode = string

const (
	// AuthTypeLocal is a username/password credential managed by us
	AuthTypeLocal AuthTypeCode = "local"
	// AuthTypeAPI is a machine credential bound to an Api record
	AuthTypeAPI AuthTypeCode = "api"
)

// RealmCode identifies the credential realm within an Authentication
type RealmCode = string

const (
	// RealmLocal is the password realm
	RealmLocal RealmCode = "local"
	// RealmGoogle is a federated google realm
	RealmGoogle RealmCode = "google"
)

// Authentication is the credential anchor for a person or api caller.
// Uniqueness of (username, auth_type_code) is what login resolves against.
type Authentication struct {
	bun.BaseModel `bun:"table:authentications,alias:atn"`
	ID            uuid.UUID              `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string                 `bun:"username,notnull" json:"username,omitempty"`
	AuthTypeCode  AuthTypeCode           `bun:"auth_type_code,notnull" json:"auth_type_code,omitempty"`
	SignupDate    *time.Time             `bun:"signup_date,nullzero" json:"signup_date,omitempty"`
	Realms        []*AuthenticationRealm `bun:"rel:has-many,join:id=authentication_id" json:"realms,omitempty"`
	CreatedAt     *time.Time             `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time             `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time             `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AuthenticationRealm holds one credential under an Authentication,
// e.g. a "local" password or a "google" federation record.
type AuthenticationRealm struct {
	bun.BaseModel    `bun:"table:authentication_realms,alias:atr"`
	ID               uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AuthenticationID uuid.UUID      `bun:"authentication_id,notnull,type:uuid" json:"authentication_id,omitempty"`
	RealmCode        RealmCode      `bun:"realm_code,notnull" json:"realm_code,omitempty"`
	RealmCodeID      string         `bun:"realm_code_id" json:"realm_code_id,omitempty"`
	PasswordHash     string         `bun:"password_hash" json:"password_hash,omitempty"`
	Profile          map[string]any `bun:"profile,type:jsonb" json:"profile,omitempty"`
	CreatedAt        *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// PersonStatus tracks the invitation lifecycle of a Person
type PersonStatus = string

const (
	// PersonStatusInvited means an invite token is outstanding
	PersonStatusInvited PersonStatus = "invited"
	// PersonStatusVerifying keeps the stored legacy spelling for
	// accounts mid-verification; registration treats it as taken.
	PersonStatusVerifying PersonStatus = "verifing"
	// PersonStatusAccepted means the invite was redeemed
	PersonStatusAccepted PersonStatus = "accepted"
)

// Person is a human entity. Status moves invited -> accepted exactly
// once, inside the registration transaction.
type Person struct {
	bun.BaseModel `bun:"table:people,alias:per"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserName      string       `bun:"user_name,notnull" json:"user_name,omitempty"`
	Password      string       `bun:"password" json:"password,omitempty"` // legacy column, unused by login
	FirstName     string       `bun:"first_name" json:"first_name,omitempty"`
	LastName      string       `bun:"last_name" json:"last_name,omitempty"`
	DisplayName   string       `bun:"display_name" json:"display_name,omitempty"`
	Identity      string       `bun:"identity" json:"identity,omitempty"`
	Status        PersonStatus `bun:"status,notnull" json:"status,omitempty"`
	PhotoURL      string       `bun:"photo_url" json:"photo_url,omitempty"`
	IsSuperAdmin  bool         `bun:"is_super_admin" json:"is_super_admin,omitempty"`
	AliasID       *uuid.UUID   `bun:"alias_id,nullzero,type:uuid" json:"alias_id,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// SystemConfig is one configured downstream system inside a PartyGroup,
// stored in the tenant's JSON systems column. Configuration may carry
// passwordExpiry as a "magnitude unit" pair, e.g. "3 m".
type SystemConfig struct {
	System        string         `json:"system"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// PartyGroup is a tenant. Code doubles as the tenant identifier that
// token payloads call customer.
type PartyGroup struct {
	bun.BaseModel `bun:"table:party_groups,alias:pgr"`
	Code          string         `bun:"code,pk" json:"code,omitempty"`
	Name          string         `bun:"name,notnull" json:"name,omitempty"`
	Systems       []SystemConfig `bun:"systems,type:jsonb" json:"systems,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// SystemConfiguration returns the configuration map of the named system
func (pg *PartyGroup) SystemConfiguration(system string) map[string]any {
	if pg == nil {
		return nil
	}
	for _, s := range pg.Systems {
		if s.System == system {
			return s.Configuration
		}
	}
	return nil
}

// PartyGroupSystem links a PartyGroup to an external system instance
type PartyGroupSystem struct {
	bun.BaseModel  `bun:"table:party_group_systems,alias:pgs"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	System         string     `bun:"system,notnull" json:"system,omitempty"`
	PartyGroupCode string     `bun:"party_group_code,notnull" json:"party_group_code,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// PersonSystemType says whether the membership row belongs to the
// person directly or to one of their alias identities.
type PersonSystemType = string

const (
	// PersonSystemPerson is a direct membership
	PersonSystemPerson PersonSystemType = "person"
	// PersonSystemAlias is a membership through an alias identity
	PersonSystemAlias PersonSystemType = "alias"
)

// PersonSystem links a Person (or alias) to a PartyGroupSystem,
// optionally carrying the third-party code that system knows the
// person by.
type PersonSystem struct {
	bun.BaseModel    `bun:"table:person_systems,alias:psy"`
	ID               uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Type             PersonSystemType  `bun:"type,notnull" json:"type,omitempty"`
	PrimaryKey       uuid.UUID         `bun:"primary_key,notnull,type:uuid" json:"primary_key,omitempty"`
	SystemID         uuid.UUID         `bun:"system_id,notnull,type:uuid" json:"system_id,omitempty"`
	Code             string            `bun:"code" json:"code,omitempty"`
	PartyGroupSystem *PartyGroupSystem `bun:"rel:belongs-to,join:system_id=id" json:"party_group_system,omitempty"`
	CreatedAt        *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt        *time.Time        `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// InviteToken is a single-use registration token bound to a username
// through its flex data. UsedAt flips exactly once.
type InviteToken struct {
	bun.BaseModel `bun:"table:invite_tokens,alias:ivt"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string         `bun:"token,notnull,unique" json:"token,omitempty"`
	FlexData      map[string]any `bun:"flex_data,type:jsonb" json:"flex_data,omitempty"`
	UsedAt        *time.Time     `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// BoundUserName returns the username the invite was issued for
func (t *InviteToken) BoundUserName() string {
	if t == nil || t.FlexData == nil {
		return ""
	}
	name, _ := t.FlexData["userName"].(string)
	return name
}

// MatchesUserName compares case insensitively
func (t *InviteToken) MatchesUserName(username string) bool {
	return strings.EqualFold(t.BoundUserName(), username)
}

// Used reports whether the token has been consumed
func (t *InviteToken) Used() bool {
	return t != nil && t.UsedAt != nil
}

// Api is a machine entity scoped to a single tenant
type Api struct {
	bun.BaseModel `bun:"table:apis,alias:api"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AccessLog is one audit entry for a credential operation. Register
// writes exactly one row per attempt, success or not.
type AccessLog struct {
	bun.BaseModel  `bun:"table:access_logs,alias:alg"`
	ID             int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	System         string     `bun:"system" json:"system,omitempty"`
	PartyGroupCode string     `bun:"party_group_code" json:"party_group_code,omitempty"`
	Username       string     `bun:"username,notnull" json:"username,omitempty"`
	RealmCode      RealmCode  `bun:"realm_code" json:"realm_code,omitempty"`
	IP             string     `bun:"ip" json:"ip,omitempty"`
	Success        bool       `bun:"success,notnull" json:"success"`
	Action         string     `bun:"action,notnull" json:"action,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
