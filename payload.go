package auth

import (
	"github.com/google/uuid"
)

// EntityKind tags the kind of caller a token represents. Resolution
// dispatches on it through a closed function table, so an unknown kind
// can only come from a token minted outside this module.
type EntityKind string

const (
	// EntityPerson is a human caller
	EntityPerson EntityKind = "person"
	// EntityAPI is a machine caller
	EntityAPI EntityKind = "api"
)

// PartyGroupRef is the tenant slice of a resolved context
type PartyGroupRef struct {
	Code    string         `json:"code"`
	Name    string         `json:"name"`
	Systems []SystemConfig `json:"systems,omitempty"`
}

// SystemMembership is one per-system membership of the caller within
// the selected tenant.
type SystemMembership struct {
	ID       uuid.UUID        `json:"id"`
	Type     PersonSystemType `json:"type"`
	Code     string           `json:"code,omitempty"`
	Customer string           `json:"customer"`
	System   string           `json:"system"`
}

// TokenPayload is the fully resolved authorization context exchanged
// between the lifecycle manager, the resolver, and the cache. It is
// what a request handler sees after a bearer token has been validated.
type TokenPayload struct {
	AuthenticationID uuid.UUID  `json:"authenticationId"`
	AuthTypeCode     string     `json:"authTypeCode"`
	EntityType       EntityKind `json:"entityType"`
	EntityID         uuid.UUID  `json:"entityId"`
	AliasID          *uuid.UUID `json:"aliasId,omitempty"`

	Customer     string `json:"customer,omitempty"`
	User         string `json:"user"`
	IsSuperAdmin bool   `json:"isSuperAdmin,omitempty"`

	PartyGroups        []PartyGroupRef    `json:"partyGroups,omitempty"`
	SelectedPartyGroup *PartyGroupRef     `json:"selectedPartyGroup,omitempty"`
	Systems            []SystemMembership `json:"systems,omitempty"`
	ThirdPartyCode     map[string]string  `json:"thirdPartyCode,omitempty"`

	// AccessToken is the token the caller should keep using. During
	// proactive renewal it carries the freshly minted replacement.
	AccessToken string `json:"accessToken,omitempty"`
	// IssuedAt is the issue instant in unix milliseconds.
	IssuedAt int64 `json:"iat"`
}

// Clone returns a copy safe to hand to callers while the original sits
// in a shared cache. Maps and slices are copied one level deep, which
// covers every mutable field the payload exposes.
func (p *TokenPayload) Clone() *TokenPayload {
	if p == nil {
		return nil
	}

	out := *p

	if p.PartyGroups != nil {
		out.PartyGroups = make([]PartyGroupRef, len(p.PartyGroups))
		copy(out.PartyGroups, p.PartyGroups)
	}

	if p.SelectedPartyGroup != nil {
		selected := *p.SelectedPartyGroup
		out.SelectedPartyGroup = &selected
	}

	if p.Systems != nil {
		out.Systems = make([]SystemMembership, len(p.Systems))
		copy(out.Systems, p.Systems)
	}

	if p.ThirdPartyCode != nil {
		out.ThirdPartyCode = make(map[string]string, len(p.ThirdPartyCode))
		for k, v := range p.ThirdPartyCode {
			out.ThirdPartyCode[k] = v
		}
	}

	if p.AliasID != nil {
		alias := *p.AliasID
		out.AliasID = &alias
	}

	return &out
}
