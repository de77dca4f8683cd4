package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates short-lived access tokens from the longer-lived
// refresh tokens transmitted through the x-refresh-token header.
type TokenKind = string

const (
	// TokenKindAccess is the bearer token presented on every request
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh can only be exchanged for a new access token
	TokenKindRefresh TokenKind = "refresh"
)

// AccessClaims is the signed shape crossing the wire. The minimal
// triple is authentication id, auth type code and username; the entity
// fields ride along so the resolver can expand a bare token without a
// second credential lookup.
type AccessClaims struct {
	jwt.RegisteredClaims
	AuthenticationID string     `json:"aid"`
	AuthTypeCode     string     `json:"aty"`
	Username         string     `json:"usr"`
	EntityType       EntityKind `json:"ety,omitempty"`
	EntityID         string     `json:"eid,omitempty"`
	AliasID          string     `json:"als,omitempty"`
	Customer         string     `json:"cst,omitempty"`
	IsSuperAdmin     bool       `json:"sup,omitempty"`
	Kind             TokenKind  `json:"knd,omitempty"`
}

// AuthenticationUUID parses the authentication id claim
func (c *AccessClaims) AuthenticationUUID() (uuid.UUID, error) {
	return uuid.Parse(c.AuthenticationID)
}

// IssuedAtTime returns the issue instant, zero when absent
func (c *AccessClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ExpiresAtTime returns the expiry instant, zero when absent
func (c *AccessClaims) ExpiresAtTime() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IsRefresh reports whether these claims belong to a refresh token
func (c *AccessClaims) IsRefresh() bool {
	return c.Kind == TokenKindRefresh
}

// Payload seeds a minimal TokenPayload from the claims; the resolver
// fills in the tenant and system slices.
func (c *AccessClaims) Payload() (*TokenPayload, error) {
	authID, err := c.AuthenticationUUID()
	if err != nil {
		return nil, err
	}

	payload := &TokenPayload{
		AuthenticationID: authID,
		AuthTypeCode:     c.AuthTypeCode,
		EntityType:       c.EntityType,
		Customer:         c.Customer,
		User:             c.Username,
		IsSuperAdmin:     c.IsSuperAdmin,
	}

	if c.EntityID != "" {
		if payload.EntityID, err = uuid.Parse(c.EntityID); err != nil {
			return nil, err
		}
	}

	if c.AliasID != "" {
		alias, err := uuid.Parse(c.AliasID)
		if err != nil {
			return nil, err
		}
		payload.AliasID = &alias
	}

	return payload, nil
}
