package auth

import (
	"strings"
)

// Predicate is a named authorization check over a resolved payload.
// A nil payload is anonymous and fails every predicate except those
// explicitly written to accept it.
type Predicate func(payload *TokenPayload) bool

// IsAuthenticated passes for any resolved, non-anonymous payload
func IsAuthenticated(payload *TokenPayload) bool {
	return payload != nil && payload.User != ""
}

// IsSuperAdmin passes for platform-wide administrators
func IsSuperAdmin(payload *TokenPayload) bool {
	return payload != nil && payload.IsSuperAdmin
}

// IsDomainAdmin builds a predicate passing for super admins whose
// account sits on the given mail domain.
func IsDomainAdmin(domain string) Predicate {
	suffix := "@" + strings.TrimPrefix(strings.ToLower(domain), "@")
	return func(payload *TokenPayload) bool {
		if !IsSuperAdmin(payload) {
			return false
		}
		return strings.HasSuffix(strings.ToLower(payload.User), suffix)
	}
}

// InPartyGroup builds a predicate passing when the caller belongs to
// the given tenant.
func InPartyGroup(code string) Predicate {
	return func(payload *TokenPayload) bool {
		if payload == nil {
			return false
		}
		for _, pg := range payload.PartyGroups {
			if pg.Code == code {
				return true
			}
		}
		return false
	}
}

// UsesSystem builds a predicate passing when the caller holds a
// membership for the given system in their selected tenant.
func UsesSystem(system string) Predicate {
	return func(payload *TokenPayload) bool {
		if payload == nil {
			return false
		}
		for _, m := range payload.Systems {
			if m.System == system {
				return true
			}
		}
		return false
	}
}

// All combines predicates with AND semantics
func All(predicates ...Predicate) Predicate {
	return func(payload *TokenPayload) bool {
		for _, p := range predicates {
			if !p(payload) {
				return false
			}
		}
		return true
	}
}

// Any combines predicates with OR semantics
func Any(predicates ...Predicate) Predicate {
	return func(payload *TokenPayload) bool {
		for _, p := range predicates {
			if p(payload) {
				return true
			}
		}
		return false
	}
}
