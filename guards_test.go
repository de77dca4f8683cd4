package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	auth "github.com/swivelsoftware/tenant-auth"
)

func guardPayload() *auth.TokenPayload {
	return &auth.TokenPayload{
		User:     "admin@swivelsoftware.com",
		Customer: "ACME",
		PartyGroups: []auth.PartyGroupRef{
			{Code: "ACME"},
			{Code: "GLOBEX"},
		},
		Systems: []auth.SystemMembership{
			{System: "crm", Customer: "ACME"},
		},
		IsSuperAdmin: true,
	}
}

func TestGuards(t *testing.T) {
	payload := guardPayload()

	t.Run("anonymous fails every predicate", func(t *testing.T) {
		assert.False(t, auth.IsAuthenticated(nil))
		assert.False(t, auth.IsSuperAdmin(nil))
		assert.False(t, auth.IsDomainAdmin("swivelsoftware.com")(nil))
		assert.False(t, auth.InPartyGroup("ACME")(nil))
		assert.False(t, auth.UsesSystem("crm")(nil))
	})

	t.Run("authenticated", func(t *testing.T) {
		assert.True(t, auth.IsAuthenticated(payload))
		assert.False(t, auth.IsAuthenticated(&auth.TokenPayload{}))
	})

	t.Run("super admin", func(t *testing.T) {
		assert.True(t, auth.IsSuperAdmin(payload))

		regular := guardPayload()
		regular.IsSuperAdmin = false
		assert.False(t, auth.IsSuperAdmin(regular))
	})

	t.Run("domain admin", func(t *testing.T) {
		assert.True(t, auth.IsDomainAdmin("swivelsoftware.com")(payload))
		assert.True(t, auth.IsDomainAdmin("@swivelsoftware.com")(payload))
		assert.False(t, auth.IsDomainAdmin("example.com")(payload))

		outsider := guardPayload()
		outsider.User = "admin@example.com"
		assert.False(t, auth.IsDomainAdmin("swivelsoftware.com")(outsider))
	})

	t.Run("party group membership", func(t *testing.T) {
		assert.True(t, auth.InPartyGroup("ACME")(payload))
		assert.True(t, auth.InPartyGroup("GLOBEX")(payload))
		assert.False(t, auth.InPartyGroup("INITECH")(payload))
	})

	t.Run("system membership", func(t *testing.T) {
		assert.True(t, auth.UsesSystem("crm")(payload))
		assert.False(t, auth.UsesSystem("billing")(payload))
	})

	t.Run("combinators", func(t *testing.T) {
		assert.True(t, auth.All(auth.IsAuthenticated, auth.IsSuperAdmin)(payload))
		assert.False(t, auth.All(auth.IsAuthenticated, auth.UsesSystem("billing"))(payload))
		assert.True(t, auth.Any(auth.UsesSystem("billing"), auth.InPartyGroup("ACME"))(payload))
		assert.False(t, auth.Any(auth.UsesSystem("billing"), auth.InPartyGroup("INITECH"))(payload))
	})
}
