package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/swivelsoftware/tenant-auth"
)

func TestClaimsPayloadSeed(t *testing.T) {
	authID := uuid.New()
	entityID := uuid.New()
	aliasID := uuid.New()

	claims := &auth.AccessClaims{
		AuthenticationID: authID.String(),
		AuthTypeCode:     auth.AuthTypeLocal,
		Username:         "test@example.com",
		EntityType:       auth.EntityPerson,
		EntityID:         entityID.String(),
		AliasID:          aliasID.String(),
		Customer:         "ACME",
		IsSuperAdmin:     true,
	}

	payload, err := claims.Payload()
	require.NoError(t, err)

	assert.Equal(t, authID, payload.AuthenticationID)
	assert.Equal(t, entityID, payload.EntityID)
	require.NotNil(t, payload.AliasID)
	assert.Equal(t, aliasID, *payload.AliasID)
	assert.Equal(t, "test@example.com", payload.User)
	assert.Equal(t, "ACME", payload.Customer)
	assert.True(t, payload.IsSuperAdmin)
}

func TestClaimsPayloadRejectsBadIDs(t *testing.T) {
	claims := &auth.AccessClaims{
		AuthenticationID: "not-a-uuid",
		Username:         "test@example.com",
	}

	_, err := claims.Payload()
	assert.Error(t, err)

	claims = &auth.AccessClaims{
		AuthenticationID: uuid.New().String(),
		Username:         "test@example.com",
		EntityID:         "not-a-uuid",
	}

	_, err = claims.Payload()
	assert.Error(t, err)
}

func TestPayloadClone(t *testing.T) {
	aliasID := uuid.New()
	payload := &auth.TokenPayload{
		User:           "test@example.com",
		AliasID:        &aliasID,
		PartyGroups:    []auth.PartyGroupRef{{Code: "ACME"}},
		Systems:        []auth.SystemMembership{{System: "crm"}},
		ThirdPartyCode: map[string]string{"crm": "codeX"},
	}
	payload.SelectedPartyGroup = &payload.PartyGroups[0]

	clone := payload.Clone()
	clone.PartyGroups[0].Code = "GLOBEX"
	clone.ThirdPartyCode["crm"] = "mutated"
	*clone.AliasID = uuid.New()
	clone.SelectedPartyGroup.Code = "GLOBEX"

	assert.Equal(t, "ACME", payload.PartyGroups[0].Code)
	assert.Equal(t, "codeX", payload.ThirdPartyCode["crm"])
	assert.Equal(t, aliasID, *payload.AliasID)
	assert.Equal(t, "ACME", payload.SelectedPartyGroup.Code)

	assert.Nil(t, (*auth.TokenPayload)(nil).Clone())
}
