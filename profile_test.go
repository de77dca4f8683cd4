package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/swivelsoftware/tenant-auth"
)

func TestDefaultProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards the bearer token and system header", func(t *testing.T) {
		var gotPath, gotAuth, gotSystem string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotSystem = r.Header.Get("x-system")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"userName":"member@example.com","displayName":"Member"}`))
		}))
		defer srv.Close()

		client := auth.NewProfileClient(srv.URL)
		profile, err := client.DefaultProfile(ctx, "crm", "token-abc")
		require.NoError(t, err)

		assert.Equal(t, "/api/person/default", gotPath)
		assert.Equal(t, "Bearer token-abc", gotAuth)
		assert.Equal(t, "crm", gotSystem)
		assert.Equal(t, "member@example.com", profile["userName"])
		assert.Equal(t, "Member", profile["displayName"])
	})

	t.Run("non-200 response is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		client := auth.NewProfileClient(srv.URL)
		_, err := client.DefaultProfile(ctx, "crm", "token-abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := auth.NewProfileClient(srv.URL)
		_, err := client.DefaultProfile(ctx, "crm", "token-abc")
		require.Error(t, err)
	})
}
