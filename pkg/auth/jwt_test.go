package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationTokenRoundTrip(t *testing.T) {
	token, err := GenerateOrganization("org-1", "ops@acme.test", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Empty(t, claims.AdminID)
	assert.Equal(t, "ops@acme.test", claims.Email)
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdmin("admin-1", "root@acme.test", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Empty(t, claims.OrganizationID)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Parse("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateOrganization("org-1", "ops@acme.test", -time.Minute)
	require.NoError(t, err)
	_, err = Parse(token)
	assert.ErrorIs(t, err, ErrInvalid)
}
