package groups

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/models"
)

func writeTokenFile(t *testing.T, tokens map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	data, err := json.Marshal(tokens)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	path := writeTokenFile(t, map[string]string{
		"apac_desk": "tok-apac",
		"emea_desk": "tok-emea",
		"admin":     "tok-admin",
	})
	service := NewService(path, nil, common.GetLogger())
	require.NoError(t, service.Reload())
	return service
}

func TestAnonymousGetsPublicOnly(t *testing.T) {
	service := newTestService(t)

	access := service.ResolveAccess(nil)

	assert.Equal(t, []string{"public"}, access.Names)
	assert.Equal(t, []string{"grp_public"}, access.GroupIDs)
	assert.False(t, access.IsAdmin)
}

func TestInvalidTokenDegradesToPublic(t *testing.T) {
	service := newTestService(t)

	access := service.ResolveAccess([]string{"tok-bogus"})

	assert.Equal(t, []string{"public"}, access.Names)
	assert.False(t, access.IsAdmin)
}

func TestSingleTokenResolvesGroup(t *testing.T) {
	service := newTestService(t)

	access := service.ResolveAccess([]string{"tok-apac"})

	assert.Equal(t, []string{"apac_desk", "public"}, access.Names)
	assert.True(t, access.CanRead("grp_apac_desk"))
	assert.True(t, access.CanRead("grp_public"))
	assert.False(t, access.CanRead("grp_emea_desk"))
}

func TestMultipleTokensUnion(t *testing.T) {
	service := newTestService(t)

	access := service.ResolveAccess([]string{"tok-apac", "tok-emea"})

	assert.ElementsMatch(t, []string{"apac_desk", "emea_desk", "public"}, access.Names)
}

func TestAdminToken(t *testing.T) {
	service := newTestService(t)

	access := service.ResolveAccess([]string{"tok-admin"})

	assert.True(t, access.IsAdmin)
	assert.NoError(t, service.RequireAdmin(access))
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	service := newTestService(t)

	access := service.ResolveAccess([]string{"tok-apac"})

	assert.ErrorIs(t, service.RequireAdmin(access), models.ErrAdminRequired)
}

func TestWriteGroupSelection(t *testing.T) {
	service := newTestService(t)

	// First non-public group wins
	access := service.ResolveAccess([]string{"tok-apac", "tok-emea"})
	group, err := service.WriteGroup(access)
	require.NoError(t, err)
	assert.Equal(t, "grp_apac_desk", group)

	// Pure admin writes land in the admin group
	access = service.ResolveAccess([]string{"tok-admin"})
	group, err = service.WriteGroup(access)
	require.NoError(t, err)
	assert.Equal(t, "grp_admin", group)

	// Anonymous writes are rejected
	access = service.ResolveAccess(nil)
	_, err = service.WriteGroup(access)
	assert.ErrorIs(t, err, models.ErrAuthRequired)
}

func TestMissingTokenFileIsAnonymousOnly(t *testing.T) {
	service := NewService(filepath.Join(t.TempDir(), "missing.json"), nil, common.GetLogger())
	require.NoError(t, service.Reload())

	access := service.ResolveAccess([]string{"tok-apac"})
	assert.Equal(t, []string{"public"}, access.Names)
}
