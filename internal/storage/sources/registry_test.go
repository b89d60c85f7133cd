package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// mirrorSpy records graph mirror calls without a real graph backend
type mirrorSpy struct {
	interfaces.GraphIndex
	mirrored []*models.Source
}

func (m *mirrorSpy) MirrorSource(source *models.Source) error {
	m.mirrored = append(m.mirrored, source)
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *mirrorSpy) {
	t.Helper()
	spy := &mirrorSpy{}
	registry, err := NewRegistry(t.TempDir(), spy, common.GetLogger())
	require.NoError(t, err)
	return registry, spy
}

func testSource(id, groupID string) *models.Source {
	return &models.Source{
		SourceID:   id,
		GroupID:    groupID,
		Name:       "Reuters Asia",
		Type:       models.SourceNewsAgency,
		Region:     "APAC",
		Languages:  []string{"en", "ja"},
		TrustLevel: models.TrustHigh,
	}
}

func TestCreateAndGet(t *testing.T) {
	registry, spy := newTestRegistry(t)

	created, err := registry.Create(testSource("src_reuters", "grp_apac"), "apac_desk")
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.False(t, created.CreatedAt.IsZero())

	loaded, err := registry.Get("src_reuters", nil)
	require.NoError(t, err)
	assert.Equal(t, "Reuters Asia", loaded.Name)
	assert.Equal(t, models.TrustHigh, loaded.TrustLevel)

	require.Len(t, spy.mirrored, 1)
	assert.Equal(t, "src_reuters", spy.mirrored[0].SourceID)
}

func TestCreateDefaultsTrustToUnverified(t *testing.T) {
	registry, _ := newTestRegistry(t)

	source := testSource("src_blog", "grp_apac")
	source.TrustLevel = ""
	created, err := registry.Create(source, "apac_desk")
	require.NoError(t, err)
	assert.Equal(t, models.TrustUnverified, created.TrustLevel)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Create(testSource("src_reuters", "grp_apac"), "apac_desk")
	require.NoError(t, err)

	_, err = registry.Create(testSource("src_reuters", "grp_emea"), "emea_desk")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGetEnforcesGroupAccess(t *testing.T) {
	registry, _ := newTestRegistry(t)
	_, err := registry.Create(testSource("src_reuters", "grp_apac"), "apac_desk")
	require.NoError(t, err)

	_, err = registry.Get("src_reuters", []string{"grp_emea"})
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	_, err = registry.Get("src_ghost", []string{"grp_apac"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	loaded, err := registry.Get("src_reuters", []string{"grp_apac", "grp_public"})
	require.NoError(t, err)
	assert.Equal(t, "src_reuters", loaded.SourceID)
}

func TestListFilters(t *testing.T) {
	registry, _ := newTestRegistry(t)

	apac := testSource("src_reuters", "grp_apac")
	_, err := registry.Create(apac, "apac_desk")
	require.NoError(t, err)

	emea := testSource("src_ft", "grp_emea")
	emea.Name = "Financial Times"
	emea.Region = "EMEA"
	emea.Type = models.SourceResearch
	_, err = registry.Create(emea, "emea_desk")
	require.NoError(t, err)

	all, err := registry.List(interfaces.SourceListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byRegion, err := registry.List(interfaces.SourceListOptions{Region: "APAC"})
	require.NoError(t, err)
	require.Len(t, byRegion, 1)
	assert.Equal(t, "src_reuters", byRegion[0].SourceID)

	byType, err := registry.List(interfaces.SourceListOptions{Type: "research"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "src_ft", byType[0].SourceID)

	byGroup, err := registry.List(interfaces.SourceListOptions{GroupID: "grp_emea"})
	require.NoError(t, err)
	require.Len(t, byGroup, 1)
	assert.Equal(t, "src_ft", byGroup[0].SourceID)
}

func TestUpdateAppliesDiffAndAudits(t *testing.T) {
	registry, spy := newTestRegistry(t)
	_, err := registry.Create(testSource("src_reuters", "grp_apac"), "apac_desk")
	require.NoError(t, err)

	updated, err := registry.Update("src_reuters", map[string]interface{}{
		"trust_level": "medium",
		"name":        "Reuters APAC Desk",
	}, []string{"grp_apac"})
	require.NoError(t, err)
	assert.Equal(t, models.TrustMedium, updated.TrustLevel)
	assert.Equal(t, "Reuters APAC Desk", updated.Name)

	// Mirrored on create and again on update
	assert.Len(t, spy.mirrored, 2)

	log, err := registry.GetAuditLog("src_reuters")
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "update", log[0].Action)
	assert.Equal(t, "create", log[1].Action)
	assert.Contains(t, log[0].Diff, "trust_level")
}

func TestUpdateRejectsUnknownFieldAndValues(t *testing.T) {
	registry, _ := newTestRegistry(t)
	_, err := registry.Create(testSource("src_reuters", "grp_apac"), "apac_desk")
	require.NoError(t, err)

	_, err = registry.Update("src_reuters", map[string]interface{}{"source_id": "src_other"}, []string{"grp_apac"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = registry.Update("src_reuters", map[string]interface{}{"trust_level": "platinum"}, []string{"grp_apac"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = registry.Update("src_reuters", map[string]interface{}{"type": "carrier_pigeon"}, []string{"grp_apac"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateNoOpSkipsAudit(t *testing.T) {
	registry, _ := newTestRegistry(t)
	_, err := registry.Create(testSource("src_reuters", "grp_apac"), "apac_desk")
	require.NoError(t, err)

	_, err = registry.Update("src_reuters", map[string]interface{}{"name": "Reuters Asia"}, []string{"grp_apac"})
	require.NoError(t, err)

	log, err := registry.GetAuditLog("src_reuters")
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestSoftDeletePreservesRecord(t *testing.T) {
	registry, _ := newTestRegistry(t)
	_, err := registry.Create(testSource("src_reuters", "grp_apac"), "apac_desk")
	require.NoError(t, err)

	deleted, err := registry.SoftDelete("src_reuters", []string{"grp_apac"})
	require.NoError(t, err)
	assert.False(t, deleted.Active)
	require.NotNil(t, deleted.DeletedAt)

	// Hidden from default listings, visible when inactive included
	active, err := registry.List(interfaces.SourceListOptions{})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := registry.List(interfaces.SourceListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Deleting twice is a no-op
	again, err := registry.SoftDelete("src_reuters", []string{"grp_apac"})
	require.NoError(t, err)
	assert.False(t, again.Active)

	log, err := registry.GetAuditLog("src_reuters")
	require.NoError(t, err)
	assert.Len(t, log, 2)
}

func TestAuditLogEmptyForUnknownSource(t *testing.T) {
	registry, _ := newTestRegistry(t)
	log, err := registry.GetAuditLog("src_ghost")
	require.NoError(t, err)
	assert.Empty(t, log)
}
