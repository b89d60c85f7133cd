package documents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), common.GetLogger())
	require.NoError(t, err)
	return store.(*Store)
}

func testDoc(id, groupID string, createdAt time.Time) *models.Document {
	return &models.Document{
		ID:          id,
		Version:     1,
		SourceID:    "src_reuters",
		GroupID:     groupID,
		CreatedAt:   createdAt,
		Language:    "en",
		Title:       "Pacific Rail upgrades full year guidance",
		Content:     "Pacific Rail raised its full year guidance citing strong freight volumes.",
		WordCount:   11,
		ContentHash: models.ComputeContentHash("Pacific Rail upgrades full year guidance", "body"),
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	doc := testDoc("doc_001", "grp_apac", created)
	doc.Metadata = map[string]interface{}{"desk": "sydney"}
	require.NoError(t, store.Save(doc))

	loaded, err := store.Load("doc_001", "grp_apac", nil)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, loaded.ID)
	assert.Equal(t, doc.Title, loaded.Title)
	assert.Equal(t, doc.ContentHash, loaded.ContentHash)
	assert.True(t, doc.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, "sydney", loaded.Metadata["desk"])
}

func TestSaveRejectsInvalidDocument(t *testing.T) {
	store := newTestStore(t)

	doc := testDoc("doc_bad", "grp_apac", time.Now().UTC())
	doc.Title = ""
	err := store.Save(doc)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	doc := testDoc("doc_001", "grp_apac", created)
	require.NoError(t, store.Save(doc))

	again := testDoc("doc_001", "grp_apac", created)
	again.Title = "Rewritten title"
	err := store.Save(again)
	assert.ErrorIs(t, err, models.ErrValidation)

	// Original record untouched
	loaded, err := store.Load("doc_001", "grp_apac", nil)
	require.NoError(t, err)
	assert.Equal(t, "Pacific Rail upgrades full year guidance", loaded.Title)
}

func TestLoadWithDateHint(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Save(testDoc("doc_001", "grp_apac", created)))

	hint := created
	loaded, err := store.Load("doc_001", "grp_apac", &hint)
	require.NoError(t, err)
	assert.Equal(t, "doc_001", loaded.ID)

	// A wrong hint falls back to the directory scan
	wrong := created.AddDate(0, 0, 5)
	loaded, err = store.Load("doc_001", "grp_apac", &wrong)
	require.NoError(t, err)
	assert.Equal(t, "doc_001", loaded.ID)
}

func TestLoadMissingDocument(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("doc_ghost", "grp_apac", nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccessCheckDistinguishesDeniedFromMissing(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Save(testDoc("doc_emea", "grp_emea", created)))

	// Document exists but in a group the caller cannot read
	_, err := store.LoadWithAccessCheck("doc_emea", []string{"grp_apac", "grp_public"}, nil)
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	// Document does not exist anywhere
	_, err = store.LoadWithAccessCheck("doc_ghost", []string{"grp_apac"}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Caller with the right group reads it
	loaded, err := store.LoadWithAccessCheck("doc_emea", []string{"grp_emea"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "doc_emea", loaded.ID)
}

func TestListByGroup(t *testing.T) {
	store := newTestStore(t)
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(testDoc("doc_a", "grp_apac", day1)))
	require.NoError(t, store.Save(testDoc("doc_b", "grp_apac", day2)))
	require.NoError(t, store.Save(testDoc("doc_c", "grp_emea", day2)))

	docs, err := store.ListByGroup("grp_apac", nil, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	// Newest dated directory first
	assert.Equal(t, "doc_b", docs[0].ID)
	assert.Equal(t, "doc_a", docs[1].ID)

	docs, err = store.ListByGroup("grp_apac", &day1, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc_a", docs[0].ID)

	docs, err = store.ListByGroup("grp_apac", nil, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestListByDateRange(t *testing.T) {
	store := newTestStore(t)
	for day := 10; day <= 14; day++ {
		created := time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)
		require.NoError(t, store.Save(testDoc(common.NewDocumentID(), "grp_apac", created)))
	}

	from := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 13, 23, 59, 59, 0, time.UTC)
	docs, err := store.ListByDateRange("grp_apac", from, to, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	for _, doc := range docs {
		assert.False(t, doc.CreatedAt.Before(from))
		assert.False(t, doc.CreatedAt.After(to))
	}
}

func TestListByPermittedGroups(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(testDoc("doc_a", "grp_apac", created)))
	require.NoError(t, store.Save(testDoc("doc_p", "grp_public", created)))
	require.NoError(t, store.Save(testDoc("doc_e", "grp_emea", created)))

	docs, err := store.ListByPermittedGroups([]string{"grp_apac", "grp_public"}, nil, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	ids := []string{docs[0].ID, docs[1].ID}
	assert.Contains(t, ids, "doc_a")
	assert.Contains(t, ids, "doc_p")
}

func TestVersionChain(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	v1 := testDoc("doc_v1", "grp_apac", created)
	require.NoError(t, store.Save(v1))

	v2 := testDoc("doc_v2", "grp_apac", created.Add(2*time.Hour))
	v2.Version = 2
	v2.PreviousVersionID = "doc_v1"
	v2.Title = "Pacific Rail upgrades full year guidance (updated)"
	require.NoError(t, store.Save(v2))

	v3 := testDoc("doc_v3", "grp_apac", created.Add(4*time.Hour))
	v3.Version = 3
	v3.PreviousVersionID = "doc_v2"
	require.NoError(t, store.Save(v3))

	chain, err := store.GetVersionChain("doc_v3", "grp_apac")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "doc_v1", chain[0].ID)
	assert.Equal(t, "doc_v2", chain[1].ID)
	assert.Equal(t, "doc_v3", chain[2].ID)
}

func TestDeleteRemovesFile(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(testDoc("doc_gone", "grp_apac", created)))
	require.True(t, store.Exists("doc_gone", "grp_apac"))

	require.NoError(t, store.Delete("doc_gone", "grp_apac"))
	assert.False(t, store.Exists("doc_gone", "grp_apac"))

	err := store.Delete("doc_gone", "grp_apac")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
