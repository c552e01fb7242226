package space

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacecache/spacecache/internal/cda"
	"github.com/spacecache/spacecache/internal/config"
	"github.com/spacecache/spacecache/internal/statefile"
	"github.com/spacecache/spacecache/internal/store"
)

const contentTypeRaw = `{
	"sys": {"id": "CT1", "type": "ContentType"},
	"name": "Post",
	"fields": {"displayField": "title"}
}`

const assetRaw = `{
	"sys": {"id": "A1", "type": "Asset"},
	"fields": {"file": {"url": "//img/a1.png"}}
}`

type coordinatorHarness struct {
	api         *fakeAPI
	store       *store.Store
	coordinator *Coordinator
	statePath   string
}

func newHarness(t *testing.T, policy string, ttl time.Duration) *coordinatorHarness {
	t.Helper()

	api := newFakeAPI()
	client := newTestClient(t, api)
	st := openTestStore(t)
	statePath := filepath.Join(t.TempDir(), "space-space1.state.json")

	ingestor := NewIngestor(client, st, testLogger(), 2, 10)
	coord := NewCoordinator(client, st, ingestor, testLogger(), "space1", statePath, policy, ttl)

	return &coordinatorHarness{
		api:         api,
		store:       st,
		coordinator: coord,
		statePath:   statePath,
	}
}

// seedState writes a prior sync token and backdates the state file's
// mtime by age.
func (h *coordinatorHarness) seedState(t *testing.T, token string, age time.Duration) {
	t.Helper()

	require.NoError(t, statefile.Save(h.statePath, &statefile.State{
		SpaceID:   "space1",
		SyncToken: token,
	}))

	past := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(h.statePath, past, past))
}

func TestDecide(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		policy       string
		hasPriorSync bool
		age          time.Duration
		want         Mode
	}{
		{"no prior sync always full", config.PolicyTTL, false, 0, ModeFull},
		{"no prior sync overrides cache-only", config.PolicyCacheOnly, false, 0, ModeFull},
		{"disabled rebuilds", config.PolicyDisabled, true, time.Minute, ModeRebuild},
		{"cache-only skips", config.PolicyCacheOnly, true, 24 * time.Hour, ModeSkip},
		{"ttl fresh skips", config.PolicyTTL, true, 30 * time.Minute, ModeSkip},
		{"ttl stale goes incremental", config.PolicyTTL, true, 90 * time.Minute, ModeIncremental},
		{"ttl exactly elapsed goes incremental", config.PolicyTTL, true, time.Hour, ModeIncremental},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coordinator{
				policy:  tt.policy,
				ttl:     time.Hour,
				nowFunc: func() time.Time { return now },
			}

			got := c.decide(tt.hasPriorSync, now.Add(-tt.age))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSync_FirstRunIsFull(t *testing.T) {
	h := newHarness(t, config.PolicyTTL, time.Hour)
	h.api.collections[cda.CollectionContentTypes] = []string{contentTypeRaw}
	h.api.collections[cda.CollectionEntries] = []string{entryRaw("E1", "First"), entryRaw("E2", "Second")}
	h.api.collections[cda.CollectionAssets] = []string{assetRaw}

	ctx := context.Background()

	result, err := h.coordinator.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, ModeFull, result.Mode)
	assert.Equal(t, 4, result.Documents)
	assert.NotEmpty(t, result.CycleID)

	count, err := h.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// The continuation token from the trailing delta pass is persisted.
	state, _, err := statefile.Load(h.statePath)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "tok-1", state.SyncToken)
	assert.Equal(t, "space1", state.SpaceID)
}

func TestSync_TTLFreshSkips(t *testing.T) {
	h := newHarness(t, config.PolicyTTL, time.Hour)
	h.seedState(t, "tok-old", 30*time.Minute)

	result, err := h.coordinator.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeSkip, result.Mode)
	assert.Zero(t, result.Documents)

	// The network was never touched.
	assert.Zero(t, h.api.syncCalls)
	assert.Empty(t, h.api.collectionCalls)
}

func TestSync_CacheOnlySkips(t *testing.T) {
	h := newHarness(t, config.PolicyCacheOnly, time.Hour)
	h.seedState(t, "tok-old", 48*time.Hour)

	result, err := h.coordinator.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeSkip, result.Mode)
	assert.Zero(t, h.api.syncCalls)
}

func TestSync_TTLStaleGoesIncremental(t *testing.T) {
	h := newHarness(t, config.PolicyTTL, time.Hour)
	ctx := context.Background()

	// Prior state: one content type, one stale entry, a 90-minute-old token.
	require.NoError(t, h.store.Upsert(ctx, mustDecode(t, contentTypeRaw)))
	require.NoError(t, h.store.Upsert(ctx, mustDecode(t, entryRaw("E1", "Old title"))))
	h.seedState(t, "tok-old", 90*time.Minute)

	h.api.delta = []string{entryRaw("E1", "New title"), entryRaw("E2", "Brand new")}
	h.api.nextToken = "tok-2"

	result, err := h.coordinator.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, result.Mode)
	assert.Equal(t, 2, result.Documents)

	// The delta pass resumed from the saved token.
	require.Len(t, h.api.syncTokensSeen, 1)
	assert.Equal(t, "tok-old", h.api.syncTokensSeen[0])

	// Changed documents landed, the new token was persisted.
	e1, err := h.store.ByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "New title", e1.Fields["title"].Scalar)

	state, _, err := statefile.Load(h.statePath)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", state.SyncToken)
}

func TestSync_DisabledPolicyRebuilds(t *testing.T) {
	h := newHarness(t, config.PolicyDisabled, time.Hour)
	ctx := context.Background()

	// A document that no longer exists remotely.
	require.NoError(t, h.store.Upsert(ctx, mustDecode(t, entryRaw("ghost", "gone remotely"))))
	h.seedState(t, "tok-old", time.Minute)

	h.api.collections[cda.CollectionContentTypes] = []string{contentTypeRaw}
	h.api.collections[cda.CollectionEntries] = []string{entryRaw("E1", "fresh")}

	result, err := h.coordinator.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeRebuild, result.Mode)

	// The rebuild dropped everything first, so the ghost is gone.
	ghost, err := h.store.ByID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, ghost)

	count, err := h.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSync_IncrementalBootstrapsContentTypes(t *testing.T) {
	h := newHarness(t, config.PolicyTTL, time.Hour)
	ctx := context.Background()

	// Prior sync exists but the store holds no content types, as after a
	// crash between invalidation and re-ingestion.
	h.seedState(t, "tok-old", 90*time.Minute)
	h.api.collections[cda.CollectionContentTypes] = []string{contentTypeRaw}

	result, err := h.coordinator.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, result.Mode)

	n, err := h.store.CountByType(ctx, store.TypeContentType)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, h.api.collectionCalls[cda.CollectionContentTypes])
}

func TestSync_IncrementalSkipsBootstrapWhenTypesPresent(t *testing.T) {
	h := newHarness(t, config.PolicyTTL, time.Hour)
	ctx := context.Background()

	require.NoError(t, h.store.Upsert(ctx, mustDecode(t, contentTypeRaw)))
	h.seedState(t, "tok-old", 90*time.Minute)

	_, err := h.coordinator.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, h.api.collectionCalls[cda.CollectionContentTypes])
}

func mustDecode(t *testing.T, raw string) *store.Document {
	t.Helper()

	doc, err := store.DecodeDocument([]byte(raw))
	require.NoError(t, err)

	return doc
}
