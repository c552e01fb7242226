package space

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacecache/spacecache/internal/cda"
	"github.com/spacecache/spacecache/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

// fakeAPI serves the delivery API surface the sync path touches:
// paginated collections plus the delta endpoint.
type fakeAPI struct {
	mu sync.Mutex

	collections map[string][]string // collection name -> raw docs
	delta       []string            // items the next delta pass returns
	nextToken   string              // token the delta pass hands out

	collectionCalls map[string]int
	syncCalls       int
	syncTokensSeen  []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		collections:     map[string][]string{},
		nextToken:       "tok-1",
		collectionCalls: map[string]int{},
	}
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		name := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

		if name == "sync" {
			f.syncCalls++
			f.syncTokensSeen = append(f.syncTokensSeen, r.URL.Query().Get("sync_token"))

			items := make([]json.RawMessage, 0, len(f.delta))
			for _, raw := range f.delta {
				items = append(items, json.RawMessage(raw))
			}

			json.NewEncoder(w).Encode(map[string]any{
				"items":       items,
				"nextSyncUrl": "https://cdn.example.com/sync?sync_token=" + f.nextToken,
			})

			return
		}

		f.collectionCalls[name]++

		docs := f.collections[name]
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		items := []json.RawMessage{}
		for i := skip; i < len(docs) && i < skip+limit; i++ {
			items = append(items, json.RawMessage(docs[i]))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"total": len(docs),
			"skip":  skip,
			"limit": limit,
			"items": items,
		})
	})
}

func newTestClient(t *testing.T, api *fakeAPI) *cda.Client {
	t.Helper()

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	return cda.NewClient(srv.URL, "space1", srv.Client(), cda.StaticToken("tok"), testLogger())
}

func entryRaw(id, title string) string {
	return fmt.Sprintf(`{
		"sys": {
			"id": %q, "type": "Entry",
			"contentType": {"sys": {"type": "Link", "linkType": "ContentType", "id": "CT1"}}
		},
		"fields": {"title": %q}
	}`, id, title)
}

func TestRetrieve_DrainsAllPages(t *testing.T) {
	api := newFakeAPI()
	for i := range 25 {
		api.collections[cda.CollectionEntries] = append(
			api.collections[cda.CollectionEntries],
			entryRaw(fmt.Sprintf("E%03d", i), "x"),
		)
	}

	st := openTestStore(t)
	in := NewIngestor(newTestClient(t, api), st, testLogger(), 3, 10)

	n, err := in.Retrieve(context.Background(), cda.CollectionEntries)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	// Every item from every page landed exactly once.
	count, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, count)

	// 25 items at page size 10 is three pages.
	assert.Equal(t, 3, api.collectionCalls[cda.CollectionEntries])
}

func TestRetrieve_EmptyCollection(t *testing.T) {
	api := newFakeAPI()
	st := openTestStore(t)
	in := NewIngestor(newTestClient(t, api), st, testLogger(), 2, 10)

	n, err := in.Retrieve(context.Background(), cda.CollectionAssets)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRetrieve_UndecodableItemAborts(t *testing.T) {
	api := newFakeAPI()
	api.collections[cda.CollectionEntries] = []string{
		entryRaw("E1", "ok"),
		`{"sys": {"type": "Entry"}}`, // no sys.id
	}

	st := openTestStore(t)
	in := NewIngestor(newTestClient(t, api), st, testLogger(), 2, 10)

	_, err := in.Retrieve(context.Background(), cda.CollectionEntries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sys.id")
}

func TestApply_SkipsDeletionTombstones(t *testing.T) {
	st := openTestStore(t)
	in := NewIngestor(nil, st, testLogger(), 2, 0)

	batch := []json.RawMessage{
		json.RawMessage(entryRaw("E1", "a")),
		json.RawMessage(`{"sys": {"id": "E2", "type": "DeletedEntry"}}`),
		json.RawMessage(`{"sys": {"id": "A1", "type": "DeletedAsset"}}`),
		json.RawMessage(entryRaw("E3", "b")),
	}

	applied, err := in.Apply(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	count, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestApply_EmptyBatch(t *testing.T) {
	st := openTestStore(t)
	in := NewIngestor(nil, st, testLogger(), 2, 0)

	applied, err := in.Apply(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, applied)
}
