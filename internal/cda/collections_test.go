package cda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectionServer serves a synthetic collection of total items, honoring
// skip and limit like the real API.
func collectionServer(t *testing.T, total int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		var items []json.RawMessage
		for i := skip; i < total && i < skip+limit; i++ {
			items = append(items, json.RawMessage(fmt.Sprintf(
				`{"sys": {"id": "E%03d", "type": "Entry"}, "fields": {}}`, i)))
		}

		json.NewEncoder(w).Encode(collectionResponse{
			Total: total,
			Skip:  skip,
			Limit: limit,
			Items: items,
		})
	}))
}

func TestCollection_SinglePage(t *testing.T) {
	srv := collectionServer(t, 3)
	defer srv.Close()

	c, _ := newTestClient(t, srv)

	page, err := c.Collection(context.Background(), CollectionEntries, 0, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 3)
	assert.True(t, page.Last())
}

func TestCollection_Pagination(t *testing.T) {
	srv := collectionServer(t, 25)
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	ctx := context.Background()

	seen := map[string]bool{}

	skip := 0
	for {
		page, err := c.Collection(ctx, CollectionEntries, skip, 10)
		require.NoError(t, err)

		for _, raw := range page.Items {
			var doc struct {
				Sys struct {
					ID string `json:"id"`
				} `json:"sys"`
			}
			require.NoError(t, json.Unmarshal(raw, &doc))
			seen[doc.Sys.ID] = true
		}

		if page.Last() {
			break
		}

		skip += len(page.Items)
	}

	assert.Len(t, seen, 25, "every item appears exactly once across pages")
}

func TestCollection_DefaultLimit(t *testing.T) {
	var gotLimit string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(collectionResponse{})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)

	_, err := c.Collection(context.Background(), CollectionAssets, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(defaultPageSize), gotLimit)
}

func TestCollectionPage_Last(t *testing.T) {
	tests := []struct {
		name string
		page CollectionPage
		want bool
	}{
		{"full single page", CollectionPage{Total: 3, Skip: 0, Items: make([]json.RawMessage, 3)}, true},
		{"more remaining", CollectionPage{Total: 10, Skip: 0, Items: make([]json.RawMessage, 3)}, false},
		{"final partial page", CollectionPage{Total: 10, Skip: 7, Items: make([]json.RawMessage, 3)}, true},
		{"empty page", CollectionPage{Total: 10, Skip: 4, Items: nil}, true},
		{"empty collection", CollectionPage{Total: 0, Skip: 0, Items: nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.page.Last())
		})
	}
}
