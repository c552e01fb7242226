package cda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

// Collection names the delivery API exposes as paginated listings.
const (
	CollectionContentTypes = "content_types"
	CollectionEntries      = "entries"
	CollectionAssets       = "assets"
)

// defaultPageSize is the API's default limit when the caller passes 0.
const defaultPageSize = 100

// collectionResponse mirrors the API's paginated collection envelope.
// Unexported — callers receive CollectionPage values.
type collectionResponse struct {
	Total int               `json:"total"`
	Skip  int               `json:"skip"`
	Limit int               `json:"limit"`
	Items []json.RawMessage `json:"items"`
}

// CollectionPage is one page of a paginated collection. Items are raw
// documents; the store layer decodes them so this package stays free of
// the document model.
type CollectionPage struct {
	Total int
	Skip  int
	Items []json.RawMessage
}

// Last reports whether this page completes the collection.
func (p *CollectionPage) Last() bool {
	return p.Skip+len(p.Items) >= p.Total || len(p.Items) == 0
}

// Collection fetches one page of a collection, skipping the first skip
// items. limit <= 0 uses the API default page size.
func (c *Client) Collection(ctx context.Context, name string, skip, limit int) (*CollectionPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	query := url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	}

	resp, err := c.get(ctx, "/"+name, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cr collectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("cda: decoding %s page: %w", name, err)
	}

	c.logger.Debug("fetched collection page",
		slog.String("collection", name),
		slog.Int("skip", cr.Skip),
		slog.Int("items", len(cr.Items)),
		slog.Int("total", cr.Total),
	)

	return &CollectionPage{
		Total: cr.Total,
		Skip:  cr.Skip,
		Items: cr.Items,
	}, nil
}
