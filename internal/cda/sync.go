package cda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
)

// syncResponse mirrors the delta endpoint's JSON envelope. Exactly one of
// NextPageURL (more pages) and NextSyncURL (done) is set per page.
type syncResponse struct {
	Items       []json.RawMessage `json:"items"`
	NextPageURL string            `json:"nextPageUrl"`
	NextSyncURL string            `json:"nextSyncUrl"`
}

// SyncPage is one page of delta changes. NextPageToken is set when more
// pages follow; NextSyncToken is set on the final page and becomes the
// continuation token for the next sync invocation.
type SyncPage struct {
	Items         []json.RawMessage
	NextPageToken string
	NextSyncToken string
}

// syncTokenParam is the query parameter carrying the continuation token,
// both on requests and inside the next-page/next-sync URLs the API returns.
const syncTokenParam = "sync_token"

// Sync fetches one page of delta changes. An empty token requests an
// initial (full) delta; otherwise token is the NextPageToken or
// NextSyncToken from a previous page.
func (c *Client) Sync(ctx context.Context, token string) (*SyncPage, error) {
	query := url.Values{}
	if token == "" {
		query.Set("initial", "true")
	} else {
		query.Set(syncTokenParam, token)
	}

	c.logger.Debug("fetching sync page",
		slog.Bool("initial", token == ""),
	)

	resp, err := c.get(ctx, "/sync", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr syncResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("cda: decoding sync page: %w", err)
	}

	page := &SyncPage{Items: sr.Items}

	if sr.NextPageURL != "" {
		page.NextPageToken, err = extractSyncToken(sr.NextPageURL)
		if err != nil {
			return nil, err
		}
	}

	if sr.NextSyncURL != "" {
		page.NextSyncToken, err = extractSyncToken(sr.NextSyncURL)
		if err != nil {
			return nil, err
		}
	}

	return page, nil
}

// SyncAll drains every page of delta changes and returns the combined
// items plus the continuation token for the next invocation. On success
// the returned token is always non-empty.
func (c *Client) SyncAll(ctx context.Context, token string) ([]json.RawMessage, string, error) {
	c.logger.Info("starting delta enumeration",
		slog.Bool("initial", token == ""),
	)

	var allItems []json.RawMessage

	currentToken := token
	page := 1

	for {
		sp, err := c.Sync(ctx, currentToken)
		if err != nil {
			return nil, "", err
		}

		allItems = append(allItems, sp.Items...)

		c.logger.Debug("accumulated delta items",
			slog.Int("page", page),
			slog.Int("page_items", len(sp.Items)),
			slog.Int("total_items", len(allItems)),
		)

		// NextSyncToken means we have consumed all pages — done.
		if sp.NextSyncToken != "" {
			c.logger.Info("delta enumeration complete",
				slog.Int("total_items", len(allItems)),
				slog.Int("pages", page),
			)

			return allItems, sp.NextSyncToken, nil
		}

		if sp.NextPageToken != "" {
			currentToken = sp.NextPageToken
			page++

			continue
		}

		return nil, "", fmt.Errorf("cda: sync page %d has neither next page nor next sync token", page)
	}
}

// extractSyncToken pulls the continuation token out of a next-page or
// next-sync URL returned by the API.
func extractSyncToken(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("cda: parsing sync continuation URL: %w", err)
	}

	token := u.Query().Get(syncTokenParam)
	if token == "" {
		return "", fmt.Errorf("cda: sync continuation URL has no %s parameter", syncTokenParam)
	}

	return token, nil
}
