// Package space drives synchronization of one remote space into the
// local document store: full paginated ingestion, incremental delta
// sync, and the per-invocation freshness decision between them.
package space

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/spacecache/spacecache/internal/cda"
	"github.com/spacecache/spacecache/internal/store"
)

// defaultIngestConcurrency bounds simultaneous store writes during
// ingestion.
const defaultIngestConcurrency = 3

// Ingestor drains paginated remote collections into the document store.
// Page fetching and item upserts run concurrently: the fetch loop feeds
// a bounded pool of upsert workers through a channel that is closed after
// the final page, so the pool winds down without any sentinel item.
type Ingestor struct {
	client      *cda.Client
	store       *store.Store
	logger      *slog.Logger
	concurrency int
	pageSize    int
}

// NewIngestor creates an Ingestor. concurrency bounds the upsert worker
// pool; values below 1 use the default. pageSize <= 0 uses the API's
// default page size.
func NewIngestor(client *cda.Client, st *store.Store, logger *slog.Logger, concurrency, pageSize int) *Ingestor {
	if concurrency < 1 {
		concurrency = defaultIngestConcurrency
	}

	return &Ingestor{
		client:      client,
		store:       st,
		logger:      logger,
		concurrency: concurrency,
		pageSize:    pageSize,
	}
}

// Retrieve fully drains one collection (content_types, entries, or
// assets) into the store and returns the number of documents upserted.
// Any page fetch or item upsert failure aborts the whole call — partial
// progress is safe to leave behind because upserts are idempotent.
func (in *Ingestor) Retrieve(ctx context.Context, collection string) (int, error) {
	g, ctx := errgroup.WithContext(ctx)

	items := make(chan json.RawMessage)

	var ingested atomic.Int64

	for range in.concurrency {
		g.Go(func() error {
			for raw := range items {
				doc, err := store.DecodeDocument(raw)
				if err != nil {
					return err
				}

				if err := in.store.Upsert(ctx, doc); err != nil {
					return err
				}

				ingested.Add(1)
			}

			return nil
		})
	}

	g.Go(func() error {
		// Closing the channel is the end-of-stream signal for the
		// workers, on success and failure alike.
		defer close(items)

		skip := 0

		for {
			page, err := in.client.Collection(ctx, collection, skip, in.pageSize)
			if err != nil {
				return err
			}

			for _, raw := range page.Items {
				select {
				case items <- raw:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			skip += len(page.Items)

			if page.Last() {
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		return int(ingested.Load()), err
	}

	n := int(ingested.Load())

	in.logger.Info("collection ingested",
		slog.String("collection", collection),
		slog.Int("documents", n),
	)

	return n, nil
}

// Apply upserts a batch of already-fetched raw documents through the
// same bounded worker pool. Used by the coordinator to land delta items.
// Documents of unknown shape (e.g. deletion tombstones without fields)
// that fail to decode abort the batch.
func (in *Ingestor) Apply(ctx context.Context, batch []json.RawMessage) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	var applied atomic.Int64

	for _, raw := range batch {
		g.Go(func() error {
			doc, err := store.DecodeDocument(raw)
			if err != nil {
				return err
			}

			// Deletion tombstones are ignored: documents leave the
			// mirror only through Invalidate.
			if doc.Sys.Type == "DeletedEntry" || doc.Sys.Type == "DeletedAsset" {
				return nil
			}

			if err := in.store.Upsert(ctx, doc); err != nil {
				return err
			}

			applied.Add(1)

			return nil
		})
	}

	err := g.Wait()

	return int(applied.Load()), err
}
