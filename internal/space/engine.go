package space

import (
	"context"
	"log/slog"
	"time"

	"github.com/spacecache/spacecache/internal/statefile"
	"github.com/spacecache/spacecache/internal/store"
)

// Engine is the consumer-facing surface over the mirror: queries, their
// resolved counterparts, and status. File naming, slugs, and content
// coercion stay with the caller.
type Engine struct {
	store     *store.Store
	resolver  *store.Resolver
	logger    *slog.Logger
	statePath string
}

// NewEngine wires an Engine over an opened store.
func NewEngine(st *store.Store, resolver *store.Resolver, logger *slog.Logger, statePath string) *Engine {
	return &Engine{
		store:     st,
		resolver:  resolver,
		logger:    logger,
		statePath: statePath,
	}
}

// Store exposes the underlying document store.
func (e *Engine) Store() *store.Store { return e.store }

// Find returns all documents matching the predicate.
func (e *Engine) Find(ctx context.Context, pred store.Predicate) ([]*store.Document, error) {
	return e.store.Find(ctx, pred)
}

// FindOne returns the first match, or nil.
func (e *Engine) FindOne(ctx context.Context, pred store.Predicate) (*store.Document, error) {
	return e.store.FindOne(ctx, pred)
}

// ByID returns the document with the given id, or nil.
func (e *Engine) ByID(ctx context.Context, id string) (*store.Document, error) {
	return e.store.ByID(ctx, id)
}

// ResolveAll resolves an already-fetched collection.
func (e *Engine) ResolveAll(ctx context.Context, docs []*store.Document, depth int) ([]*store.Document, error) {
	return e.resolver.ResolveAll(ctx, docs, depth)
}

// FindResolved queries and resolves in one step.
func (e *Engine) FindResolved(ctx context.Context, pred store.Predicate, depth int) ([]*store.Document, error) {
	docs, err := e.store.Find(ctx, pred)
	if err != nil {
		return nil, err
	}

	return e.resolver.ResolveAll(ctx, docs, depth)
}

// FindOneResolved queries for one document and resolves it. Returns nil
// when nothing matches.
func (e *Engine) FindOneResolved(ctx context.Context, pred store.Predicate, depth int) (*store.Document, error) {
	doc, err := e.store.FindOne(ctx, pred)
	if err != nil || doc == nil {
		return nil, err
	}

	return e.resolver.Resolve(ctx, doc, depth)
}

// ByIDResolved is the resolved counterpart of ByID.
func (e *Engine) ByIDResolved(ctx context.Context, id string, depth int) (*store.Document, error) {
	doc, err := e.store.ByID(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}

	return e.resolver.Resolve(ctx, doc, depth)
}

// EntriesByContentTypeName returns all entries whose content type has
// the given display name, so callers can query without knowing the
// type's id. Returns nil (no error) when no such content type exists.
func (e *Engine) EntriesByContentTypeName(ctx context.Context, name string) ([]*store.Document, error) {
	ct, err := e.store.FindOne(ctx, store.Predicate{
		"sys.type": store.TypeContentType,
		"name":     name,
	})
	if err != nil || ct == nil {
		return nil, err
	}

	return e.store.Find(ctx, store.Predicate{
		"sys.type":               store.TypeEntry,
		"sys.contentType.sys.id": ct.Sys.ID,
	})
}

// Status reports the mirror's current shape.
type Status struct {
	Documents    int       `json:"documents"`
	ContentTypes int       `json:"content_types"`
	Entries      int       `json:"entries"`
	Assets       int       `json:"assets"`
	HasSyncToken bool      `json:"has_sync_token"`
	LastSync     time.Time `json:"last_sync,omitzero"`
}

// Status returns document counts and sync-state freshness.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	var err error

	if st.Documents, err = e.store.Count(ctx); err != nil {
		return nil, err
	}

	if st.ContentTypes, err = e.store.CountByType(ctx, store.TypeContentType); err != nil {
		return nil, err
	}

	if st.Entries, err = e.store.CountByType(ctx, store.TypeEntry); err != nil {
		return nil, err
	}

	if st.Assets, err = e.store.CountByType(ctx, store.TypeAsset); err != nil {
		return nil, err
	}

	state, lastSync, err := statefile.Load(e.statePath)
	if err != nil {
		return nil, err
	}

	if state != nil {
		st.HasSyncToken = true
		st.LastSync = lastSync
	}

	return st, nil
}
