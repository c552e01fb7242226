package store

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// defaultResolveConcurrency bounds simultaneous store lookups while
// resolving a collection.
const defaultResolveConcurrency = 2

// Resolver expands Link values into the referenced documents' fields, up
// to a caller-specified number of link hops. It reads from the store and
// never writes to it; every returned document is a fresh tree.
//
// Depth accounting: only traversing a Link consumes a unit of depth.
// Descending plain maps and sequences is free — the budget means "how
// many references to chase", and cycles in the reference graph terminate
// because every hop strictly decrements it.
//
// Substitution: a resolved Link is replaced by the target document's
// fields subtree only; the target's sys is never spliced in.
type Resolver struct {
	store       *Store
	logger      *slog.Logger
	concurrency int
}

// NewResolver creates a Resolver over the given store. concurrency bounds
// ResolveAll's worker pool; values below 1 use the default.
func NewResolver(st *Store, logger *slog.Logger, concurrency int) *Resolver {
	if concurrency < 1 {
		concurrency = defaultResolveConcurrency
	}

	return &Resolver{
		store:       st,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Resolve returns a copy of doc with links within depth hops expanded.
// Negative depth is treated as zero (identity plus copy). Links whose
// target is not in the store are left in place — a missing target is a
// gap, not a failure. Storage faults abort resolution.
func (r *Resolver) Resolve(ctx context.Context, doc *Document, depth int) (*Document, error) {
	if depth < 0 {
		depth = 0
	}

	out := doc.Clone()

	for k, v := range out.Fields {
		resolved, err := r.resolveValue(ctx, v, depth)
		if err != nil {
			return nil, err
		}

		out.Fields[k] = resolved
	}

	return out, nil
}

// resolveValue expands one value. The sys zone of a document never passes
// through here, so system metadata is never rewritten.
func (r *Resolver) resolveValue(ctx context.Context, v Value, depth int) (Value, error) {
	switch v.Kind {
	case KindLink:
		if depth <= 0 {
			return v, nil
		}

		target, err := r.store.ByID(ctx, v.Link.ID)
		if err != nil {
			return Value{}, err
		}

		if target == nil {
			r.logger.Debug("link target not in store, left unresolved",
				slog.String("id", v.Link.ID),
				slog.String("link_type", v.Link.LinkType),
			)

			return v, nil
		}

		m := make(map[string]Value, len(target.Fields))

		for k, child := range target.Fields {
			resolved, err := r.resolveValue(ctx, child.clone(), depth-1)
			if err != nil {
				return Value{}, err
			}

			m[k] = resolved
		}

		return Value{Kind: KindMap, Map: m}, nil
	case KindMap:
		for k, child := range v.Map {
			resolved, err := r.resolveValue(ctx, child, depth)
			if err != nil {
				return Value{}, err
			}

			v.Map[k] = resolved
		}

		return v, nil
	case KindSeq:
		for i, child := range v.Seq {
			resolved, err := r.resolveValue(ctx, child, depth)
			if err != nil {
				return Value{}, err
			}

			v.Seq[i] = resolved
		}

		return v, nil
	default:
		return v, nil
	}
}

// ResolveAll resolves each document through a bounded worker pool and
// returns the results in input order. The pool caps simultaneous store
// lookups; the first failure cancels the remaining work.
func (r *Resolver) ResolveAll(ctx context.Context, docs []*Document, depth int) ([]*Document, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	out := make([]*Document, len(docs))

	for i, doc := range docs {
		g.Go(func() error {
			resolved, err := r.Resolve(ctx, doc, depth)
			if err != nil {
				return err
			}

			out[i] = resolved

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
