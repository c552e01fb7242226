package space

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spacecache/spacecache/internal/cda"
	"github.com/spacecache/spacecache/internal/config"
	"github.com/spacecache/spacecache/internal/statefile"
	"github.com/spacecache/spacecache/internal/store"
)

// Mode is the sync mode the coordinator selects for one invocation.
type Mode int

const (
	// ModeSkip serves the existing mirror without touching the network.
	ModeSkip Mode = iota
	// ModeFull ingests every collection from scratch.
	ModeFull
	// ModeRebuild invalidates the store first, then ingests like ModeFull.
	ModeRebuild
	// ModeIncremental applies a delta batch using the saved token.
	ModeIncremental
)

func (m Mode) String() string {
	switch m {
	case ModeSkip:
		return "skip"
	case ModeFull:
		return "full"
	case ModeRebuild:
		return "rebuild"
	case ModeIncremental:
		return "incremental"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Result summarizes one sync invocation.
type Result struct {
	CycleID   string
	Mode      Mode
	Documents int // documents upserted this invocation
	Duration  time.Duration
}

// Coordinator decides, once per invocation, whether to skip the network,
// re-ingest everything, or apply an incremental delta — then runs the
// chosen mode. The continuation token is persisted only after the
// documents it covers are durably upserted, so a crash mid-sync never
// loses updates: the next run replays them idempotently.
type Coordinator struct {
	client    *cda.Client
	store     *store.Store
	ingestor  *Ingestor
	logger    *slog.Logger
	spaceID   string
	statePath string
	policy    string
	ttl       time.Duration
	nowFunc   func() time.Time // injectable for deterministic tests
}

// NewCoordinator wires a Coordinator.
func NewCoordinator(
	client *cda.Client,
	st *store.Store,
	ingestor *Ingestor,
	logger *slog.Logger,
	spaceID, statePath, policy string,
	ttl time.Duration,
) *Coordinator {
	return &Coordinator{
		client:    client,
		store:     st,
		ingestor:  ingestor,
		logger:    logger,
		spaceID:   spaceID,
		statePath: statePath,
		policy:    policy,
		ttl:       ttl,
		nowFunc:   time.Now,
	}
}

// decide evaluates the freshness decision table, first match wins.
func (c *Coordinator) decide(hasPriorSync bool, lastSync time.Time) Mode {
	switch {
	case !hasPriorSync:
		return ModeFull
	case c.policy == config.PolicyDisabled:
		return ModeRebuild
	case c.policy == config.PolicyCacheOnly:
		return ModeSkip
	case c.policy == config.PolicyTTL && c.nowFunc().Sub(lastSync) < c.ttl:
		return ModeSkip
	default:
		return ModeIncremental
	}
}

// Sync runs one sync invocation and returns what was done. A skipped
// invocation (cache fresh or cache-only) is a success, not an error.
func (c *Coordinator) Sync(ctx context.Context) (*Result, error) {
	start := c.nowFunc()
	cycleID := uuid.New().String()

	state, lastSync, err := statefile.Load(c.statePath)
	if err != nil {
		return nil, err
	}

	mode := c.decide(state != nil, lastSync)

	logger := c.logger.With(
		slog.String("cycle_id", cycleID),
		slog.String("mode", mode.String()),
	)
	logger.Info("sync starting", slog.String("space_id", c.spaceID))

	var documents int

	switch mode {
	case ModeSkip:
		count, err := c.store.Count(ctx)
		if err != nil {
			return nil, err
		}

		logger.Info("cache fresh, serving stored documents",
			slog.Int("documents", count),
		)
	case ModeRebuild:
		if err := c.store.Invalidate(ctx); err != nil {
			return nil, err
		}

		documents, err = c.fullSync(ctx, logger)
		if err != nil {
			return nil, err
		}
	case ModeFull:
		documents, err = c.fullSync(ctx, logger)
		if err != nil {
			return nil, err
		}
	case ModeIncremental:
		documents, err = c.incrementalSync(ctx, logger, state.SyncToken)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		CycleID:   cycleID,
		Mode:      mode,
		Documents: documents,
		Duration:  c.nowFunc().Sub(start),
	}, nil
}

// fullSync drains every collection through the paginated ingestor, then
// runs an initial delta pass to obtain a continuation token. The delta
// batch is applied too (idempotent), so the persisted token never runs
// ahead of the store.
func (c *Coordinator) fullSync(ctx context.Context, logger *slog.Logger) (int, error) {
	total := 0

	for _, collection := range []string{
		cda.CollectionContentTypes,
		cda.CollectionEntries,
		cda.CollectionAssets,
	} {
		n, err := c.ingestor.Retrieve(ctx, collection)
		if err != nil {
			return total, err
		}

		total += n
	}

	batch, token, err := c.client.SyncAll(ctx, "")
	if err != nil {
		return total, err
	}

	if _, err := c.ingestor.Apply(ctx, batch); err != nil {
		return total, err
	}

	if err := c.saveState(token); err != nil {
		return total, err
	}

	logger.Info("full sync complete", slog.Int("documents", total))

	return total, nil
}

// incrementalSync applies one delta batch using the saved token, then
// persists the new token. Content types never appear in delta batches,
// so they are bootstrapped once if the store has none.
func (c *Coordinator) incrementalSync(ctx context.Context, logger *slog.Logger, token string) (int, error) {
	if err := c.bootstrapContentTypes(ctx, logger); err != nil {
		return 0, err
	}

	batch, newToken, err := c.client.SyncAll(ctx, token)
	if err != nil {
		return 0, err
	}

	applied, err := c.ingestor.Apply(ctx, batch)
	if err != nil {
		return applied, err
	}

	if err := c.saveState(newToken); err != nil {
		return applied, err
	}

	logger.Info("incremental sync complete",
		slog.Int("delta_items", len(batch)),
		slog.Int("applied", applied),
	)

	return applied, nil
}

// bootstrapContentTypes fetches the content-type collection the first
// time the store is found to contain none. Later schema changes are not
// picked up by delta syncs — a known limitation of the delta endpoint,
// resolved by a forced full sync.
func (c *Coordinator) bootstrapContentTypes(ctx context.Context, logger *slog.Logger) error {
	n, err := c.store.CountByType(ctx, store.TypeContentType)
	if err != nil {
		return err
	}

	if n > 0 {
		return nil
	}

	logger.Info("no content types stored, bootstrapping")

	_, err = c.ingestor.Retrieve(ctx, cda.CollectionContentTypes)

	return err
}

// saveState persists the continuation token. The write also refreshes
// the state file's mtime, which is the last-sync clock.
func (c *Coordinator) saveState(token string) error {
	return statefile.Save(c.statePath, &statefile.State{
		SpaceID:   c.spaceID,
		SyncToken: token,
	})
}
