// Package export materializes resolved documents as JSON files, one per
// document id. What consumers do with the files (paths, templating,
// content coercion) is their business; this package only writes the
// resolved trees.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/spacecache/spacecache/internal/space"
	"github.com/spacecache/spacecache/internal/store"
)

// filePerms for exported documents.
const filePerms = 0o644

// Exporter writes resolved documents to a filesystem. The fs is
// abstracted so tests run against an in-memory filesystem.
type Exporter struct {
	engine *space.Engine
	fs     afero.Fs
	logger *slog.Logger
}

// NewExporter creates an Exporter writing through fs.
func NewExporter(engine *space.Engine, fs afero.Fs, logger *slog.Logger) *Exporter {
	return &Exporter{engine: engine, fs: fs, logger: logger}
}

// Export resolves every document matching pred at the given depth and
// writes each as <dir>/<id>.json. Returns the number of files written.
func (e *Exporter) Export(ctx context.Context, dir string, pred store.Predicate, depth int) (int, error) {
	docs, err := e.engine.FindResolved(ctx, pred, depth)
	if err != nil {
		return 0, err
	}

	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("export: creating %s: %w", dir, err)
	}

	written := 0

	for _, doc := range docs {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return written, fmt.Errorf("export: encoding %s: %w", doc.Sys.ID, err)
		}

		path := filepath.Join(dir, doc.Sys.ID+".json")
		if err := afero.WriteFile(e.fs, path, data, filePerms); err != nil {
			return written, fmt.Errorf("export: writing %s: %w", path, err)
		}

		written++
	}

	e.logger.Info("export complete",
		slog.String("dir", dir),
		slog.Int("files", written),
	)

	return written, nil
}
