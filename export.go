package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/spacecache/spacecache/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		dir   string
		depth int
	)

	cmd := &cobra.Command{
		Use:   "export [path=value ...]",
		Short: "Write resolved documents as JSON files",
		Long: `Resolve every matching document and write each as <dir>/<id>.json.
Without constraints, the whole mirror is exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := parsePredicate(args)
			if err != nil {
				return err
			}

			if depth < 0 {
				depth = resolvedCfg.Resolve.Depth
			}

			engine, st, err := openEngine(resolvedCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			exp := export.NewExporter(engine, afero.NewOsFs(), slog.Default())

			n, err := exp.Export(cmd.Context(), dir, pred, depth)
			if err != nil {
				return err
			}

			fmt.Printf("exported %d documents to %s\n", n, dir)

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "out", "output directory")
	cmd.Flags().IntVar(&depth, "resolve", -1, "link resolution depth (default: config resolve.depth)")

	return cmd
}
