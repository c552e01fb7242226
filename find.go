package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacecache/spacecache/internal/store"
)

func newFindCmd() *cobra.Command {
	var (
		depth       int
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "find [path=value ...]",
		Short: "Query documents by field equality",
		Long: `Query the mirror with dotted-path equality constraints, e.g.

  spacecache find sys.type=Entry fields.title=Hello --resolve 2

--content-type queries entries by their content type's display name
instead of its id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, st, err := openEngine(resolvedCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()

			var docs []*store.Document

			if contentType != "" {
				if len(args) > 0 {
					return fmt.Errorf("--content-type cannot be combined with path constraints")
				}

				docs, err = engine.EntriesByContentTypeName(ctx, contentType)
			} else {
				pred, parseErr := parsePredicate(args)
				if parseErr != nil {
					return parseErr
				}

				docs, err = engine.Find(ctx, pred)
			}

			if err != nil {
				return err
			}

			if depth > 0 {
				docs, err = engine.ResolveAll(ctx, docs, depth)
				if err != nil {
					return err
				}
			}

			return printDocs(docs)
		},
	}

	cmd.Flags().IntVar(&depth, "resolve", 0, "link resolution depth")
	cmd.Flags().StringVar(&contentType, "content-type", "", "query entries by content type name")

	return cmd
}

// printDocs writes the result set as indented JSON.
func printDocs(docs []*store.Document) error {
	if docs == nil {
		docs = []*store.Document{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(docs)
}

// parsePredicate turns path=value arguments into a predicate.
func parsePredicate(args []string) (store.Predicate, error) {
	pred := store.Predicate{}

	for _, arg := range args {
		path, value, ok := strings.Cut(arg, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("constraint %q is not path=value", arg)
		}

		pred[path] = value
	}

	return pred, nil
}
