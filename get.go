package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one document by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, st, err := openEngine(resolvedCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := engine.ByIDResolved(cmd.Context(), args[0], depth)
			if err != nil {
				return err
			}

			if doc == nil {
				return fmt.Errorf("document %s not found", args[0])
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(doc)
		},
	}

	cmd.Flags().IntVar(&depth, "resolve", 0, "link resolution depth")

	return cmd
}
