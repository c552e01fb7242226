package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spacecache/spacecache/internal/config"
)

func newSyncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local mirror with the remote space",
		Long: `Run one sync invocation. Depending on the cache policy and the age of
the last sync this either skips the network, applies an incremental
delta, or re-ingests the whole space. Use --force to invalidate the
cache and re-ingest regardless of policy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy := ""
			if force {
				policy = config.PolicyDisabled
			}

			engine, st, err := openEngine(resolvedCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			coord := newCoordinator(resolvedCfg, st, policy)

			result, err := coord.Sync(cmd.Context())
			if err != nil {
				return err
			}

			status, err := engine.Status(cmd.Context())
			if err != nil {
				return err
			}

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"mode":      result.Mode.String(),
					"documents": result.Documents,
					"duration":  result.Duration.String(),
					"status":    status,
				})
			}

			fmt.Printf("sync complete: mode=%s documents=%d duration=%s\n",
				result.Mode, result.Documents, result.Duration.Round(timeRound))
			fmt.Printf("store: %d documents (%d content types, %d entries, %d assets)\n",
				status.Documents, status.ContentTypes, status.Entries, status.Assets)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "invalidate the cache and re-ingest everything")

	return cmd
}
