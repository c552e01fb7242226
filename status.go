package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// timeRound is the display precision for durations and timestamps.
const timeRound = time.Millisecond

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mirror contents and sync freshness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, st, err := openEngine(resolvedCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			status, err := engine.Status(cmd.Context())
			if err != nil {
				return err
			}

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(status)
			}

			fmt.Printf("space:         %s\n", resolvedCfg.Space.ID)
			fmt.Printf("policy:        %s\n", resolvedCfg.Cache.Policy)
			fmt.Printf("documents:     %d\n", status.Documents)
			fmt.Printf("content types: %d\n", status.ContentTypes)
			fmt.Printf("entries:       %d\n", status.Entries)
			fmt.Printf("assets:        %d\n", status.Assets)

			if status.HasSyncToken {
				fmt.Printf("last sync:     %s (%s ago)\n",
					status.LastSync.Format(time.RFC3339),
					time.Since(status.LastSync).Round(time.Second))
			} else {
				fmt.Println("last sync:     never")
			}

			return nil
		},
	}
}
