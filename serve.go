package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spacecache/spacecache/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Long: `Expose the mirror read-only over HTTP:

  GET /v1/status
  GET /v1/documents/{id}?resolve=N
  GET /v1/documents?sys.type=Entry&resolve=N

The server never syncs on its own — run sync separately or on a timer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, st, err := openEngine(resolvedCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := httpapi.NewServer(engine, slog.Default())

			return server.ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "listen address")

	return cmd
}
