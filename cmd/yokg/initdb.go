package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/config"
	graphdb "github.com/xqvvu/yokg/internal/infrastructure/neo4j"
	"github.com/xqvvu/yokg/internal/infrastructure/observability"
)

func newInitDBCommand(opts *globalOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the Neo4j uniqueness constraints",
		Long:  "Creates the id uniqueness constraints used by the graph store. Running it again is a no-op.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loader().Load()
			if err != nil {
				return err
			}
			if cfg.Graph.Provider != config.GraphNeo4j {
				return errors.New("init-db needs graph.provider set to neo4j")
			}

			logger, _, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := graphdb.Open(ctx, cfg.Neo4j.ClientConfig(), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Close(context.Background()); err != nil {
					logger.Warn("Failed to close neo4j driver", zap.Error(err))
				}
			}()

			if err := client.InitSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d constraints\n", len(graphdb.SchemaConstraints))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline")
	return cmd
}
