package main

import (
	"github.com/spf13/cobra"

	"github.com/xqvvu/yokg/internal/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configDir   string
	environment string
}

func (o *globalOptions) loader() *config.Loader {
	env := config.EnvironmentFromEnv()
	if o.environment != "" {
		env = config.Environment(o.environment)
	}
	return config.NewLoader(o.configDir, env)
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "yokg",
		Short: "Knowledge graph API server",
		Long: `yokg serves a property graph stored in Neo4j over HTTP, with a
cache-aside layer in front of the hot read paths.

Configuration is read from <config-dir>/base.yaml, <config-dir>/<env>.yaml,
.env files and YOKG_* environment variables, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "config", "directory holding the configuration files")
	root.PersistentFlags().StringVar(&opts.environment, "env", "", "environment name (default $YOKG_ENV or development)")

	root.AddCommand(
		newServeCommand(opts),
		newInitDBCommand(opts),
		newHealthCommand(opts),
		newTTLCommand(),
	)
	return root
}
