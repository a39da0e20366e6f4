package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/letsgo-sh/ops/internal/config"
	"github.com/letsgo-sh/ops/pkg/cli/format"
	"github.com/letsgo-sh/ops/pkg/version"
)

var (
	cfgFile string
	verbose bool
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "letsgo-ops",
		Short: "LetsGo ops - manage LetsGo deployments on AWS",
		Long: `letsgo-ops manages the AWS resources of LetsGo deployments.

Use 'rm' to tear a deployment down. Resources are removed in dependency
order and durable data is kept unless explicitly requested.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is specified, display the help
			cmd.Help()
		},
		Version: version.Version,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.letsgo/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")
	viper.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(newRmCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI and exits non-zero on failure. This is called by
// main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		format.PrintError(root.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultConfigDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var missing viper.ConfigFileNotFoundError
		if errors.As(err, &missing) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}
	return nil
}
