package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/letsgo-sh/ops/internal/config"
	"github.com/letsgo-sh/ops/pkg/cli/format"
	"github.com/letsgo-sh/ops/pkg/cloud/awscloud"
	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/metrics"
	"github.com/letsgo-sh/ops/pkg/naming"
	"github.com/letsgo-sh/ops/pkg/teardown"
	"github.com/letsgo-sh/ops/pkg/types"
)

// rmOptions holds the options for the rm command
type rmOptions struct {
	artifacts []string
	killData  bool
	dryRun    bool
	force     bool
	output    string
}

// newCloud creates the Cloud a teardown runs against. Tests replace it.
var newCloud = func(cfg *config.Config, logger log.Logger) teardown.Cloud {
	return awscloud.NewProvider(awscloud.Options{
		Profile:              cfg.AWS.Profile,
		Endpoint:             cfg.AWS.Endpoint,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		Retry:                cfg.Retry,
		ServiceDeleteTimeout: cfg.Teardown.ServiceDeleteTimeout,
		TableDeleteTimeout:   cfg.Teardown.TableDeleteTimeout,
		PollInterval:         cfg.Teardown.PollInterval,
		Naming:               naming.New(cfg.Naming.Prefix),
		Logger:               logger,
	})
}

// isTerminal reports whether the confirmation prompt can be shown.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newRmCmd() *cobra.Command {
	opts := &rmOptions{}

	cmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove deployment artifacts",
		Long: `Remove the AWS resources of a LetsGo deployment.

Artifacts are removed in dependency order: web and api first, then the
worker, then configuration and the database. A failure in one artifact
does not stop the others; every failure is reported at the end.

Durable data (the database, queues and container images) is kept unless
--kill-data is given.

Examples:
  # Remove the api and the worker, keeping durable data
  letsgo-ops rm -a api -a worker

  # Remove everything, including data, from the staging deployment
  letsgo-ops rm -a all -k -d staging

  # Show what would be removed
  letsgo-ops rm -a all --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd, opts)
		},
	}

	cmd.Flags().StringP("region", "r", config.DefaultRegion, "AWS region")
	cmd.Flags().StringP("deployment", "d", config.DefaultDeployment, "Deployment name")
	cmd.Flags().StringSliceVarP(&opts.artifacts, "artifact", "a", nil,
		fmt.Sprintf("Artifact to remove, repeatable (%s)", strings.Join(types.CatalogNames(types.Catalog), ", ")))
	cmd.Flags().BoolVarP(&opts.killData, "kill-data", "k", false, "Also remove durable data: database, queues and images")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would be removed without removing anything")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Skip the confirmation prompt for --kill-data")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, json, yaml)")
	viper.BindPFlag("region", cmd.Flags().Lookup("region"))
	viper.BindPFlag("deployment", cmd.Flags().Lookup("deployment"))

	return cmd
}

func runRm(cmd *cobra.Command, opts *rmOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	selection, err := teardown.Select(opts.artifacts, types.Catalog)
	if err != nil {
		return err
	}
	if selection.Empty() {
		fmt.Fprintln(stderr, format.Warning("No artifacts to remove specified. Use the '-a' option."))
		return nil
	}
	fmt.Fprintf(stderr, "Removing %s from %s...\n",
		format.Highlight("%s", selection.String()),
		format.Highlight("%s/%s", cfg.Region, cfg.Deployment))
	if !opts.killData {
		fmt.Fprintln(stderr, format.Warning("All durable data (db, queues, images) will remain intact. Use the '-k' option to force delete all data."))
	}

	if opts.killData && !opts.force && !opts.dryRun && isTerminal() {
		ok, err := confirmKillData(cmd.InOrStdin(), stderr, cfg, selection)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stderr, "Teardown cancelled.")
			return nil
		}
	}

	logCfg := cfg.Log
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := log.ApplyConfig(&logCfg, stderr)
	if err != nil {
		return err
	}

	cloud := newCloud(cfg, logger)
	if opts.dryRun {
		cloud = teardown.NewDryRunCloud(cloud, logger)
	}

	recorder := metrics.NewRecorder()
	n := naming.New(cfg.Naming.Prefix)
	orchestrator := teardown.New(cloud,
		teardown.Settings{
			Web:       n.Service(string(types.CategoryWeb)),
			API:       n.Service(string(types.CategoryAPI)),
			Worker:    n.Worker(),
			DataStore: n.DataStore(),
		},
		teardown.WithLogger(logger),
		teardown.WithMetrics(recorder),
		teardown.WithMaxParallel(cfg.Teardown.MaxParallel),
		teardown.WithDryRun(opts.dryRun),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, runErr := orchestrator.Teardown(ctx, opts.artifacts, cfg.Region, cfg.Deployment, opts.killData)
	if report == nil {
		return runErr
	}

	if err := recorder.WriteTextfile(cfg.Metrics.File); err != nil {
		logger.Warn("Failed to write metrics", log.Str("file", cfg.Metrics.File), log.Err(err))
	}

	if err := printReport(stdout, report, opts.output); err != nil {
		return err
	}
	return runErr
}

func printReport(w io.Writer, report *types.RunReport, output string) error {
	switch output {
	case "json":
		return outputJSON(w, report)
	case "yaml":
		return outputYAML(w, report)
	}

	if report.DryRun {
		fmt.Fprintln(w, format.Info("Dry run: nothing was deleted"))
	}
	if err := NewReportTable().Render(w, report); err != nil {
		return err
	}
	if summary := removedSummary(report); summary != "" {
		fmt.Fprintln(w, format.Success("%s", summary))
	}
	return nil
}

// confirmKillData asks before durable data is removed.
func confirmKillData(in io.Reader, out io.Writer, cfg *config.Config, selection types.SelectionSet) (bool, error) {
	fmt.Fprintln(out, format.Label("Region", cfg.Region))
	fmt.Fprintln(out, format.Label("Deployment", cfg.Deployment))
	fmt.Fprintln(out, format.Label("Artifacts", selection.String()))
	fmt.Fprint(out, format.Warning("Durable data will be permanently deleted. Continue? (y/N): "))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes", nil
}
