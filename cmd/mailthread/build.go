package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/ingest"
	"github.com/hal9000y/mailthread/internal/pipeline"
	"github.com/hal9000y/mailthread/internal/store"
)

const (
	sourceJSON = "json"
	sourceEML  = "eml"
)

var buildSource string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Derive threads, edges and the search table from raw records",
	Long: `Reads raw records (the JSON records file, or the .eml files under the raw
directory with --source eml), normalizes bodies, extracts tokens, assembles
threads and writes the three artifacts to the data root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := runBuild(cmd.Context(), cfg, buildSource, logger)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "messages: %d, threads: %d, edges: %d, rejected: %d, no thread id: %d\n",
			report.Messages, report.Threads, report.Edges, len(report.Rejected), report.NoThread)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildSource, "source", sourceJSON, "Raw record source: json or eml")
}

func newSource(c *config.Config, kind string, log *zap.Logger) (ingest.Source, error) {
	switch kind {
	case sourceJSON:
		return ingest.JSONFile{Path: c.Data.Path(c.Data.RecordsFile)}, nil
	case sourceEML:
		return ingest.NewEMLDir(c.Data, log), nil
	default:
		return nil, fmt.Errorf("unknown source %q", kind)
	}
}

func runBuild(ctx context.Context, c *config.Config, kind string, log *zap.Logger) (pipeline.Report, error) {
	src, err := newSource(c, kind, log)
	if err != nil {
		return pipeline.Report{}, err
	}

	records, err := src.Records(ctx)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("src.Records failed: %w", err)
	}

	set := extract.NewSet(c.Extract.Sites)
	log.Debug("site vocabulary", zap.Strings("sites", set.Site.Codes()))

	artifacts, report, err := pipeline.NewBuilder(set, log).Build(records)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("pipeline.Build failed: %w", err)
	}

	if err := store.NewDir(c.Data, log).Write(ctx, artifacts); err != nil {
		return pipeline.Report{}, fmt.Errorf("store.Write failed: %w", err)
	}

	return report, nil
}
