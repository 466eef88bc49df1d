package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/analyzer"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/statsdb"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

var analyzeCaseID string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run analyzer dispatch over a case's evidence",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCaseID, "case", "", "analyze only this case's evidence (required)")
	analyzeCmd.MarkFlagRequired("case")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := llm.New(cfg, "")
	if err != nil {
		return err
	}

	ids, err := st.ListCase(analyzeCaseID)
	if err != nil {
		return err
	}

	d := analyzer.NewDispatcher(st, client, cfg)
	report := d.DispatchMany(context.Background(), ids)

	fmt.Printf("analyzed=%d skipped=%d errors=%d\n", report.Analyzed, report.Skipped, len(report.Errors))
	for _, e := range report.Errors {
		logger.WithError(e).Warn("analyzer error")
	}

	if cfg.StatsDB.DSN != "" {
		sdb, err := statsdb.Open(cfg.StatsDB.DSN, logger)
		if err != nil {
			logger.WithError(err).Warn("statsdb unavailable, skipping run stats")
			return nil
		}
		defer sdb.Close()
		if err := sdb.RecordCaseRun(context.Background(), analyzeCaseID, len(ids), report.Analyzed, len(report.Errors)); err != nil {
			logger.WithError(err).Warn("failed to record case run in statsdb")
		}
	}
	return nil
}
