package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/statsdb"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect the evidence store",
}

var storageStatsCaseID string

var storageStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print raw/derived/case population counts",
	RunE:  runStorageStats,
}

func init() {
	storageStatsCmd.Flags().StringVar(&storageStatsCaseID, "case", "", "also print statsdb's recorded totals for this case")
	storageCmd.AddCommand(storageStatsCmd)
}

func runStorageStats(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("storage_root: %s\n", cfg.Core.StorageRoot)
	fmt.Printf("raw_blobs:    %d\n", stats.RawCount)
	fmt.Printf("derived_dirs: %d\n", stats.DerivedCount)
	fmt.Printf("cases:        %d\n", stats.CaseCount)
	fmt.Printf("fingerprint_index: %s\n", stats.IndexPath)

	if cfg.StatsDB.DSN == "" || storageStatsCaseID == "" {
		return nil
	}

	sdb, err := statsdb.Open(cfg.StatsDB.DSN, logger)
	if err != nil {
		logger.WithError(err).Warn("statsdb unavailable")
		return nil
	}
	defer sdb.Close()

	caseStats, found, err := sdb.CaseStats(context.Background(), storageStatsCaseID)
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("statsdb: no recorded runs for case %s\n", storageStatsCaseID)
		return nil
	}
	fmt.Printf("statsdb[%s]: evidence=%d analyzed=%d errors=%d last_analyzed_at=%s\n",
		caseStats.CaseId, caseStats.EvidenceCount, caseStats.AnalyzedCount, caseStats.ErrorCount, caseStats.LastAnalyzedAt)
	return nil
}
