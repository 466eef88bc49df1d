package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/cache"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/summarizer"
)

var summarizeCaseID string

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Produce the case summary (forensic synthesis + domain enhancement)",
	RunE:  runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeCaseID, "case", "", "case id to summarize (required)")
	summarizeCmd.MarkFlagRequired("case")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	rc := cache.New(st, logger)
	analyses, err := rc.IterCaseAnalyses(summarizeCaseID)
	if err != nil {
		return err
	}

	var correlationResult *models.CorrelationAnalysis
	if data, readErr := os.ReadFile(st.CaseCorrelationPath(summarizeCaseID)); readErr == nil {
		var c models.CorrelationAnalysis
		if jsonErr := json.Unmarshal(data, &c); jsonErr == nil {
			correlationResult = &c
		}
	}

	client, err := llm.New(cfg, "")
	if err != nil {
		return err
	}

	result, err := summarizer.BuildCaseSummary(context.Background(), summarizeCaseID, analyses, correlationResult, cfg, client)
	if err != nil {
		return err
	}

	if err := st.PutCaseArtifact(st.CaseSummaryPath(summarizeCaseID), result); err != nil {
		return err
	}

	fmt.Printf("summary written (enhancement_applied=%v)\n", result.EnhancementApplied)
	return nil
}
