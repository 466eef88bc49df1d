package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/cache"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/correlation"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/graph"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

var correlateCaseID string

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Build the correlation and timeline analysis for a case",
	RunE:  runCorrelate,
}

func init() {
	correlateCmd.Flags().StringVar(&correlateCaseID, "case", "", "case id to correlate (required)")
	correlateCmd.MarkFlagRequired("case")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	rc := cache.New(st, logger)
	analyses, err := rc.IterCaseAnalyses(correlateCaseID)
	if err != nil {
		return err
	}

	var client *llm.Client
	if cfg.Core.AIResolveEntities {
		client, err = llm.New(cfg, "")
		if err != nil {
			return err
		}
	}

	result, err := correlation.BuildCorrelationAnalysis(context.Background(), correlateCaseID, analyses, cfg, client)
	if err != nil {
		return err
	}

	if err := st.PutCaseArtifact(st.CaseCorrelationPath(correlateCaseID), result); err != nil {
		return err
	}

	if cfg.Neo4j.URI != "" {
		gc, err := graph.NewClientWithDatabase(context.Background(), cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			logger.WithError(err).Warn("neo4j graph mirror unavailable, skipping mirror")
		} else {
			defer gc.Close(context.Background())
			if err := gc.MirrorCase(context.Background(), result); err != nil {
				logger.WithError(err).Warn("failed to mirror case into neo4j")
			} else if err := gc.CheckConsistency(context.Background(), result); err != nil {
				logger.WithError(err).Warn("neo4j mirror consistency check failed")
			}
		}
	}

	fmt.Printf("correlated %d entities, %d timeline events, %d gaps, %d patterns\n",
		len(result.Correlations), len(result.Timeline), len(result.Gaps), len(result.Patterns))
	return nil
}
