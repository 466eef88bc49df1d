package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// setupTestClient connects to a Neo4j instance configured via
// NEO4J_TEST_URI/NEO4J_TEST_USER/NEO4J_TEST_PASSWORD. These are
// integration tests: they require a running Neo4j instance and are
// skipped entirely otherwise, matching this lineage's own convention of
// never faking a graph database in unit tests.
func setupTestClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping neo4j integration test in short mode")
	}
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set, skipping neo4j integration test")
	}

	ctx := context.Background()
	c, err := NewClient(ctx, uri, os.Getenv("NEO4J_TEST_USER"), os.Getenv("NEO4J_TEST_PASSWORD"))
	if err != nil {
		t.Skipf("neo4j not available: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	return c
}

func sampleAnalysis(caseID string) *models.CorrelationAnalysis {
	return &models.CorrelationAnalysis{
		CaseId: caseID,
		Correlations: []models.CorrelationRecord{
			{EntityName: "Jane Doe", EntityType: models.EntityPerson, OccurrenceCount: 3, ConfidenceAverage: 0.8},
		},
		Timeline: []models.TimelineEvent{
			{Timestamp: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), EvidenceId: "ev1", EventType: "analysis", Description: "doc analyzed"},
		},
	}
}

func TestMirrorCaseThenConsistencyCheckPasses(t *testing.T) {
	c := setupTestClient(t)
	ctx := context.Background()
	analysis := sampleAnalysis("graph-test-case-1")

	require.NoError(t, c.MirrorCase(ctx, analysis))
	require.NoError(t, c.CheckConsistency(ctx, analysis))
}

func TestCheckConsistencyFailsWhenMirrorIsStale(t *testing.T) {
	c := setupTestClient(t)
	ctx := context.Background()
	analysis := sampleAnalysis("graph-test-case-2")
	require.NoError(t, c.MirrorCase(ctx, analysis))

	analysis.Correlations = append(analysis.Correlations, models.CorrelationRecord{
		EntityName: "Acme Corp", EntityType: models.EntityOrganization, OccurrenceCount: 1,
	})

	err := c.CheckConsistency(ctx, analysis)
	require.Error(t, err)
}
