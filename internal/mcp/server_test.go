package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListCaseEvidenceReturnsAssociatedIds(t *testing.T) {
	s := openTestStore(t)
	id, err := s.PutRaw(strings.NewReader("body"), ".txt")
	require.NoError(t, err)
	meta := models.FileMetadata{Path: "a.txt", Filename: "a.txt", SizeBytes: 4, MimeType: "text/plain", Extension: ".txt", SHA256: string(id)}
	_, err = s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Associate(id, "case-mcp-1", "tester", time.Now()))

	result, ids, err := listCaseEvidence(s)(context.Background(), nil, CaseIDArgs{CaseID: "case-mcp-1"})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.Contains(t, resultText(t, result), "a.txt")
}

func TestGetCaseCorrelationErrorsWithoutArtifact(t *testing.T) {
	s := openTestStore(t)
	_, _, err := getCaseCorrelation(s)(context.Background(), nil, CaseIDArgs{CaseID: "missing-case"})
	require.Error(t, err)
}

func TestGetCaseSummaryReadsWrittenArtifact(t *testing.T) {
	s := openTestStore(t)
	summary := models.CaseSummary{CaseId: "case-mcp-2", ForensicSummary: "a summary", RiskAssessment: "moderate"}
	require.NoError(t, s.PutCaseArtifact(s.CaseSummaryPath("case-mcp-2"), summary))

	result, got, err := getCaseSummary(s)(context.Background(), nil, CaseIDArgs{CaseID: "case-mcp-2"})
	require.NoError(t, err)
	gotSummary, ok := got.(models.CaseSummary)
	require.True(t, ok)
	require.Equal(t, "a summary", gotSummary.ForensicSummary)

	var roundTrip models.CaseSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &roundTrip))
	require.Equal(t, summary.RiskAssessment, roundTrip.RiskAssessment)
}
