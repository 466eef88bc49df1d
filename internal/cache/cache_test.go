package cache

import (
	"strings"
	"testing"
	"time"

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

func seedCaseWithOneDocument(t *testing.T, s *store.Store, caseID string) models.EvidenceId {
	t.Helper()
	id, err := s.PutRaw(strings.NewReader("evidence body"), ".txt")
	require.NoError(t, err)

	meta := models.FileMetadata{
		Path: "doc.txt", Filename: "doc.txt", SizeBytes: 13,
		MimeType: "text/plain", Extension: ".txt", SHA256: string(id),
	}
	_, err = s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Associate(id, caseID, "tester", time.Now()))

	analysis := &models.UnifiedAnalysis{
		EvidenceId:        id,
		EvidenceType:      models.EvidenceTypeDocument,
		AnalysisTimestamp: time.Now(),
		ModelUsed:         "test-model",
		Fingerprint:       "fp-v1",
		FileMetadata:      meta,
		Document: &models.DocumentAnalysis{
			Summary:           "a memo about scheduling",
			Sentiment:         models.SentimentNeutral,
			LegalSignificance: models.SignificanceLow,
			ConfidenceOverall: 0.9,
		},
	}
	require.NoError(t, s.PutAnalysis(id, analysis, "tester", time.Now()))
	return id
}

func TestIterCaseAnalysesCachesAcrossCalls(t *testing.T) {
	s := openTestStore(t)
	caseID := "case-cache-1"
	seedCaseWithOneDocument(t, s, caseID)

	c := New(s, nil)

	first, err := c.IterCaseAnalyses(caseID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := c.IterCaseAnalyses(caseID)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGetAnalysisCachesSingleItem(t *testing.T) {
	s := openTestStore(t)
	id := seedCaseWithOneDocument(t, s, "case-cache-2")

	c := New(s, nil)

	first, err := c.GetAnalysis(id)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := c.GetAnalysis(id)
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestInvalidateDropsCachedEntries(t *testing.T) {
	s := openTestStore(t)
	id := seedCaseWithOneDocument(t, s, "case-cache-3")

	c := New(s, nil)
	_, err := c.GetAnalysis(id)
	require.NoError(t, err)

	c.Invalidate(id)

	_, found := c.mem.Get("analysis:" + string(id))
	require.False(t, found)
}
