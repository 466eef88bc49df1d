package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutRawIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.PutRaw(strings.NewReader("same bytes"), "txt")
	require.NoError(t, err)
	id2, err := s.PutRaw(strings.NewReader("same bytes"), "txt")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestIngestAndAssociate(t *testing.T) {
	s := openTestStore(t)
	id, err := s.PutRaw(strings.NewReader("evidence body"), "txt")
	require.NoError(t, err)

	meta := models.FileMetadata{
		Path: "evidence.txt", Filename: "evidence.txt", SizeBytes: 13,
		MimeType: "text/plain", Extension: "txt",
		SHA256: string(id),
	}
	rec, err := s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", time.Now())
	require.NoError(t, err)
	assert.Len(t, rec.Chain, 1)
	assert.Equal(t, models.ActionIngest, rec.Chain[0].Action)

	require.NoError(t, s.Associate(id, "case-1", "tester", time.Now()))

	got, err := s.GetMetadata(id)
	require.NoError(t, err)
	assert.True(t, got.HasCase("case-1"))
	assert.Len(t, got.Chain, 2)
	assert.Equal(t, models.ActionCaseAssociate, got.Chain[1].Action)

	ids, err := s.ListCase("case-1")
	require.NoError(t, err)
	assert.Equal(t, []models.EvidenceId{id}, ids)
}

func TestAssociateUnknownEvidenceFails(t *testing.T) {
	s := openTestStore(t)
	err := s.Associate("deadbeef", "case-1", "tester", time.Now())
	assert.Error(t, err)
}

func TestPutAnalysisRejectsInvalidRecord(t *testing.T) {
	s := openTestStore(t)
	id, err := s.PutRaw(strings.NewReader("body"), "txt")
	require.NoError(t, err)

	invalid := &models.UnifiedAnalysis{
		EvidenceId: id,
		// EvidenceType deliberately omitted: must fail validation
	}
	err = s.PutAnalysis(id, invalid, "tester", time.Now())
	assert.Error(t, err)

	got, err := s.GetAnalysis(id)
	require.NoError(t, err)
	assert.Nil(t, got, "an invalid analysis must never be persisted")
}

func TestPutAnalysisRoundTripAndReanalyzeEvent(t *testing.T) {
	s := openTestStore(t)
	id, err := s.PutRaw(strings.NewReader("body"), "txt")
	require.NoError(t, err)
	meta := models.FileMetadata{
		Path: "a.txt", Filename: "a.txt", SizeBytes: 4, MimeType: "text/plain",
		Extension: "txt", SHA256: string(id),
	}
	_, err = s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", time.Now())
	require.NoError(t, err)

	analysis := &models.UnifiedAnalysis{
		EvidenceId:        id,
		EvidenceType:      models.EvidenceTypeDocument,
		AnalysisTimestamp: time.Now(),
		ModelUsed:         "gpt-4o-mini",
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

	got, err := s.GetAnalysis(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fp-v1", got.Fingerprint)

	rec, err := s.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionAnalyze, rec.Chain[len(rec.Chain)-1].Action)

	// Re-analysis of the same item appends "reanalyze", not "analyze" again.
	analysis.Fingerprint = "fp-v2"
	require.NoError(t, s.PutAnalysis(id, analysis, "tester", time.Now()))
	rec, err = s.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, models.ActionReanalyze, rec.Chain[len(rec.Chain)-1].Action)
}

func TestFingerprintIndexRoundTrip(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.LookupFingerprint("does-not-exist")
	require.NoError(t, err)
	assert.False(t, found)

	id, err := s.PutRaw(strings.NewReader("body"), "txt")
	require.NoError(t, err)
	require.NoError(t, s.indexFingerprint("fp-1", id))

	gotID, found, err := s.LookupFingerprint("fp-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, gotID)
}

func TestAppendEventEnforcesMonotonicTimestamps(t *testing.T) {
	s := openTestStore(t)
	id, err := s.PutRaw(strings.NewReader("body"), "txt")
	require.NoError(t, err)
	meta := models.FileMetadata{
		Path: "a.txt", Filename: "a.txt", SizeBytes: 4, MimeType: "text/plain",
		Extension: "txt", SHA256: string(id),
	}
	now := time.Now()
	_, err = s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", now)
	require.NoError(t, err)

	earlier := now.Add(-time.Hour)
	require.NoError(t, s.AppendEvent(id, models.ChainEvent{
		Timestamp: earlier, Actor: "tester", Action: models.ActionExport,
	}))

	rec, err := s.GetMetadata(id)
	require.NoError(t, err)
	last := rec.Chain[len(rec.Chain)-1]
	assert.False(t, last.Timestamp.Before(rec.Chain[len(rec.Chain)-2].Timestamp))
}
