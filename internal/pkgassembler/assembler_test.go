package pkgassembler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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

func ingestAndAnalyze(t *testing.T, s *store.Store, caseID, body string) models.EvidenceId {
	t.Helper()
	id, err := s.PutRaw(strings.NewReader(body), "txt")
	require.NoError(t, err)

	meta := models.FileMetadata{
		Path: "e.txt", Filename: "e.txt", SizeBytes: int64(len(body)),
		MimeType: "text/plain", Extension: "txt", SHA256: string(id),
	}
	_, err = s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Associate(id, caseID, "tester", time.Now()))

	analysis := &models.UnifiedAnalysis{
		SchemaVersion:     models.SchemaVersion,
		EvidenceId:        id,
		EvidenceType:      models.EvidenceTypeDocument,
		AnalysisTimestamp: time.Now(),
		ModelUsed:         "test-model",
		Fingerprint:       "fp-" + string(id),
		FileMetadata:      meta,
		Document: &models.DocumentAnalysis{
			Summary:           "a summary",
			Sentiment:         models.SentimentNeutral,
			LegalSignificance: models.SignificanceLow,
		},
	}
	require.NoError(t, s.PutAnalysis(id, analysis, "tester", time.Now()))
	return id
}

func TestAssembleBuildsPackageDirectoryWithCatalogAndAnalyses(t *testing.T) {
	s := openTestStore(t)
	id := ingestAndAnalyze(t, s, "case-1", "evidence body")

	require.NoError(t, Assemble(s, "case-1"))

	pkgDir := s.CasePackageDir("case-1")
	entries, err := os.ReadDir(pkgDir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "catalog.json")
	assert.Contains(t, names, "analysis_"+string(id)+".v1.json")
}

func TestAssembleWithoutCorrelationOrSummaryStillBuilds(t *testing.T) {
	s := openTestStore(t)
	ingestAndAnalyze(t, s, "case-2", "evidence body two")

	require.NoError(t, Assemble(s, "case-2"))

	data, err := os.ReadFile(filepath.Join(s.CasePackageDir("case-2"), "catalog.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"has_correlation": false`)
	assert.Contains(t, string(data), `"has_summary": false`)
}

func TestAssembleRefusesWhenCorrelationArtifactFailsValidation(t *testing.T) {
	s := openTestStore(t)
	ingestAndAnalyze(t, s, "case-3", "evidence body three")

	// Hand-write an invalid correlation.v1.json directly (missing case_id,
	// which models.Validate requires) to force the invariant-3 rejection.
	path := s.CaseCorrelationPath("case-3")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":1}`), 0o644))

	err := Assemble(s, "case-3")
	require.Error(t, err)

	_, statErr := os.Stat(s.CasePackageDir("case-3"))
	assert.True(t, os.IsNotExist(statErr), "no partial package directory should remain after a failed assemble")
}

func TestAssembleEmptyCaseBuildsEmptyPackage(t *testing.T) {
	s := openTestStore(t)

	// An associated-but-empty case: create the manifest via a PutRaw+Ingest
	// then immediately assemble with zero analyses by never calling PutAnalysis.
	id, putErr := s.PutRaw(strings.NewReader("raw only"), "txt")
	require.NoError(t, putErr)
	meta := models.FileMetadata{Path: "r.txt", Filename: "r.txt", SizeBytes: 8, MimeType: "text/plain", Extension: "txt", SHA256: string(id)}
	_, err := s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Associate(id, "case-4", "tester", time.Now()))

	require.NoError(t, Assemble(s, "case-4"))
	entries, err := os.ReadDir(s.CasePackageDir("case-4"))
	require.NoError(t, err)
	assert.Len(t, entries, 1) // catalog.json only, no analysis.v1.json was ever written
}
