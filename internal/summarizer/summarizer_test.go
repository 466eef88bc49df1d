package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

func docItem(id, summary string) models.UnifiedAnalysis {
	return models.UnifiedAnalysis{
		EvidenceId: models.EvidenceId(id),
		Document:   &models.DocumentAnalysis{Summary: summary, Sentiment: models.SentimentNeutral},
	}
}

func TestSplitChunksDividesExactMultipleEvenly(t *testing.T) {
	analyses := make([]models.UnifiedAnalysis, 60)
	for i := range analyses {
		analyses[i] = docItem("ev", "summary")
	}
	chunks := splitChunks(analyses, 30)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 30)
	assert.Len(t, chunks[1], 30)
}

func TestSplitChunksHandlesNonMultipleLength(t *testing.T) {
	analyses := make([]models.UnifiedAnalysis, 61)
	for i := range analyses {
		analyses[i] = docItem("ev", "summary")
	}
	chunks := splitChunks(analyses, 30)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 30)
	assert.Len(t, chunks[1], 30)
	assert.Len(t, chunks[2], 1)
}

// TestDeterministicExcerptFallsBackToFirstThreeSummaries checks the
// content of the §4.9 "failed chunks fall back to a deterministic excerpt"
// text by calling deterministicExcerpt directly: only the first three
// items' summaries appear.
func TestDeterministicExcerptFallsBackToFirstThreeSummaries(t *testing.T) {
	chunk := []models.UnifiedAnalysis{
		docItem("ev1", "summary one"),
		docItem("ev2", "summary two"),
		docItem("ev3", "summary three"),
		docItem("ev4", "summary four"),
	}
	excerpt := deterministicExcerpt(chunk)
	assert.Contains(t, excerpt, "summary one")
	assert.Contains(t, excerpt, "summary two")
	assert.Contains(t, excerpt, "summary three")
	assert.NotContains(t, excerpt, "summary four")
}

// TestScenarioS3MapReduceChunkCount checks the ceil(60/30)=2 chunk-call
// shape from §8 scenario S3 directly via splitChunks, without making any
// network call. BuildForensicSummary is not called: its reduce call needs
// an LLM client.
func TestScenarioS3MapReduceChunkCount(t *testing.T) {
	analyses := make([]models.UnifiedAnalysis, 60)
	for i := range analyses {
		analyses[i] = docItem("ev", "summary")
	}
	chunks := splitChunks(analyses, 30)
	assert.Len(t, chunks, 2)
}

func TestScenarioS3NoMapReduceAtExactlyFifty(t *testing.T) {
	analyses := make([]models.UnifiedAnalysis, 50)
	for i := range analyses {
		analyses[i] = docItem("ev", "summary")
	}
	assert.LessOrEqual(t, len(analyses), 50)
}

func TestBuildCaseSummaryZeroEvidenceYieldsNoEvidenceSummary(t *testing.T) {
	summary, err := BuildCaseSummary(nil, "case-empty", nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "case-empty", summary.CaseId)
	assert.NotEmpty(t, summary.ForensicSummary)
	assert.Empty(t, summary.EvidenceCatalog)
	assert.False(t, summary.EnhancementApplied)
}

func TestApplyEnhancementNilClientReturnsNotApplied(t *testing.T) {
	fields, applied := ApplyEnhancement(nil, nil, "", models.CaseTypeWorkplace, models.EnhancementFields{ForensicSummary: "x"})
	assert.False(t, applied)
	assert.Zero(t, fields)
}

func TestEnhancementPromptsResolvesUnknownCaseTypeToGeneric(t *testing.T) {
	_, ok := enhancementPrompts[models.CaseType("unknown")]
	assert.False(t, ok)
	_, ok = enhancementPrompts[models.CaseTypeGeneric]
	assert.True(t, ok)
}
