package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

func TestFingerprintIsDeterministicAndSensitiveToEachInput(t *testing.T) {
	base := fingerprint("abc123", "doc-v1", "prompt-v1", "gpt-4o-mini")
	assert.Equal(t, base, fingerprint("abc123", "doc-v1", "prompt-v1", "gpt-4o-mini"))

	assert.NotEqual(t, base, fingerprint("xyz789", "doc-v1", "prompt-v1", "gpt-4o-mini"))
	assert.NotEqual(t, base, fingerprint("abc123", "doc-v2", "prompt-v1", "gpt-4o-mini"))
	assert.NotEqual(t, base, fingerprint("abc123", "doc-v1", "prompt-v2", "gpt-4o-mini"))
	assert.NotEqual(t, base, fingerprint("abc123", "doc-v1", "prompt-v1", "gemini-2.0-flash"))
}

func TestAppendFlagOnceDoesNotDuplicate(t *testing.T) {
	flags := appendFlagOnce(nil, models.RiskFlagTruncatedInput)
	flags = appendFlagOnce(flags, models.RiskFlagTruncatedInput)
	assert.Equal(t, []string{models.RiskFlagTruncatedInput}, flags)
}

func TestReconstructThreadFallsBackToSubjectNormalizedTimeOrdering(t *testing.T) {
	now := time.Now()
	messages := []EmailMessage{
		{Subject: "Re: Leave request", Date: now.Add(2 * time.Hour)},
		{Subject: "Leave request", Date: now},
		{Subject: "RE: Leave request", Date: now.Add(time.Hour)},
	}
	ordered := ReconstructThread(messages)
	require.Len(t, ordered, 3)
	assert.Equal(t, now, ordered[0].Date)
	assert.Equal(t, now.Add(time.Hour), ordered[1].Date)
	assert.Equal(t, now.Add(2*time.Hour), ordered[2].Date)
}

func TestReconstructThreadSingleMessageUnchanged(t *testing.T) {
	messages := []EmailMessage{{Subject: "Only one"}}
	assert.Equal(t, messages, ReconstructThread(messages))
}

func TestNormalizeSubjectStripsReplyAndForwardPrefixes(t *testing.T) {
	assert.Equal(t, "leave request", normalizeSubject("Re: Fwd: RE: Leave Request"))
}

func TestExtractEXIFReturnsEmptyMapForNonJPEG(t *testing.T) {
	exif, err := ExtractEXIF([]byte("not a jpeg at all"))
	require.NoError(t, err)
	assert.Empty(t, exif)
}

func TestComputePHashIsDeterministicForIdenticalBytes(t *testing.T) {
	img := encodeTestPNG(t)
	h1, err := ComputePHash(img)
	require.NoError(t, err)
	h2, err := ComputePHash(img)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16) // 64 bits as hex
}

func TestAnalyzePagesMergesDetectedTextAndTakesMaxEvidenceValue(t *testing.T) {
	pages := []*models.ImageAnalysis{
		{Summary: "page one", DetectedText: "first page text", PotentialEvidenceValue: models.EvidenceValueLow, AnalysisConfidence: 0.6},
		{DetectedText: "second page text", PotentialEvidenceValue: models.EvidenceValueHigh, AnalysisConfidence: 0.8},
	}
	merged := AnalyzePages(pages)
	require.NotNil(t, merged)
	assert.Contains(t, merged.DetectedText, "first page text")
	assert.Contains(t, merged.DetectedText, "second page text")
	assert.Equal(t, models.EvidenceValueHigh, merged.PotentialEvidenceValue)
	assert.InDelta(t, 0.7, merged.AnalysisConfidence, 0.0001)
}

func TestAnalyzePagesAllNilReturnsNil(t *testing.T) {
	assert.Nil(t, AnalyzePages([]*models.ImageAnalysis{nil, nil}))
}

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	// A minimal valid 1x1 PNG (transparent pixel), enough to exercise
	// image.Decode without depending on a fixture file.
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
		0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
		0x42, 0x60, 0x82,
	}
}
