package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

func docAnalysis(id string, entities []models.Entity, ts time.Time) models.UnifiedAnalysis {
	return models.UnifiedAnalysis{
		EvidenceId:        models.EvidenceId(id),
		EvidenceType:      models.EvidenceTypeDocument,
		AnalysisTimestamp: ts,
		ModelUsed:         "test-model",
		Fingerprint:       "fp-" + id,
		Document: &models.DocumentAnalysis{
			Summary:   "summary",
			Entities:  entities,
			Sentiment: models.SentimentNeutral,
		},
	}
}

func entity(name string, typ models.EntityType, confidence float64, context string) models.Entity {
	return models.Entity{Name: name, Type: typ, Confidence: confidence, Context: context}
}

// TestCanonicalizeReducesInitialsToSharedKey exercises the scenario S2
// grouping behavior: "Sarah Johnson" and "S. Johnson" collapse to the same
// canonical key, distinct from a bare "Sarah".
func TestCanonicalizeReducesInitialsToSharedKey(t *testing.T) {
	full := Canonicalize("Sarah Johnson", models.EntityPerson)
	initialed := Canonicalize("S. Johnson", models.EntityPerson)
	bare := Canonicalize("Sarah", models.EntityPerson)

	assert.Equal(t, full.Key, initialed.Key)
	assert.NotEqual(t, full.Key, bare.Key)
}

func TestCanonicalizeStripsHonorificsAndPunctuation(t *testing.T) {
	ck := Canonicalize("Dr. Janet O'Malley", models.EntityPerson)
	assert.Equal(t, Canonicalize("Janet O'Malley", models.EntityPerson).Key, ck.Key)
}

func TestGroupOccurrencesDeduplicatesWithinSingleEvidenceItem(t *testing.T) {
	occurrences := []occurrence{
		{name: "Sarah Johnson", entityType: models.EntityPerson, evidenceID: "ev1", context: "first mention"},
		{name: "Sarah Johnson", entityType: models.EntityPerson, evidenceID: "ev1", context: "second mention"},
	}
	groups := GroupOccurrences(occurrences)
	require.Len(t, groups, 1)
	for _, rec := range groups {
		assert.Equal(t, 1, rec.OccurrenceCount)
		assert.Len(t, rec.EvidenceIds, 1)
	}
}

// TestScenarioS2DisambiguationAndDedupRegression is the regression the
// spec explicitly calls out: deterministic grouping alone leaves "Sarah
// Johnson" (x3, merged with "S. Johnson" via initials reduction) at
// occurrence_count=4 and "Sarah" as its own singleton. Disambiguation must
// merge them to occurrence_count=5, and the mandatory dedup pass must not
// let the result contain two records for the same person.
func TestScenarioS2DisambiguationAndDedupRegression(t *testing.T) {
	occurrences := []occurrence{
		{name: "Sarah Johnson", entityType: models.EntityPerson, evidenceID: "ev1", context: "ctx1"},
		{name: "Sarah Johnson", entityType: models.EntityPerson, evidenceID: "ev2", context: "ctx2"},
		{name: "Sarah Johnson", entityType: models.EntityPerson, evidenceID: "ev5", context: "ctx5"},
		{name: "S. Johnson", entityType: models.EntityPerson, evidenceID: "ev3", context: "ctx3"},
		{name: "Sarah", entityType: models.EntityPerson, evidenceID: "ev4", context: "ctx4"},
	}
	groups := GroupOccurrences(occurrences)

	var merged, singleton *models.CorrelationRecord
	for gk, rec := range groups {
		if gk.key == "johnson s" {
			merged = rec
		}
		if gk.key == "sarah" {
			singleton = rec
		}
	}
	require.NotNil(t, merged)
	require.NotNil(t, singleton)
	assert.Equal(t, 4, merged.OccurrenceCount)
	assert.Equal(t, 1, singleton.OccurrenceCount)

	records := make([]*models.CorrelationRecord, 0, len(groups))
	for _, rec := range groups {
		records = append(records, rec)
	}
	// Simulate the AI disambiguation pass accepting the merge deterministically.
	synthesized := &models.CorrelationRecord{
		EntityName:        "Sarah Johnson",
		EntityType:        models.EntityPerson,
		OccurrenceCount:   5,
		EvidenceIds:       append(append([]models.EvidenceId{}, merged.EvidenceIds...), singleton.EvidenceIds...),
		Contexts:          append(append([]string{}, merged.Contexts...), singleton.Contexts...),
		ConfidenceAverage: 0.9,
	}
	records = append(records, synthesized)

	deduped := Deduplicate(records)
	count := 0
	for _, rec := range deduped {
		if rec.EntityType == models.EntityPerson && models.Normalize(rec.EntityName) == models.Normalize("Sarah Johnson") {
			count++
			assert.Equal(t, 5, rec.OccurrenceCount)
		}
	}
	assert.Equal(t, 1, count, "deduplication must not leave two records for the same normalized entity name")
}

func TestDeduplicateMergesSharedEvidenceIDsWithoutDoubleCounting(t *testing.T) {
	a := &models.CorrelationRecord{
		EntityName: "Acme Corp", EntityType: models.EntityOrganization,
		OccurrenceCount: 2, EvidenceIds: []models.EvidenceId{"ev1", "ev2"},
		ConfidenceAverage: 0.7,
	}
	b := &models.CorrelationRecord{
		EntityName: "ACME CORP", EntityType: models.EntityOrganization,
		OccurrenceCount: 1, EvidenceIds: []models.EvidenceId{"ev2"},
		ConfidenceAverage: 0.95,
	}
	out := Deduplicate([]*models.CorrelationRecord{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].OccurrenceCount)
	assert.Equal(t, 0.95, out[0].ConfidenceAverage)
}

func TestDeduplicateSortsByOccurrenceCountThenName(t *testing.T) {
	records := []*models.CorrelationRecord{
		{EntityName: "Zed", EntityType: models.EntityPerson, OccurrenceCount: 2, EvidenceIds: []models.EvidenceId{"e1", "e2"}},
		{EntityName: "Alice", EntityType: models.EntityPerson, OccurrenceCount: 5, EvidenceIds: []models.EvidenceId{"e3", "e4", "e5", "e6", "e7"}},
		{EntityName: "Bob", EntityType: models.EntityPerson, OccurrenceCount: 2, EvidenceIds: []models.EvidenceId{"e8", "e9"}},
	}
	out := Deduplicate(records)
	require.Len(t, out, 3)
	assert.Equal(t, "Alice", out[0].EntityName)
	assert.Equal(t, "Bob", out[1].EntityName)
	assert.Equal(t, "Zed", out[2].EntityName)
}

// TestScenarioS5TimelineGapsAndSequences matches §8 scenario S5: events at
// days 0, 3, 50, 150 (relative) produce a sequence for {0,3}, a 47-day
// medium gap, a 100-day high gap, and singleton sequences at 50 and 150.
func TestScenarioS5TimelineGapsAndSequences(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []models.TimelineEvent{
		{Timestamp: base, EvidenceId: "ev0", Confidence: 1},
		{Timestamp: base.AddDate(0, 0, 3), EvidenceId: "ev3", Confidence: 1},
		{Timestamp: base.AddDate(0, 0, 50), EvidenceId: "ev50", Confidence: 1},
		{Timestamp: base.AddDate(0, 0, 150), EvidenceId: "ev150", Confidence: 1},
	}

	sequences := BuildSequences(events, 7)
	require.Len(t, sequences, 3)
	assert.Len(t, sequences[0].Events, 2)
	assert.Len(t, sequences[1].Events, 1)
	assert.Len(t, sequences[2].Events, 1)

	gaps := BuildGaps(events, 7)
	require.Len(t, gaps, 2)
	assert.InDelta(t, 47, gaps[0].Days, 0.01)
	assert.Equal(t, models.GapMedium, gaps[0].Significance)
	assert.InDelta(t, 100, gaps[1].Days, 0.01)
	assert.Equal(t, models.GapHigh, gaps[1].Significance)
}

func TestBuildGapsEmptyWhenNoGapsExceedThreshold(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []models.TimelineEvent{
		{Timestamp: base, EvidenceId: "ev0"},
		{Timestamp: base.AddDate(0, 0, 1), EvidenceId: "ev1"},
	}
	assert.Empty(t, BuildGaps(events, 7))
}

// TestBoundaryZeroEvidenceYieldsEmptyAnalysis covers §8's boundary
// behavior: zero evidence items produce a structurally valid, empty
// CorrelationAnalysis rather than an error.
func TestBoundaryZeroEvidenceYieldsEmptyAnalysis(t *testing.T) {
	analysis, err := BuildCorrelationAnalysis(nil, "case-empty", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "case-empty", analysis.CaseId)
	assert.Empty(t, analysis.Correlations)
	assert.Empty(t, analysis.Timeline)
	assert.False(t, analysis.AIResolutionApplied)
}

func TestBoundarySingleItemWithNoEntitiesYieldsEmptyCorrelations(t *testing.T) {
	analyses := []models.UnifiedAnalysis{docAnalysis("ev1", nil, time.Time{})}
	analysis, err := BuildCorrelationAnalysis(nil, "case-1", analyses, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, analysis.Correlations)
	assert.Empty(t, analysis.Timeline)
}

func TestExtractOccurrencesCollectsDocumentEmailAndImageEntities(t *testing.T) {
	analyses := []models.UnifiedAnalysis{
		docAnalysis("ev1", []models.Entity{entity("Sarah Johnson", models.EntityPerson, 0.9, "ctx")}, time.Time{}),
		{
			EvidenceId:   "ev2",
			EvidenceType: models.EvidenceTypeEmail,
			Email: &models.EmailThreadAnalysis{
				Participants:         []models.Participant{{Email: "a@example.com", DisplayName: "Alice", AuthorityLevel: models.AuthorityEmployee}},
				CommunicationPattern: models.PatternProfessional,
			},
		},
		{
			EvidenceId:   "ev3",
			EvidenceType: models.EvidenceTypeImage,
			Image: &models.ImageAnalysis{
				Summary:                "summary",
				DetectedText:           "EXHIBIT A",
				PotentialEvidenceValue: models.EvidenceValueHigh,
			},
		},
	}
	occs := ExtractOccurrences(analyses)
	require.Len(t, occs, 3)
	assert.Equal(t, models.EntityPerson, occs[0].entityType)
	assert.Equal(t, models.EntityPerson, occs[1].entityType)
	assert.Equal(t, models.EntityTextInImage, occs[2].entityType)
}
