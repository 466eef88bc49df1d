package correlation

import (
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// occurrence is one raw entity mention pulled from an analysis, before
// canonicalization/grouping.
type occurrence struct {
	name       string
	entityType models.EntityType
	evidenceID models.EvidenceId
	context    string
	confidence float64
}

// ExtractOccurrences collects every Entity from every DocumentAnalysis,
// every participant from an EmailThreadAnalysis (each as a person entity;
// participants are never typed as organizations), and every detected_text
// string from an ImageAnalysis (as
// text_in_image entities) — step 1 of §4.8.1.
func ExtractOccurrences(analyses []models.UnifiedAnalysis) []occurrence {
	var out []occurrence
	for _, a := range analyses {
		switch {
		case a.Document != nil:
			for _, e := range a.Document.Entities {
				out = append(out, occurrence{
					name: e.Name, entityType: e.Type, evidenceID: a.EvidenceId,
					context: e.Context, confidence: e.Confidence,
				})
			}
		case a.Email != nil:
			for _, p := range a.Email.Participants {
				name := p.DisplayName
				if name == "" {
					name = p.Email
				}
				out = append(out, occurrence{
					name: name, entityType: models.EntityPerson, evidenceID: a.EvidenceId,
					context: p.Email, confidence: 1.0,
				})
			}
		case a.Image != nil:
			if a.Image.DetectedText != "" {
				out = append(out, occurrence{
					name: a.Image.DetectedText, entityType: models.EntityTextInImage, evidenceID: a.EvidenceId,
					context: a.Image.SceneDescription, confidence: a.Image.AnalysisConfidence,
				})
			}
		}
	}
	return out
}

// groupKey is the deterministic grouping key of §4.8.1 step 3:
// (canonical_key, entity_type).
type groupKey struct {
	key        string
	entityType models.EntityType
}

// GroupOccurrences builds a preliminary CorrelationRecord per
// (canonical_key, entity_type) group, deduplicating repeated mentions of
// the same entity within a single evidence item first (so a document
// that mentions "Sarah Johnson" three times contributes one occurrence,
// not three — invariant 4's "unique evidence_id mentions" wording).
func GroupOccurrences(occurrences []occurrence) map[groupKey]*models.CorrelationRecord {
	groups := make(map[groupKey]*models.CorrelationRecord)
	seenPerEvidence := make(map[groupKey]map[models.EvidenceId]bool)
	displayNames := make(map[groupKey]string)

	for _, o := range occurrences {
		ck := Canonicalize(o.name, o.entityType)
		if ck.Key == "" {
			continue
		}
		gk := groupKey{key: ck.Key, entityType: o.entityType}

		rec, ok := groups[gk]
		if !ok {
			rec = &models.CorrelationRecord{
				EntityName: ck.DisplayForm,
				EntityType: o.entityType,
			}
			groups[gk] = rec
			seenPerEvidence[gk] = make(map[models.EvidenceId]bool)
			displayNames[gk] = ck.DisplayForm
		}

		if !seenPerEvidence[gk][o.evidenceID] {
			seenPerEvidence[gk][o.evidenceID] = true
			rec.OccurrenceCount++
			rec.EvidenceIds = append(rec.EvidenceIds, o.evidenceID)
		}
		rec.Contexts = appendContextCapped(rec.Contexts, o.context)
		rec.ConfidenceAverage = runningAverage(rec.ConfidenceAverage, rec.OccurrenceCount, o.confidence)
	}
	return groups
}

// maxContexts caps how many excerpt contexts a CorrelationRecord carries,
// per §4.8.3's "union their contexts up to a cap".
const maxContexts = 10

func appendContextCapped(contexts []string, ctx string) []string {
	if ctx == "" || len(contexts) >= maxContexts {
		return contexts
	}
	for _, c := range contexts {
		if c == ctx {
			return contexts
		}
	}
	return append(contexts, ctx)
}

func runningAverage(currentAvg float64, countAfterThis int, newValue float64) float64 {
	if countAfterThis <= 1 {
		return newValue
	}
	return currentAvg + (newValue-currentAvg)/float64(countAfterThis)
}
