package correlation

import (
	"sort"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// dedupKey is invariant 4's uniqueness key: (normalize(entity_name),
// entity_type), using the schema layer's Normalize (lowercase + whitespace
// collapse) — the final, mandatory merge step after string-match grouping
// and AI disambiguation have both run (§4.8.3).
type dedupKey struct {
	name       string
	entityType models.EntityType
}

// Deduplicate merges every CorrelationRecord sharing a dedupKey: union
// evidence_ids (so occurrence_count never double-counts a shared
// evidence_id), union contexts up to the cap, and take the maximum
// confidence_average. The result is sorted by occurrence_count
// descending, then entity_name ascending, for a stable, deterministic
// output (§4.8.3).
//
// This pass is mandatory — a prior version of this pipeline omitted it
// and shipped duplicate CorrelationRecords for the same entity; §8
// scenario S2 exercises exactly that regression.
func Deduplicate(records []*models.CorrelationRecord) []models.CorrelationRecord {
	merged := make(map[dedupKey]*models.CorrelationRecord)
	var order []dedupKey

	for _, r := range records {
		key := dedupKey{name: models.Normalize(r.EntityName), entityType: r.EntityType}
		existing, ok := merged[key]
		if !ok {
			clone := *r
			clone.EvidenceIds = append([]models.EvidenceId(nil), r.EvidenceIds...)
			clone.Contexts = append([]string(nil), r.Contexts...)
			merged[key] = &clone
			order = append(order, key)
			continue
		}
		mergeInto(existing, r)
	}

	out := make([]models.CorrelationRecord, 0, len(order))
	for _, key := range order {
		rec := merged[key]
		recomputeOccurrenceCount(rec)
		out = append(out, *rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurrenceCount != out[j].OccurrenceCount {
			return out[i].OccurrenceCount > out[j].OccurrenceCount
		}
		return out[i].EntityName < out[j].EntityName
	})
	return out
}

func mergeInto(dst *models.CorrelationRecord, src *models.CorrelationRecord) {
	seen := make(map[models.EvidenceId]bool, len(dst.EvidenceIds))
	for _, id := range dst.EvidenceIds {
		seen[id] = true
	}
	for _, id := range src.EvidenceIds {
		if !seen[id] {
			seen[id] = true
			dst.EvidenceIds = append(dst.EvidenceIds, id)
		}
	}
	dst.Contexts = appendContextsCappedUnion(dst.Contexts, src.Contexts)
	if src.ConfidenceAverage > dst.ConfidenceAverage {
		dst.ConfidenceAverage = src.ConfidenceAverage
	}
}

func appendContextsCappedUnion(dst, src []string) []string {
	for _, c := range src {
		dst = appendContextCapped(dst, c)
	}
	return dst
}

// recomputeOccurrenceCount sets occurrence_count to the deduplicated
// evidence_id count, per invariant: "occurrence_count == |unique
// evidence_id mentions|" (§8 invariant 4).
func recomputeOccurrenceCount(rec *models.CorrelationRecord) {
	rec.OccurrenceCount = len(rec.EvidenceIds)
}
