package correlation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// disambiguationConfidenceThreshold is the §4.8.2 acceptance bar: only
// groups the model is at least this confident about are accepted.
const disambiguationConfidenceThreshold = 0.85

type disambiguationGroup struct {
	CanonicalName string   `json:"canonical_name"`
	VariantNames  []string `json:"variant_names"`
	Confidence    float64  `json:"confidence"`
}

type disambiguationResponse struct {
	Groups []disambiguationGroup `json:"groups"`
}

// singleOccurrencePersons selects the groups canonicalization left as
// singles (occurrence_count == 1) whose type is person — the candidate
// pool §4.8.2 presents to the LLM.
func singleOccurrencePersons(groups map[groupKey]*models.CorrelationRecord) []*models.CorrelationRecord {
	var singles []*models.CorrelationRecord
	for gk, rec := range groups {
		if gk.entityType == models.EntityPerson && rec.OccurrenceCount == 1 {
			singles = append(singles, rec)
		}
	}
	return singles
}

// Disambiguate issues one batched LLM call over the single-occurrence
// person candidates and returns synthetic CorrelationRecords for every
// accepted group (confidence >= disambiguationConfidenceThreshold), per
// §4.8.2. A nil client or fewer than two candidates is a no-op, not an error.
func Disambiguate(ctx context.Context, client *llm.Client, modelID string, candidates []*models.CorrelationRecord) ([]*models.CorrelationRecord, error) {
	if client == nil || len(candidates) < 2 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("The following name variants each appear exactly once in this case's evidence. " +
		"Group any that denote the same real person, with one short excerpt of context per variant:\n\n")
	for _, c := range candidates {
		context := ""
		if len(c.Contexts) > 0 {
			context = c.Contexts[0]
		}
		fmt.Fprintf(&sb, "- %q (context: %q)\n", c.EntityName, context)
	}

	raw, err := client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: "You are a forensic analyst disambiguating person names across evidence items. Only group variants you are highly confident denote the same individual.",
		UserPrompt:   sb.String(),
		Schema:       disambiguationSchema(),
	})
	if err != nil {
		if isRefusalLike(err) {
			return nil, nil
		}
		return nil, err
	}

	var resp disambiguationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, evterrors.SchemaError(err, "disambiguation response did not parse")
	}

	byName := make(map[string]*models.CorrelationRecord, len(candidates))
	for _, c := range candidates {
		byName[c.EntityName] = c
	}

	var synthesized []*models.CorrelationRecord
	for _, g := range resp.Groups {
		if g.Confidence < disambiguationConfidenceThreshold || len(g.VariantNames) < 2 {
			continue
		}
		merged := &models.CorrelationRecord{
			EntityName: g.CanonicalName,
			EntityType: models.EntityPerson,
		}
		seenEvidence := make(map[models.EvidenceId]bool)
		for _, variant := range g.VariantNames {
			src, ok := byName[variant]
			if !ok {
				continue
			}
			for _, id := range src.EvidenceIds {
				if !seenEvidence[id] {
					seenEvidence[id] = true
					merged.EvidenceIds = append(merged.EvidenceIds, id)
					merged.OccurrenceCount++
				}
			}
			merged.Contexts = append(merged.Contexts, src.Contexts...)
			if src.ConfidenceAverage > merged.ConfidenceAverage {
				merged.ConfidenceAverage = src.ConfidenceAverage
			}
		}
		if merged.OccurrenceCount > 0 {
			synthesized = append(synthesized, merged)
		}
	}
	return synthesized, nil
}

func isRefusalLike(err error) bool {
	if e, ok := err.(*evterrors.Error); ok {
		return e.Type == evterrors.ErrorTypeProviderRefusal
	}
	return false
}
