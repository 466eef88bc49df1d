package correlation

import (
	"context"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/config"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// BuildCorrelationAnalysis runs the full correlation pipeline for one case:
// extract occurrences, group them deterministically, optionally disambiguate
// singleton person names with the LLM, deduplicate, then derive the
// timeline, sequences, gaps, and legal patterns (§4.8). An empty analyses
// slice yields an empty, valid CorrelationAnalysis rather than an error
// (§8 boundary behavior: zero evidence).
func BuildCorrelationAnalysis(ctx context.Context, caseID string, analyses []models.UnifiedAnalysis, cfg *config.Config, client *llm.Client) (*models.CorrelationAnalysis, error) {
	occurrences := ExtractOccurrences(analyses)
	groups := GroupOccurrences(occurrences)

	records := make([]*models.CorrelationRecord, 0, len(groups))
	for _, rec := range groups {
		records = append(records, rec)
	}

	aiApplied := false
	if cfg != nil && cfg.Core.AIResolveEntities && client != nil {
		candidates := singleOccurrencePersons(groups)
		synthesized, err := Disambiguate(ctx, client, cfg.Core.ModelId, candidates)
		if err != nil {
			return nil, err
		}
		if len(synthesized) > 0 {
			records = append(records, synthesized...)
			aiApplied = true
		}
	}

	correlations := Deduplicate(records)

	events := ExtractTimelineEvents(analyses)
	sequenceWindow, gapThreshold := 7, 7
	if cfg != nil {
		if cfg.Core.SequenceWindowDays > 0 {
			sequenceWindow = cfg.Core.SequenceWindowDays
		}
		if cfg.Core.GapThresholdDays > 0 {
			gapThreshold = cfg.Core.GapThresholdDays
		}
	}
	sequences := BuildSequences(events, sequenceWindow)
	gaps := BuildGaps(events, gapThreshold)

	validIDs := make(map[models.EvidenceId]bool, len(analyses))
	for _, a := range analyses {
		validIDs[a.EvidenceId] = true
	}

	var patterns []models.LegalPattern
	if client != nil && cfg != nil {
		detected, err := DetectPatterns(ctx, client, cfg.Core.ModelId, correlations, gaps, validIDs)
		if err != nil {
			return nil, err
		}
		patterns = detected
	}

	return &models.CorrelationAnalysis{
		SchemaVersion:       models.SchemaVersion,
		CaseId:              caseID,
		Correlations:        correlations,
		Timeline:            events,
		Sequences:           sequences,
		Gaps:                gaps,
		Patterns:            patterns,
		AIResolutionApplied: aiApplied,
	}, nil
}
