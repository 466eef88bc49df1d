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

type patternResponse struct {
	Contradictions []struct {
		Description           string   `json:"description"`
		Severity               float64  `json:"severity"`
		SupportingEvidenceIds []string `json:"supporting_evidence_ids"`
	} `json:"contradictions"`
	Corroborations []struct {
		Description           string   `json:"description"`
		Strength               string   `json:"strength"`
		SupportingEvidenceIds []string `json:"supporting_evidence_ids"`
	} `json:"corroborations"`
	EvidenceGaps []struct {
		Description           string   `json:"description"`
		SupportingEvidenceIds []string `json:"supporting_evidence_ids"`
	} `json:"evidence_gaps"`
}

// DetectPatterns issues one LLM call over the correlations and gaps already
// computed for a case and returns typed contradictions, corroborations, and
// evidence gaps (§4.8.5). The temporal sequences are not part of the
// prompt. References to evidence_ids the input never mentioned are dropped
// — the model cannot invent evidence. A nil client or an empty correlation
// list is a no-op.
func DetectPatterns(ctx context.Context, client *llm.Client, modelID string, correlations []models.CorrelationRecord, gaps []models.TimelineGap, validIDs map[models.EvidenceId]bool) ([]models.LegalPattern, error) {
	if client == nil || len(correlations) == 0 {
		return nil, nil
	}

	raw, err := client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: "You are a forensic analyst reviewing correlated entities and timeline gaps across a case's evidence for legally significant contradictions, corroborating patterns, and evidence gaps.",
		UserPrompt:   patternPrompt(correlations, gaps),
		Schema:       legalPatternSchema(),
	})
	if err != nil {
		if isRefusalLike(err) {
			return nil, nil
		}
		return nil, err
	}

	var resp patternResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, evterrors.SchemaError(err, "legal pattern response did not parse")
	}

	var patterns []models.LegalPattern
	for _, c := range resp.Contradictions {
		ids := filterKnownIDs(c.SupportingEvidenceIds, validIDs)
		if len(ids) == 0 {
			continue
		}
		severity := c.Severity
		patterns = append(patterns, models.LegalPattern{
			Kind: models.PatternContradiction, Severity: &severity,
			Description: c.Description, SupportingEvidenceIds: ids,
		})
	}
	for _, c := range resp.Corroborations {
		ids := filterKnownIDs(c.SupportingEvidenceIds, validIDs)
		if len(ids) == 0 {
			continue
		}
		strength := models.CorroborationStrength(c.Strength)
		switch strength {
		case models.StrengthStrong, models.StrengthModerate, models.StrengthWeak:
		default:
			strength = models.StrengthModerate
		}
		patterns = append(patterns, models.LegalPattern{
			Kind: models.PatternCorroboration, Strength: &strength,
			Description: c.Description, SupportingEvidenceIds: ids,
		})
	}
	for _, g := range resp.EvidenceGaps {
		ids := filterKnownIDs(g.SupportingEvidenceIds, validIDs)
		patterns = append(patterns, models.LegalPattern{
			Kind: models.PatternEvidenceGap, Description: g.Description, SupportingEvidenceIds: ids,
		})
	}
	return patterns, nil
}

func filterKnownIDs(ids []string, valid map[models.EvidenceId]bool) []models.EvidenceId {
	var out []models.EvidenceId
	for _, id := range ids {
		eid := models.EvidenceId(id)
		if valid[eid] {
			out = append(out, eid)
		}
	}
	return out
}

func patternPrompt(correlations []models.CorrelationRecord, gaps []models.TimelineGap) string {
	var sb strings.Builder
	sb.WriteString("Correlated entities:\n")
	for _, c := range correlations {
		fmt.Fprintf(&sb, "- %s (%s), seen %d times across evidence %v\n", c.EntityName, c.EntityType, c.OccurrenceCount, c.EvidenceIds)
	}
	sb.WriteString("\nTimeline gaps:\n")
	for _, g := range gaps {
		fmt.Fprintf(&sb, "- %.0f day gap (%s) between %s and %s\n", g.Days, g.Significance, g.Start.Format("2006-01-02"), g.End.Format("2006-01-02"))
	}
	return sb.String()
}
