package summarizer

import (
	"context"
	"encoding/json"
	"fmt"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

type enhancementResponse struct {
	TribunalProbability      *float64 `json:"tribunal_probability"`
	FinancialExposureSummary string   `json:"financial_exposure_summary"`
	ClaimStrengthSummary     string   `json:"claim_strength_summary"`
	SettlementRecommendation string   `json:"settlement_recommendation"`
	ImmediateActions         []string `json:"immediate_actions"`
}

// enhancementPrompts is the §4.9 phase-B registry keyed by case_type.
// Unknown case_type values resolve to generic, whose prompt asks only for
// additional financial exposure and immediate actions; tribunal
// probability, claim strength and settlement are requested only by the
// workplace and employment prompts.
var enhancementPrompts = map[models.CaseType]string{
	models.CaseTypeGeneric: "Review this forensic summary and note any additional financial " +
		"exposure or recommended immediate actions you can identify, if any.",
	models.CaseTypeWorkplace: "You are an employment-law specialist. Given this forensic summary " +
		"of a workplace case, estimate the probability this matter reaches tribunal, the financial " +
		"exposure, the strength of the likely claims, and a settlement recommendation.",
	models.CaseTypeEmployment: "You are an employment-law specialist. Given this forensic summary " +
		"of an employment dispute, estimate the probability this matter reaches tribunal, the " +
		"financial exposure, the strength of the likely claims, and a settlement recommendation.",
	models.CaseTypeContract: "You are a contracts specialist. Given this forensic summary of a " +
		"contract dispute, note the financial exposure and recommended immediate actions.",
}

// ApplyEnhancement runs phase B: a domain-specific LLM call selected by
// caseType (unknown types resolve to generic). On failure, it returns a
// zero EnhancementFields and false — the caller emits the forensic summary
// alone and sets enhancement_applied = false (§4.9).
func ApplyEnhancement(ctx context.Context, client *llm.Client, modelID string, caseType models.CaseType, forensic models.EnhancementFields) (models.EnhancementFields, bool) {
	if client == nil {
		return models.EnhancementFields{}, false
	}
	prompt, ok := enhancementPrompts[caseType]
	if !ok {
		prompt = enhancementPrompts[models.CaseTypeGeneric]
	}

	raw, err := client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: prompt,
		UserPrompt:   fmt.Sprintf("Forensic summary: %s\n\nRisk assessment: %s", forensic.ForensicSummary, forensic.RiskAssessment),
		Schema:       enhancementSchema(),
	})
	if err != nil {
		return models.EnhancementFields{}, false
	}

	var resp enhancementResponse
	if jsonErr := json.Unmarshal([]byte(raw), &resp); jsonErr != nil {
		_ = evterrors.SchemaError(jsonErr, "enhancement response did not parse")
		return models.EnhancementFields{}, false
	}

	return models.EnhancementFields{
		TribunalProbability:      resp.TribunalProbability,
		FinancialExposureSummary: resp.FinancialExposureSummary,
		ClaimStrengthSummary:     resp.ClaimStrengthSummary,
		SettlementRecommendation: resp.SettlementRecommendation,
		ImmediateActions:         resp.ImmediateActions,
	}, true
}
