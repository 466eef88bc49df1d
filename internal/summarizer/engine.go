package summarizer

import (
	"context"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/config"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// BuildCaseSummary runs both summarizer phases for one case and assembles
// the final CaseSummary (§4.9). Phase A failures are returned as errors —
// there is no sensible case summary without a forensic summary. Phase B
// failures are swallowed into enhancement_applied = false, per spec.
func BuildCaseSummary(ctx context.Context, caseID string, analyses []models.UnifiedAnalysis, correlation *models.CorrelationAnalysis, cfg *config.Config, client *llm.Client) (*models.CaseSummary, error) {
	modelID := ""
	caseType := models.CaseTypeGeneric
	chunkThreshold, chunkSize := 50, 30
	if cfg != nil {
		modelID = cfg.Core.ModelId
		if cfg.Core.CaseType != "" {
			caseType = models.CaseType(cfg.Core.CaseType)
		}
		if cfg.Core.ChunkThreshold > 0 {
			chunkThreshold = cfg.Core.ChunkThreshold
		}
		if cfg.Core.ChunkSize > 0 {
			chunkSize = cfg.Core.ChunkSize
		}
	}

	var forensic models.EnhancementFields
	if len(analyses) == 0 {
		forensic = models.EnhancementFields{
			ForensicSummary: "No evidence has been ingested for this case.",
			RiskAssessment:  "unassessed",
		}
	} else {
		built, _, err := BuildForensicSummary(ctx, client, modelID, analyses, correlation, chunkThreshold, chunkSize)
		if err != nil {
			return nil, err
		}
		forensic = built
	}

	enhancement, applied := ApplyEnhancement(ctx, client, modelID, caseType, forensic)

	overall := forensic
	if applied {
		overall.TribunalProbability = enhancement.TribunalProbability
		overall.FinancialExposureSummary = enhancement.FinancialExposureSummary
		overall.ClaimStrengthSummary = enhancement.ClaimStrengthSummary
		overall.SettlementRecommendation = enhancement.SettlementRecommendation
		overall.ImmediateActions = enhancement.ImmediateActions
	}

	catalog := make([]models.EvidenceId, 0, len(analyses))
	for _, a := range analyses {
		catalog = append(catalog, a.EvidenceId)
	}

	return &models.CaseSummary{
		SchemaVersion:      models.SchemaVersion,
		CaseId:             caseID,
		ForensicSummary:    forensic.ForensicSummary,
		LegalImplications:  forensic.LegalImplications,
		RecommendedActions: forensic.RecommendedActions,
		RiskAssessment:     forensic.RiskAssessment,
		EvidenceCatalog:    catalog,
		OverallAssessment:  overall,
		EnhancementApplied: applied,
	}, nil
}
