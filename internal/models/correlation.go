package models

import "time"

// CorrelationRecord aggregates one canonical entity's occurrences across a
// case's evidence items.
type CorrelationRecord struct {
	EntityName        string       `json:"entity_name" validate:"required"`
	EntityType        EntityType   `json:"entity_type" validate:"required,oneof=person organization date location legal_term text_in_image other"`
	OccurrenceCount   int          `json:"occurrence_count" validate:"gte=0"`
	EvidenceIds       []EvidenceId `json:"evidence_ids"`
	Contexts          []string     `json:"contexts"`
	ConfidenceAverage float64      `json:"confidence_average" validate:"gte=0,lte=1"`
}

// TimelineEvent is one dated occurrence drawn from an evidence item's
// analysis.
type TimelineEvent struct {
	Timestamp   time.Time  `json:"timestamp" validate:"required"`
	EvidenceId  EvidenceId `json:"evidence_id" validate:"required"`
	EventType   string     `json:"event_type"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence" validate:"gte=0,lte=1"`
}

// TemporalSequence is a maximal run of TimelineEvents judged causally or
// topically related (§4.8.4).
type TemporalSequence struct {
	Events []TimelineEvent `json:"events" validate:"dive"`
}

// GapSignificance classifies how material a TimelineGap is.
type GapSignificance string

const (
	GapLow    GapSignificance = "low"
	GapMedium GapSignificance = "medium"
	GapHigh   GapSignificance = "high"
)

// TimelineGap is an interval between consecutive timeline events that
// exceeds gap_threshold_days.
type TimelineGap struct {
	Start        time.Time       `json:"start" validate:"required"`
	End          time.Time       `json:"end" validate:"required"`
	Days         float64         `json:"days" validate:"gte=0"`
	Significance GapSignificance `json:"significance" validate:"required,oneof=low medium high"`
}

// LegalPatternKind is the closed set of pattern variants C8 can detect.
type LegalPatternKind string

const (
	PatternContradiction LegalPatternKind = "contradiction"
	PatternCorroboration LegalPatternKind = "corroboration"
	PatternEvidenceGap   LegalPatternKind = "evidence_gap"
)

// CorroborationStrength is the closed enum used only by corroboration
// patterns.
type CorroborationStrength string

const (
	StrengthStrong   CorroborationStrength = "strong"
	StrengthModerate CorroborationStrength = "moderate"
	StrengthWeak     CorroborationStrength = "weak"
)

// LegalPattern is a detected contradiction, corroboration, or evidence gap.
// Severity is used by contradictions (a float in [0,1]); Strength is used by
// corroborations; neither applies to evidence gaps.
type LegalPattern struct {
	Kind                 LegalPatternKind       `json:"kind" validate:"required,oneof=contradiction corroboration evidence_gap"`
	Severity             *float64               `json:"severity,omitempty" validate:"omitempty,gte=0,lte=1"`
	Strength             *CorroborationStrength `json:"strength,omitempty" validate:"omitempty,oneof=strong moderate weak"`
	Description          string                 `json:"description" validate:"required"`
	SupportingEvidenceIds []EvidenceId          `json:"supporting_evidence_ids"`
}

// CorrelationAnalysis is the output of the Correlation Engine (C8) for one
// case.
type CorrelationAnalysis struct {
	SchemaVersion       int                 `json:"schema_version"`
	CaseId              string              `json:"case_id" validate:"required"`
	Correlations        []CorrelationRecord `json:"correlations" validate:"dive"`
	Timeline            []TimelineEvent     `json:"timeline" validate:"dive"`
	Sequences           []TemporalSequence  `json:"sequences"`
	Gaps                []TimelineGap       `json:"gaps"`
	Patterns            []LegalPattern      `json:"patterns"`
	AIResolutionApplied bool                `json:"ai_resolution_applied"`
}

// CaseType selects the Summarizer's phase-B enhancement prompt and field
// set (§4.9). Unknown values resolve to CaseTypeGeneric.
type CaseType string

const (
	CaseTypeGeneric    CaseType = "generic"
	CaseTypeWorkplace  CaseType = "workplace"
	CaseTypeEmployment CaseType = "employment"
	CaseTypeContract   CaseType = "contract"
)

// EnhancementFields is the closed, documented field set produced by the
// Summarizer's phase A (forensic synthesis) and phase B (domain
// enhancement). Fields that do not apply to a given CaseType are left at
// their zero value rather than omitted — see SPEC_FULL.md §4.9/§9 for why
// this is a single struct rather than a per-domain union.
type EnhancementFields struct {
	// Phase A
	ForensicSummary    string `json:"forensic_summary"`
	LegalImplications  string `json:"legal_implications"`
	RecommendedActions []string `json:"recommended_actions"`
	RiskAssessment     string `json:"risk_assessment"`

	// Phase B (workplace/employment only unless noted)
	TribunalProbability        *float64 `json:"tribunal_probability,omitempty" validate:"omitempty,gte=0,lte=1"`
	FinancialExposureSummary   string   `json:"financial_exposure_summary,omitempty"`
	ClaimStrengthSummary       string   `json:"claim_strength_summary,omitempty"`
	SettlementRecommendation   string   `json:"settlement_recommendation,omitempty"`
	ImmediateActions           []string `json:"immediate_actions,omitempty"`
}

// CaseSummary is the output of the Summarizer (C10) for one case.
type CaseSummary struct {
	SchemaVersion      int               `json:"schema_version"`
	CaseId             string            `json:"case_id" validate:"required"`
	ForensicSummary    string            `json:"forensic_summary"`
	LegalImplications  string            `json:"legal_implications"`
	RecommendedActions []string          `json:"recommended_actions"`
	RiskAssessment     string            `json:"risk_assessment"`
	EvidenceCatalog    []EvidenceId      `json:"evidence_catalog"`
	OverallAssessment  EnhancementFields `json:"overall_assessment"`
	EnhancementApplied bool              `json:"enhancement_applied"`
}
