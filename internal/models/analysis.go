package models

import "time"

// EntityType is the closed set of entity kinds extracted by an analyzer.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityDate         EntityType = "date"
	EntityLocation     EntityType = "location"
	EntityLegalTerm    EntityType = "legal_term"
	EntityTextInImage  EntityType = "text_in_image"
	EntityOther        EntityType = "other"
)

// Entity is one named thing extracted from a document, email, or image.
type Entity struct {
	Name             string     `json:"name" validate:"required"`
	Type             EntityType `json:"type" validate:"required,oneof=person organization date location legal_term text_in_image other"`
	Confidence       float64    `json:"confidence" validate:"gte=0,lte=1"`
	Context          string     `json:"context"`
	QuotedText       string     `json:"quoted_text,omitempty"`
	AssociatedEvent  string     `json:"associated_event,omitempty"`
	Relationship     string     `json:"relationship,omitempty"`
	Role             string     `json:"role,omitempty"`
}

// Sentiment is the closed sentiment enum for a DocumentAnalysis.
type Sentiment string

const (
	SentimentHostile      Sentiment = "hostile"
	SentimentNeutral      Sentiment = "neutral"
	SentimentProfessional Sentiment = "professional"
	SentimentMixed        Sentiment = "mixed"
)

// LegalSignificance ranks how material a finding is to the case.
type LegalSignificance string

const (
	SignificanceCritical LegalSignificance = "critical"
	SignificanceHigh     LegalSignificance = "high"
	SignificanceMedium   LegalSignificance = "medium"
	SignificanceLow      LegalSignificance = "low"
)

// RiskFlagTruncatedInput is appended to risk_flags whenever the Document
// Analyzer had to truncate its input text (§4.5).
const RiskFlagTruncatedInput = "truncated_input"

// DocumentAnalysis is the structured-extraction result for text evidence.
type DocumentAnalysis struct {
	Summary           string             `json:"summary" validate:"required"`
	Entities          []Entity           `json:"entities" validate:"dive"`
	DocumentType      string             `json:"document_type"`
	Sentiment         Sentiment          `json:"sentiment" validate:"required,oneof=hostile neutral professional mixed"`
	LegalSignificance LegalSignificance  `json:"legal_significance" validate:"required,oneof=critical high medium low"`
	RiskFlags         []string           `json:"risk_flags"`
	ConfidenceOverall float64            `json:"confidence_overall" validate:"gte=0,lte=1"`
}

// AuthorityLevel is the closed enum for an email participant's standing,
// assigned by the LLM rather than derived from headers alone.
type AuthorityLevel string

const (
	AuthorityExecutive AuthorityLevel = "executive"
	AuthorityManagement AuthorityLevel = "management"
	AuthorityEmployee  AuthorityLevel = "employee"
	AuthorityExternal  AuthorityLevel = "external"
)

// Participant describes one party in an email thread.
type Participant struct {
	Email           string         `json:"email" validate:"required"`
	DisplayName     string         `json:"display_name"`
	AuthorityLevel  AuthorityLevel `json:"authority_level" validate:"required,oneof=executive management employee external"`
	DeferenceScore  float64        `json:"deference_score" validate:"gte=0,lte=1"`
	DominantTopics  []string       `json:"dominant_topics"`
}

// CommunicationPattern is the closed enum describing a thread's overall tone.
type CommunicationPattern string

const (
	PatternProfessional CommunicationPattern = "professional"
	PatternEscalating   CommunicationPattern = "escalating"
	PatternHostile       CommunicationPattern = "hostile"
	PatternRetaliatory   CommunicationPattern = "retaliatory"
	PatternConciliatory  CommunicationPattern = "conciliatory"
)

// EmailThreadAnalysis is the structured-extraction result for an email
// thread (C6).
type EmailThreadAnalysis struct {
	Participants          []Participant        `json:"participants" validate:"dive"`
	CommunicationPattern  CommunicationPattern `json:"communication_pattern" validate:"required,oneof=professional escalating hostile retaliatory conciliatory"`
	SentimentProgression  []string             `json:"sentiment_progression"`
	EscalationEvents      []string             `json:"escalation_events"`
	LegalSignificance     LegalSignificance    `json:"legal_significance" validate:"required,oneof=critical high medium low"`
	RiskFlags             []string             `json:"risk_flags"`
	ConfidenceOverall     float64              `json:"confidence_overall" validate:"gte=0,lte=1"`
}

// EvidenceValue is the closed enum for an image's potential value (C7).
type EvidenceValue string

const (
	EvidenceValueLow      EvidenceValue = "low"
	EvidenceValueMedium   EvidenceValue = "medium"
	EvidenceValueHigh     EvidenceValue = "high"
	EvidenceValueCritical EvidenceValue = "critical"
)

// ImageAnalysis is the structured-extraction result for image (and
// rasterized PDF page) evidence.
type ImageAnalysis struct {
	Summary              string        `json:"summary" validate:"required"`
	DetectedObjects      []string      `json:"detected_objects"`
	DetectedText         string        `json:"detected_text"`
	SceneDescription     string        `json:"scene_description"`
	PotentialEvidenceValue EvidenceValue `json:"potential_evidence_value" validate:"required,oneof=low medium high critical"`
	AnalysisConfidence   float64       `json:"analysis_confidence" validate:"gte=0,lte=1"`
	RiskFlags            []string      `json:"risk_flags"`
}

// UnifiedAnalysis wraps exactly one of DocumentAnalysis, EmailThreadAnalysis,
// or ImageAnalysis, discriminated by EvidenceType. Exactly one of the three
// pointer fields is non-nil; which one is determined by EvidenceType.
type UnifiedAnalysis struct {
	SchemaVersion    int                  `json:"schema_version"`
	EvidenceId       EvidenceId           `json:"evidence_id" validate:"required"`
	EvidenceType     EvidenceType         `json:"evidence_type" validate:"required,oneof=document email image pdf video audio other"`
	AnalysisTimestamp time.Time           `json:"analysis_timestamp" validate:"required"`
	ModelUsed        string               `json:"model_used" validate:"required"`
	Fingerprint      string               `json:"fingerprint" validate:"required"`
	FileMetadata     FileMetadata         `json:"file_metadata" validate:"required"`
	Chain            []ChainEvent         `json:"chain"`
	CaseIds          []string             `json:"case_ids"`

	Document *DocumentAnalysis    `json:"document,omitempty"`
	Email    *EmailThreadAnalysis `json:"email,omitempty"`
	Image    *ImageAnalysis       `json:"image,omitempty"`
}

// Variant returns whichever analysis payload is populated, or nil if none
// is (which only happens for video/audio/other no-op items, §4.2).
func (u *UnifiedAnalysis) Variant() any {
	switch {
	case u.Document != nil:
		return u.Document
	case u.Email != nil:
		return u.Email
	case u.Image != nil:
		return u.Image
	default:
		return nil
	}
}
