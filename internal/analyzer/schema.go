package analyzer

import "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"

// The schemas below bind a completion to the shape internal/models expects
// to decode. They are a completion-time hint to the provider, not a
// substitute for models.Validate, which still runs on every decoded result
// (SPEC_FULL.md §4.3).

func documentSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "document_analysis",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
				"entities": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":             map[string]any{"type": "string"},
							"type":             map[string]any{"type": "string", "enum": []string{"person", "organization", "date", "location", "legal_term", "text_in_image", "other"}},
							"confidence":       map[string]any{"type": "number"},
							"context":          map[string]any{"type": "string"},
							"quoted_text":      map[string]any{"type": "string"},
							"associated_event": map[string]any{"type": "string"},
							"relationship":     map[string]any{"type": "string"},
							"role":             map[string]any{"type": "string"},
						},
						"required": []string{"name", "type", "confidence", "context"},
					},
				},
				"document_type":      map[string]any{"type": "string"},
				"sentiment":          map[string]any{"type": "string", "enum": []string{"hostile", "neutral", "professional", "mixed"}},
				"legal_significance": map[string]any{"type": "string", "enum": []string{"critical", "high", "medium", "low"}},
				"risk_flags":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"confidence_overall": map[string]any{"type": "number"},
			},
			"required": []string{"summary", "entities", "sentiment", "legal_significance", "confidence_overall"},
		},
	}
}

func emailThreadSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "email_thread_analysis",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"participants": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"email":            map[string]any{"type": "string"},
							"display_name":     map[string]any{"type": "string"},
							"authority_level":  map[string]any{"type": "string", "enum": []string{"executive", "management", "employee", "external"}},
							"deference_score":  map[string]any{"type": "number"},
							"dominant_topics":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
						"required": []string{"email", "authority_level", "deference_score"},
					},
				},
				"communication_pattern": map[string]any{"type": "string", "enum": []string{"professional", "escalating", "hostile", "retaliatory", "conciliatory"}},
				"sentiment_progression": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"escalation_events":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"legal_significance":    map[string]any{"type": "string", "enum": []string{"critical", "high", "medium", "low"}},
				"risk_flags":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"confidence_overall":    map[string]any{"type": "number"},
			},
			"required": []string{"participants", "communication_pattern", "legal_significance", "confidence_overall"},
		},
	}
}

func imageAnalysisSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "image_analysis",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary":                  map[string]any{"type": "string"},
				"detected_objects":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"detected_text":            map[string]any{"type": "string"},
				"scene_description":        map[string]any{"type": "string"},
				"potential_evidence_value": map[string]any{"type": "string", "enum": []string{"low", "medium", "high", "critical"}},
				"analysis_confidence":      map[string]any{"type": "number"},
				"risk_flags":               map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"summary", "potential_evidence_value", "analysis_confidence"},
		},
	}
}
