// Package summarizer implements the Summarizer (C10): map-reduce forensic
// synthesis followed by a domain-specialized enhancement pass over one
// case's analyses and correlation output (SPEC_FULL.md §4.9).
package summarizer

import "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"

// chunkSummarySchema binds one map-phase call: a short summary of one
// evidence chunk plus the entities/risks it raised.
func chunkSummarySchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "chunk_summary",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary":       map[string]any{"type": "string"},
				"key_entities":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"risk_flags":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"summary"},
		},
	}
}

// forensicSummarySchema binds the direct (non-chunked) phase A call and
// the reduce call that merges chunk summaries — both emit the same shape.
func forensicSummarySchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "forensic_summary",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"forensic_summary":    map[string]any{"type": "string"},
				"legal_implications":  map[string]any{"type": "string"},
				"recommended_actions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"risk_assessment":     map[string]any{"type": "string"},
			},
			"required": []string{"forensic_summary", "legal_implications", "recommended_actions", "risk_assessment"},
		},
	}
}

// enhancementSchema binds the phase B domain-enhancement call. Every field
// is optional in the schema itself — which ones a given case_type prompt
// actually asks for is the registry's concern, not the schema's.
func enhancementSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "domain_enhancement",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tribunal_probability":       map[string]any{"type": "number"},
				"financial_exposure_summary": map[string]any{"type": "string"},
				"claim_strength_summary":     map[string]any{"type": "string"},
				"settlement_recommendation":  map[string]any{"type": "string"},
				"immediate_actions":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
	}
}
