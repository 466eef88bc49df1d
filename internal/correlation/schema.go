package correlation

import "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"

// disambiguationSchema binds the §4.8.2 batched disambiguation call: a
// sequence of entity groups, each naming the variants it believes denote
// one real person.
func disambiguationSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "entity_disambiguation",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"groups": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"canonical_name": map[string]any{"type": "string"},
							"variant_names":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"confidence":     map[string]any{"type": "number"},
						},
						"required": []string{"canonical_name", "variant_names", "confidence"},
					},
				},
			},
			"required": []string{"groups"},
		},
	}
}

// legalPatternSchema binds the §4.8.5 pattern-detection call.
func legalPatternSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name:   "legal_pattern_detection",
		Strict: true,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"contradictions": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description":             map[string]any{"type": "string"},
							"severity":                map[string]any{"type": "number"},
							"supporting_evidence_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
						"required": []string{"description", "severity", "supporting_evidence_ids"},
					},
				},
				"corroborations": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description":             map[string]any{"type": "string"},
							"strength":                map[string]any{"type": "string", "enum": []string{"strong", "moderate", "weak"}},
							"supporting_evidence_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
						"required": []string{"description", "strength", "supporting_evidence_ids"},
					},
				},
				"evidence_gaps": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description":             map[string]any{"type": "string"},
							"supporting_evidence_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
						"required": []string{"description"},
					},
				},
			},
			"required": []string{"contradictions", "corroborations", "evidence_gaps"},
		},
	}
}
