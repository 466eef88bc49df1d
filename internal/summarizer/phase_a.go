package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

type forensicResponse struct {
	ForensicSummary    string   `json:"forensic_summary"`
	LegalImplications  string   `json:"legal_implications"`
	RecommendedActions []string `json:"recommended_actions"`
	RiskAssessment     string   `json:"risk_assessment"`
}

type chunkSummaryResponse struct {
	Summary     string   `json:"summary"`
	KeyEntities []string `json:"key_entities"`
	RiskFlags   []string `json:"risk_flags"`
}

// chunkFailureFlag marks a chunk summary that fell back to a deterministic
// excerpt because the LLM call for that chunk failed (§4.9 phase A).
const chunkFailureFlag = "chunk_summary_failed"

// BuildForensicSummary implements phase A: a single call when
// len(analyses) <= chunkThreshold, otherwise map-reduce over chunkSize-item
// chunks. Failed chunk calls fall back to a deterministic excerpt of the
// first three items' summaries and are flagged, rather than failing the
// whole case summary (§4.9).
func BuildForensicSummary(ctx context.Context, client *llm.Client, modelID string, analyses []models.UnifiedAnalysis, correlation *models.CorrelationAnalysis, chunkThreshold, chunkSize int) (models.EnhancementFields, []string, error) {
	if len(analyses) <= chunkThreshold {
		resp, err := callForensicSummary(ctx, client, modelID, directSummaryPrompt(analyses, correlation))
		if err != nil {
			return models.EnhancementFields{}, nil, err
		}
		return forensicFields(resp), nil, nil
	}

	chunks := splitChunks(analyses, chunkSize)
	var chunkSummaries []string
	var flags []string
	for i, chunk := range chunks {
		summary, flagged, err := summarizeChunk(ctx, client, modelID, chunk)
		if err != nil {
			return models.EnhancementFields{}, nil, err
		}
		if flagged {
			flags = append(flags, fmt.Sprintf("chunk_%d:%s", i, chunkFailureFlag))
		}
		chunkSummaries = append(chunkSummaries, summary)
	}

	resp, err := callForensicSummary(ctx, client, modelID, reducePrompt(chunkSummaries, correlation))
	if err != nil {
		return models.EnhancementFields{}, nil, err
	}
	return forensicFields(resp), flags, nil
}

func splitChunks(analyses []models.UnifiedAnalysis, chunkSize int) [][]models.UnifiedAnalysis {
	if chunkSize <= 0 {
		chunkSize = 30
	}
	var chunks [][]models.UnifiedAnalysis
	for i := 0; i < len(analyses); i += chunkSize {
		end := i + chunkSize
		if end > len(analyses) {
			end = len(analyses)
		}
		chunks = append(chunks, analyses[i:end])
	}
	return chunks
}

// summarizeChunk issues one ChunkSummaryResponse call. On failure it falls
// back to a deterministic excerpt built from the first three items'
// analyzer-produced summaries, flagged for the caller.
func summarizeChunk(ctx context.Context, client *llm.Client, modelID string, chunk []models.UnifiedAnalysis) (string, bool, error) {
	if client == nil {
		return deterministicExcerpt(chunk), true, nil
	}
	raw, err := client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: "You are a forensic analyst summarizing one batch of a case's evidence items.",
		UserPrompt:   chunkPrompt(chunk),
		Schema:       chunkSummarySchema(),
	})
	if err != nil {
		if isProviderFailure(err) {
			return deterministicExcerpt(chunk), true, nil
		}
		return "", false, err
	}
	var resp chunkSummaryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return deterministicExcerpt(chunk), true, nil
	}
	return resp.Summary, false, nil
}

func deterministicExcerpt(chunk []models.UnifiedAnalysis) string {
	var sb strings.Builder
	n := len(chunk)
	if n > 3 {
		n = 3
	}
	for i := 0; i < n; i++ {
		sb.WriteString(itemSummary(chunk[i]))
		sb.WriteString("; ")
	}
	return strings.TrimSuffix(sb.String(), "; ")
}

func itemSummary(a models.UnifiedAnalysis) string {
	switch {
	case a.Document != nil:
		return a.Document.Summary
	case a.Email != nil:
		return "email thread involving " + fmt.Sprint(len(a.Email.Participants)) + " participants"
	case a.Image != nil:
		return a.Image.Summary
	}
	return string(a.EvidenceId)
}

func chunkPrompt(chunk []models.UnifiedAnalysis) string {
	var sb strings.Builder
	sb.WriteString("Summarize this batch of evidence items:\n")
	for _, a := range chunk {
		fmt.Fprintf(&sb, "- %s: %s\n", a.EvidenceId, itemSummary(a))
	}
	return sb.String()
}

func directSummaryPrompt(analyses []models.UnifiedAnalysis, correlation *models.CorrelationAnalysis) string {
	var sb strings.Builder
	sb.WriteString("Produce a forensic summary of this case's evidence:\n")
	for _, a := range analyses {
		fmt.Fprintf(&sb, "- %s: %s\n", a.EvidenceId, itemSummary(a))
	}
	writeCorrelationContext(&sb, correlation)
	return sb.String()
}

func reducePrompt(chunkSummaries []string, correlation *models.CorrelationAnalysis) string {
	var sb strings.Builder
	sb.WriteString("Merge these evidence-batch summaries into one forensic summary of the whole case:\n")
	for i, s := range chunkSummaries {
		fmt.Fprintf(&sb, "Batch %d: %s\n", i, s)
	}
	writeCorrelationContext(&sb, correlation)
	return sb.String()
}

func writeCorrelationContext(sb *strings.Builder, correlation *models.CorrelationAnalysis) {
	if correlation == nil {
		return
	}
	sb.WriteString("\nCorrelated entities:\n")
	for _, c := range correlation.Correlations {
		fmt.Fprintf(sb, "- %s (%s), occurrence_count=%d\n", c.EntityName, c.EntityType, c.OccurrenceCount)
	}
	sb.WriteString("\nTimeline gaps:\n")
	for _, g := range correlation.Gaps {
		fmt.Fprintf(sb, "- %.0f day gap (%s)\n", g.Days, g.Significance)
	}
	sb.WriteString("\nDetected patterns:\n")
	for _, p := range correlation.Patterns {
		fmt.Fprintf(sb, "- %s: %s\n", p.Kind, p.Description)
	}
}

func callForensicSummary(ctx context.Context, client *llm.Client, modelID, prompt string) (*forensicResponse, error) {
	if client == nil {
		return nil, evterrors.ConfigurationError("no LLM client configured")
	}
	raw, err := client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: "You are a forensic analyst producing the final case-level summary.",
		UserPrompt:   prompt,
		Schema:       forensicSummarySchema(),
	})
	if err != nil {
		return nil, err
	}
	var resp forensicResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, evterrors.SchemaError(err, "forensic summary response did not parse")
	}
	return &resp, nil
}

func forensicFields(resp *forensicResponse) models.EnhancementFields {
	return models.EnhancementFields{
		ForensicSummary:    resp.ForensicSummary,
		LegalImplications:  resp.LegalImplications,
		RecommendedActions: resp.RecommendedActions,
		RiskAssessment:     resp.RiskAssessment,
	}
}

func isProviderFailure(err error) bool {
	e, ok := err.(*evterrors.Error)
	if !ok {
		return false
	}
	return e.Type == evterrors.ErrorTypeProviderTransient || e.Type == evterrors.ErrorTypeProviderRefusal
}
