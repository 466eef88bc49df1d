package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// maxDocumentChars is the truncation boundary of SPEC_FULL.md §4.5 ("~24,000
// characters, model-dependent").
const maxDocumentChars = 24000

const truncationMarker = "\n\n[... TRUNCATED: input exceeded analyzer limit ...]"

// DocumentAnalyzer is the Document Analyzer (C5): deterministic structured
// extraction over a document's decoded text, with a case-type domain
// addendum layered onto the forensic persona.
type DocumentAnalyzer struct {
	client *llm.Client
}

func NewDocumentAnalyzer(client *llm.Client) *DocumentAnalyzer {
	return &DocumentAnalyzer{client: client}
}

// Analyze runs the document analyzer over text, returning a validated
// DocumentAnalysis. A nil result with a nil error means the provider
// refused or returned an incomplete response (§4.5 failure semantics); the
// caller (the C4 dispatcher) is responsible for recording that as a
// failed_analysis event rather than treating it as success.
func (a *DocumentAnalyzer) Analyze(ctx context.Context, modelID, caseType, text string) (*models.DocumentAnalysis, error) {
	truncated := false
	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars] + truncationMarker
		truncated = true
	}

	userPrompt := text
	systemPrompt := documentSystemPrompt
	if addendum := domainAddendum(caseType); addendum != "" {
		systemPrompt = systemPrompt + "\n\n" + addendum
	}

	raw, err := a.client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Schema:       documentSchema(),
	})
	if err != nil {
		if isRefusal(err) {
			return nil, nil
		}
		return nil, err
	}

	var out models.DocumentAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, evterrors.SchemaError(err, "document analyzer response did not parse as DocumentAnalysis")
	}

	if truncated {
		out.RiskFlags = appendFlagOnce(out.RiskFlags, models.RiskFlagTruncatedInput)
	}

	if err := models.Validate(&out); err != nil {
		return nil, evterrors.SchemaError(err, "document analysis failed validation")
	}
	return &out, nil
}

func appendFlagOnce(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}

func isRefusal(err error) bool {
	if e, ok := err.(*evterrors.Error); ok {
		return e.Type == evterrors.ErrorTypeProviderRefusal
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(err)), "refus")
}
