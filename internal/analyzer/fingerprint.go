package analyzer

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// Analyzer and prompt versions participate in the fingerprint (SPEC_FULL.md
// §4.4, §9 "prompt templates must be first-class, versioned strings"). Bump
// a *Version constant whenever the corresponding prompt or extraction logic
// changes; that invalidates every cached analysis built on the old text.
const (
	documentAnalyzerVersion = "document-v1"
	documentPromptVersion   = "document-prompt-v1"
	emailAnalyzerVersion    = "email-v1"
	emailPromptVersion      = "email-prompt-v1"
	imageAnalyzerVersion    = "image-v1"
	imagePromptVersion      = "image-prompt-v1"
)

// fingerprint computes the C4 cache key: a function of the evidence id, the
// analyzer implementation version, the prompt version, and the model id.
// Any change to any of the four invalidates the cache entry for that item.
func fingerprint(evidenceID models.EvidenceId, analyzerVersion, promptVersion, modelID string) string {
	h := sha256.New()
	h.Write([]byte(evidenceID))
	h.Write([]byte{0})
	h.Write([]byte(analyzerVersion))
	h.Write([]byte{0})
	h.Write([]byte(promptVersion))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	return hex.EncodeToString(h.Sum(nil))
}
