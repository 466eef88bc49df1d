package analyzer

import (
	"context"
	"encoding/json"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// ImageAnalyzer is the Image Analyzer (C7): vision LLM extraction plus the
// advisory EXIF/perceptual-hash side channel.
type ImageAnalyzer struct {
	client *llm.Client
}

func NewImageAnalyzer(client *llm.Client) *ImageAnalyzer {
	return &ImageAnalyzer{client: client}
}

// ImageSideData is the advisory material extracted alongside the vision
// call: EXIF (when present) and a perceptual hash, persisted to
// exif.json/phash.txt by the dispatcher (§4.1).
type ImageSideData struct {
	EXIF  map[string]string
	PHash string
}

// ExtractSideData computes EXIF and phash independently of the LLM call —
// neither ever affects analyzer output (§4.7).
func ExtractSideData(data []byte) ImageSideData {
	side := ImageSideData{EXIF: map[string]string{}}
	if exif, err := ExtractEXIF(data); err == nil {
		side.EXIF = exif
	}
	if hash, err := ComputePHash(data); err == nil {
		side.PHash = hash
	}
	return side
}

// Analyze issues the vision call. A nil, nil result means the provider
// refused the image (§4.5 failure semantics apply identically to vision
// calls).
func (a *ImageAnalyzer) Analyze(ctx context.Context, modelID string, imageData []byte, imageMIME string) (*models.ImageAnalysis, error) {
	raw, err := a.client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: imageSystemPrompt,
		UserPrompt:   "Analyze this image as potential legal evidence.",
		ImageData:    imageData,
		ImageMIME:    imageMIME,
		Schema:       imageAnalysisSchema(),
	})
	if err != nil {
		if isRefusal(err) {
			return nil, nil
		}
		return nil, err
	}

	var out models.ImageAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, evterrors.SchemaError(err, "image analyzer response did not parse as ImageAnalysis")
	}
	if err := models.Validate(&out); err != nil {
		return nil, evterrors.SchemaError(err, "image analysis failed validation")
	}
	return &out, nil
}

// AnalyzePages aggregates one ImageAnalysis per rasterized PDF page into a
// single ImageAnalysis whose detected_text concatenates page OCR with page
// separators (§4.7). Pages that individually come back nil (refused) are
// skipped rather than aborting the whole document.
func AnalyzePages(pages []*models.ImageAnalysis) *models.ImageAnalysis {
	present := make([]*models.ImageAnalysis, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if len(present) == 1 {
		return present[0]
	}

	merged := &models.ImageAnalysis{
		PotentialEvidenceValue: present[0].PotentialEvidenceValue,
	}
	var confidenceSum float64
	for i, p := range present {
		if i > 0 {
			merged.DetectedText += "\n--- page break ---\n"
		}
		merged.DetectedText += p.DetectedText
		merged.DetectedObjects = append(merged.DetectedObjects, p.DetectedObjects...)
		merged.RiskFlags = appendUnique(merged.RiskFlags, p.RiskFlags...)
		confidenceSum += p.AnalysisConfidence
		if rank(p.PotentialEvidenceValue) > rank(merged.PotentialEvidenceValue) {
			merged.PotentialEvidenceValue = p.PotentialEvidenceValue
		}
	}
	merged.Summary = present[0].Summary
	merged.SceneDescription = present[0].SceneDescription
	merged.AnalysisConfidence = confidenceSum / float64(len(present))
	return merged
}

func rank(v models.EvidenceValue) int {
	switch v {
	case models.EvidenceValueCritical:
		return 4
	case models.EvidenceValueHigh:
		return 3
	case models.EvidenceValueMedium:
		return 2
	case models.EvidenceValueLow:
		return 1
	default:
		return 0
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dst = appendFlagOnce(dst, v)
	}
	return dst
}
