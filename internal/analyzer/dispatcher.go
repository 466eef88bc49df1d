// Package analyzer implements the Analyzer Dispatch (C4) and the three
// per-type analyzers it routes to: Document (C5), Email (C6), and Image
// (C7) (SPEC_FULL.md §4.4-§4.7).
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/config"
	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

// Dispatcher routes an EvidenceRecord to its analyzer, enforces the
// fingerprint cache, and coalesces concurrent callers racing on the same
// fingerprint via singleflight (§4.4 "At-most-one" rule).
type Dispatcher struct {
	store    *store.Store
	document *DocumentAnalyzer
	email    *EmailAnalyzer
	image    *ImageAnalyzer
	cfg      *config.Config
	sf       singleflight.Group
	logger   *slog.Logger
}

func NewDispatcher(st *store.Store, client *llm.Client, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		store:    st,
		document: NewDocumentAnalyzer(client),
		email:    NewEmailAnalyzer(client),
		image:    NewImageAnalyzer(client),
		cfg:      cfg,
		logger:   slog.Default().With("component", "analyzer"),
	}
}

// Dispatch runs C4 for a single evidence item. A nil result with a nil
// error means the item was skipped (video/audio/other no-op, or a PDF
// with no raster available) or the analyzer refused/failed after its
// retry budget — in both cases the caller should move on to the next
// item, not treat it as a hard failure. A non-nil error is fatal for this
// item (Schema kind) or for the whole run (Configuration/Integrity kind).
func (d *Dispatcher) Dispatch(ctx context.Context, rec *models.EvidenceRecord) (*models.UnifiedAnalysis, error) {
	analyzerVersion, promptVersion, modelID, skip := d.route(rec.EvidenceType)
	if skip {
		d.logger.Info("skipping no-op analyzer", "evidence_id", rec.EvidenceId, "evidence_type", rec.EvidenceType)
		return nil, nil
	}

	fp := fingerprint(rec.EvidenceId, analyzerVersion, promptVersion, modelID)

	if id, found, err := d.store.LookupFingerprint(fp); err == nil && found && id == rec.EvidenceId {
		if cached, err := d.store.GetAnalysis(id); err == nil && cached != nil && cached.Fingerprint == fp {
			d.logger.Debug("fingerprint cache hit", "evidence_id", rec.EvidenceId)
			return cached, nil
		}
	}

	result, err, shared := d.sf.Do(fp, func() (any, error) {
		return d.invoke(ctx, rec, analyzerVersion, promptVersion, modelID, fp)
	})
	if shared {
		d.logger.Debug("coalesced concurrent dispatch on shared fingerprint", "evidence_id", rec.EvidenceId)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.UnifiedAnalysis), nil
}

func (d *Dispatcher) route(t models.EvidenceType) (analyzerVersion, promptVersion, modelID string, skip bool) {
	switch t {
	case models.EvidenceTypeDocument:
		return documentAnalyzerVersion, documentPromptVersion, d.cfg.Core.ModelId, false
	case models.EvidenceTypeEmail:
		return emailAnalyzerVersion, emailPromptVersion, d.cfg.Core.ModelId, false
	case models.EvidenceTypeImage:
		return imageAnalyzerVersion, imagePromptVersion, d.cfg.Core.VisionModelId, false
	case models.EvidenceTypePDF:
		return imageAnalyzerVersion, imagePromptVersion, d.cfg.Core.VisionModelId, false
	default: // video, audio, other: cataloged but not analyzed (§4.2)
		return "", "", "", true
	}
}

// invoke performs the actual analyzer call behind the singleflight key:
// read raw bytes, run the type-specific analyzer, validate, persist, and
// record the outcome in the chain of custody.
func (d *Dispatcher) invoke(ctx context.Context, rec *models.EvidenceRecord, analyzerVersion, promptVersion, modelID, fp string) (*models.UnifiedAnalysis, error) {
	variant, err := d.runAnalyzer(ctx, rec, modelID)
	if err != nil {
		if isDemotable(err) {
			d.recordFailure(rec.EvidenceId, err)
			return nil, nil
		}
		return nil, err
	}
	if variant == nil {
		d.recordFailure(rec.EvidenceId, fmt.Errorf("analyzer returned no result"))
		return nil, nil
	}

	analysis := &models.UnifiedAnalysis{
		SchemaVersion:     models.SchemaVersion,
		EvidenceId:        rec.EvidenceId,
		EvidenceType:      rec.EvidenceType,
		AnalysisTimestamp: time.Now().UTC(),
		ModelUsed:         modelID,
		Fingerprint:       fp,
		FileMetadata:      rec.FileMetadata,
		CaseIds:           rec.CaseIds,
	}
	switch v := variant.(type) {
	case *models.DocumentAnalysis:
		analysis.Document = v
	case *models.EmailThreadAnalysis:
		analysis.Email = v
	case *models.ImageAnalysis:
		analysis.Image = v
	}

	if err := d.store.PutAnalysis(rec.EvidenceId, analysis, "analyzer-dispatch", time.Now()); err != nil {
		return nil, err
	}
	return analysis, nil
}

func (d *Dispatcher) runAnalyzer(ctx context.Context, rec *models.EvidenceRecord, modelID string) (any, error) {
	rawPath, err := d.store.RawPath(rec.EvidenceId)
	if err != nil {
		return nil, err
	}

	switch rec.EvidenceType {
	case models.EvidenceTypeDocument:
		data, err := os.ReadFile(rawPath)
		if err != nil {
			return nil, evterrors.IngestionError(err, "failed to read raw document bytes")
		}
		return d.document.Analyze(ctx, modelID, d.cfg.Core.CaseType, string(data))

	case models.EvidenceTypeEmail:
		data, err := os.ReadFile(rawPath)
		if err != nil {
			return nil, evterrors.IngestionError(err, "failed to read raw email bytes")
		}
		msg, err := ParseEML(data)
		if err != nil {
			return nil, err
		}
		return d.email.Analyze(ctx, modelID, []EmailMessage{*msg})

	case models.EvidenceTypeImage:
		data, err := os.ReadFile(rawPath)
		if err != nil {
			return nil, evterrors.IngestionError(err, "failed to read raw image bytes")
		}
		side := ExtractSideData(data)
		if exifJSON, err := marshalSideData(side.EXIF); err == nil {
			_ = d.store.WriteDerived(rec.EvidenceId, "exif.json", exifJSON)
		}
		if side.PHash != "" {
			_ = d.store.WriteDerived(rec.EvidenceId, "phash.txt", []byte(side.PHash))
		}
		return d.image.Analyze(ctx, modelID, data, rec.FileMetadata.MimeType)

	case models.EvidenceTypePDF:
		return d.runPDF(ctx, rec, modelID)

	default:
		return nil, nil
	}
}

// runPDF treats the PDF as a sequence of already-rasterized page images
// found under its derived directory as rasterized_page_<n>.png, numbered
// from 1 with no gaps (produced by an
// external rasterization step — out of scope per §1/§4.7). Absent any
// such raster, this logs a skip identical to the video/audio no-op rather
// than fabricating OCR.
func (d *Dispatcher) runPDF(ctx context.Context, rec *models.EvidenceRecord, modelID string) (any, error) {
	pages := d.findRasterPages(rec.EvidenceId)
	if len(pages) == 0 {
		d.logger.Info("pdf has no rasterized page available, skipping image analysis", "evidence_id", rec.EvidenceId)
		return nil, nil
	}

	results := make([]*models.ImageAnalysis, 0, len(pages))
	for _, path := range pages {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		side := ExtractSideData(data)
		if exifJSON, err := marshalSideData(side.EXIF); err == nil {
			_ = d.store.WriteDerived(rec.EvidenceId, "exif.json", exifJSON)
		}
		page, err := d.image.Analyze(ctx, modelID, data, "image/png")
		if err != nil {
			if isDemotable(err) {
				continue
			}
			return nil, err
		}
		results = append(results, page)
	}
	return AnalyzePages(results), nil
}

func (d *Dispatcher) findRasterPages(id models.EvidenceId) []string {
	var pages []string
	for n := 1; ; n++ {
		path := d.store.DerivedPath(id, fmt.Sprintf("rasterized_page_%d.png", n))
		if _, err := os.Stat(path); err != nil {
			break
		}
		pages = append(pages, path)
	}
	return pages
}

func (d *Dispatcher) recordFailure(id models.EvidenceId, cause error) {
	d.logger.Warn("analysis failed, no record written", "evidence_id", id, "error", cause)
	event := models.ChainEvent{
		Timestamp:   time.Now().UTC(),
		Actor:       "analyzer-dispatch",
		Action:      models.ActionFailedAnalyze,
		Description: cause.Error(),
	}
	if err := d.store.AppendEvent(id, event); err != nil {
		d.logger.Error("failed to record failed_analysis event", "evidence_id", id, "error", err)
	}
}

// isDemotable reports whether an error's kind demotes to the
// failed_analysis reporting path rather than halting the run: a refusal,
// or a provider_transient error that has exhausted its retry budget
// (§7 Propagation).
func isDemotable(err error) bool {
	e, ok := err.(*evterrors.Error)
	if !ok {
		return false
	}
	return e.Type == evterrors.ErrorTypeProviderRefusal || e.Type == evterrors.ErrorTypeProviderTransient
}

func marshalSideData(m map[string]string) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
