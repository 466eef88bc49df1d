// Package pkgassembler implements the Package Assembler (C11): it copies
// validated, case-scoped artifacts into a case package directory and
// refuses to build if any referenced artifact fails schema validation
// (SPEC_FULL.md §4.10, invariant 3).
package pkgassembler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

// Catalog is the package's top-level manifest: which evidence items and
// artifacts a package contains.
type Catalog struct {
	CaseId      string             `json:"case_id"`
	EvidenceIds []models.EvidenceId `json:"evidence_ids"`
	HasCorrelation bool            `json:"has_correlation"`
	HasSummary     bool            `json:"has_summary"`
}

// Assemble builds <case>/package/ from already-persisted artifacts: one
// analysis.v1.json per evidence item, the case's correlation.v1.json and
// summary.v1.json if present, and a catalog.json index. Every artifact is
// re-validated before being copied; a single invalid artifact aborts the
// whole build with no partial package directory left behind (invariant 3,
// scenario S6).
func Assemble(st *store.Store, caseID string) error {
	ids, err := st.ListCase(caseID)
	if err != nil {
		return err
	}

	analyses := make(map[models.EvidenceId]*models.UnifiedAnalysis, len(ids))
	for _, id := range ids {
		a, err := st.GetAnalysis(id)
		if err != nil {
			return evterrors.SchemaError(err, fmt.Sprintf("evidence %s failed validation; package not built", id))
		}
		if a == nil {
			continue
		}
		analyses[id] = a
	}

	correlation, hasCorrelation, err := readValidated[models.CorrelationAnalysis](st.CaseCorrelationPath(caseID))
	if err != nil {
		return err
	}
	summary, hasSummary, err := readValidated[models.CaseSummary](st.CaseSummaryPath(caseID))
	if err != nil {
		return err
	}

	pkgDir := st.CasePackageDir(caseID)
	stagingDir := pkgDir + ".staging"
	if err := os.RemoveAll(stagingDir); err != nil {
		return evterrors.IntegrityError(err, "failed to clear package staging directory")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return evterrors.IntegrityError(err, "failed to create package staging directory")
	}

	catalogIDs := make([]models.EvidenceId, 0, len(analyses))
	for id, a := range analyses {
		if err := writeJSON(filepath.Join(stagingDir, fmt.Sprintf("analysis_%s.v1.json", id)), a); err != nil {
			return err
		}
		catalogIDs = append(catalogIDs, id)
	}
	if hasCorrelation {
		if err := writeJSON(filepath.Join(stagingDir, "correlation.v1.json"), correlation); err != nil {
			return err
		}
	}
	if hasSummary {
		if err := writeJSON(filepath.Join(stagingDir, "summary.v1.json"), summary); err != nil {
			return err
		}
	}

	catalog := Catalog{
		CaseId:         caseID,
		EvidenceIds:    catalogIDs,
		HasCorrelation: hasCorrelation,
		HasSummary:     hasSummary,
	}
	if err := writeJSON(filepath.Join(stagingDir, "catalog.json"), catalog); err != nil {
		return err
	}

	if err := os.RemoveAll(pkgDir); err != nil {
		return evterrors.IntegrityError(err, "failed to remove prior package directory")
	}
	if err := os.Rename(stagingDir, pkgDir); err != nil {
		return evterrors.IntegrityError(err, "failed to publish package directory")
	}
	return nil
}

// readValidated reads and schema-validates a case-level artifact. A
// missing file is not an error — correlation/summary may not have run yet
// — but a present-and-invalid file aborts the package build.
func readValidated[T any](path string) (*T, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, evterrors.IntegrityError(err, "failed to read case artifact")
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, evterrors.SchemaError(err, "case artifact is not valid JSON; package not built")
	}
	if err := models.Validate(&v); err != nil {
		return nil, false, evterrors.SchemaError(err, "case artifact failed schema validation; package not built")
	}
	return &v, true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return evterrors.SchemaError(err, "failed to marshal package artifact")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return evterrors.IntegrityError(err, "failed to write package artifact")
	}
	if err := os.Rename(tmp, path); err != nil {
		return evterrors.IntegrityError(err, "failed to rename package artifact into place")
	}
	return nil
}
