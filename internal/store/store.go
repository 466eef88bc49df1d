// Package store implements the content-addressed evidence store (C1):
// raw+derived layout, chain of custody, and case manifests, rooted at a
// configurable base path (SPEC_FULL.md §4.1).
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// Store is the evidence store rooted at Base. It is safe for concurrent
// use: writes to one evidence_id are serialized per-directory by an
// in-process mutex keyed on evidence_id; writes to different evidence_ids
// never block each other (SPEC_FULL.md §5 shared-resource policy).
type Store struct {
	base string
	db   *bolt.DB

	mu       sync.Mutex
	evidence map[models.EvidenceId]*sync.Mutex

	manifestMu sync.Mutex // serializes manifest read-modify-write across all cases
}

var bucketFingerprints = []byte("fingerprints")

// Open roots a Store at base, creating the directory skeleton and the
// fingerprint index (§4.1.1) if absent. A missing index.db is created
// empty; one that bbolt cannot open (corrupt, or still locked after 5
// seconds) makes Open fail with a Configuration error.
func Open(base string) (*Store, error) {
	for _, dir := range []string{"raw", "derived", "cases"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			return nil, evterrors.ConfigurationErrorf("failed to create %s: %v", dir, err)
		}
	}

	db, err := bolt.Open(filepath.Join(base, "index.db"), 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, evterrors.ConfigurationErrorf("failed to open fingerprint index: %v", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFingerprints)
		return err
	}); err != nil {
		db.Close()
		return nil, evterrors.ConfigurationErrorf("failed to initialize fingerprint index: %v", err)
	}

	return &Store{base: base, db: db, evidence: make(map[models.EvidenceId]*sync.Mutex)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lockFor(id models.EvidenceId) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.evidence[id]
	if !ok {
		l = &sync.Mutex{}
		s.evidence[id] = l
	}
	return l
}

func (s *Store) rawDir(id models.EvidenceId) string     { return filepath.Join(s.base, "raw", "sha256="+string(id)) }
func (s *Store) derivedDir(id models.EvidenceId) string  { return filepath.Join(s.base, "derived", "sha256="+string(id)) }
func (s *Store) caseDir(caseID string) string            { return filepath.Join(s.base, "cases", caseID) }

// PutRaw streams bytes, computes the SHA-256 evidence_id, and writes
// raw/sha256=<id>/original.<ext> via temp-file + rename. No-ops (returns
// the existing id) if the blob already exists — re-ingesting identical
// bytes is idempotent and preserves the existing chain.
func (s *Store) PutRaw(r io.Reader, ext string) (models.EvidenceId, error) {
	tmp, err := os.CreateTemp(s.base, "raw-*")
	if err != nil {
		return "", evterrors.IngestionError(err, "failed to create temp file for raw ingest")
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close()
		return "", evterrors.IngestionError(err, "failed to stream raw bytes")
	}
	if err := tmp.Close(); err != nil {
		return "", evterrors.IngestionError(err, "failed to close temp file")
	}

	id := models.EvidenceId(hex.EncodeToString(h.Sum(nil)))
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	dir := s.rawDir(id)
	if ext == "" {
		ext = "bin"
	}
	dest := filepath.Join(dir, "original."+ext)
	if _, err := os.Stat(dest); err == nil {
		return id, nil // idempotent: identical bytes already stored
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", evterrors.IngestionError(err, "failed to create raw directory")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", evterrors.IngestionError(err, "failed to finalize raw write")
	}
	return id, nil
}

// writeAtomic writes data to path via temp-file + rename in the same
// directory, guaranteeing a reader never observes a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// GetMetadata reads the evidence record's metadata + chain of custody.
func (s *Store) GetMetadata(id models.EvidenceId) (*models.EvidenceRecord, error) {
	path := filepath.Join(s.derivedDir(id), "metadata.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, evterrors.IntegrityError(err, "failed to read evidence metadata")
	}
	var rec models.EvidenceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, evterrors.IntegrityError(err, "evidence metadata is not valid JSON")
	}
	if err := models.Validate(&rec); err != nil {
		return nil, evterrors.IntegrityError(err, "evidence metadata failed schema validation")
	}
	return &rec, nil
}

func (s *Store) putMetadata(rec *models.EvidenceRecord) error {
	if err := models.Validate(rec); err != nil {
		return evterrors.SchemaError(err, "evidence record failed validation")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return evterrors.SchemaError(err, "failed to marshal evidence record")
	}
	return writeAtomic(filepath.Join(s.derivedDir(rec.EvidenceId), "metadata.json"), data)
}

// Ingest registers a freshly put_raw'd blob's metadata and appends the
// initial "ingest" ChainEvent. Call once per new evidence_id.
func (s *Store) Ingest(id models.EvidenceId, meta models.FileMetadata, evidenceType models.EvidenceType, actor string, at time.Time) (*models.EvidenceRecord, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec := &models.EvidenceRecord{
		EvidenceId:   id,
		EvidenceType: evidenceType,
		FileMetadata: meta,
		CaseIds:      []string{},
		Chain: []models.ChainEvent{{
			Timestamp:  at.UTC(),
			Actor:      actor,
			Action:     models.ActionIngest,
			EvidenceId: id,
		}},
	}
	if err := s.putMetadata(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Associate adds case_id to the evidence's manifest (multi-valued — one
// physical artifact can belong to multiple cases) and appends a
// case_associate ChainEvent. Fails if the evidence is unknown.
func (s *Store) Associate(id models.EvidenceId, caseID, actor string, at time.Time) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.GetMetadata(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return evterrors.IngestionError(nil, fmt.Sprintf("UNKNOWN_EVIDENCE: %s", id))
	}

	if !rec.HasCase(caseID) {
		rec.CaseIds = append(rec.CaseIds, caseID)
	}
	rec.Chain = append(rec.Chain, models.ChainEvent{
		Timestamp:  at.UTC(),
		Actor:      actor,
		Action:     models.ActionCaseAssociate,
		Description: caseID,
		EvidenceId: id,
	})
	if err := s.putMetadata(rec); err != nil {
		return err
	}

	return s.appendToManifest(caseID, id)
}

// AppendEvent appends a ChainEvent to an evidence item's custody ledger.
func (s *Store) AppendEvent(id models.EvidenceId, event models.ChainEvent) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.GetMetadata(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return evterrors.IngestionError(nil, fmt.Sprintf("UNKNOWN_EVIDENCE: %s", id))
	}
	if event.Timestamp.Before(rec.LastEventTime()) {
		event.Timestamp = rec.LastEventTime() // invariant 2: monotonic chain
	}
	event.EvidenceId = id
	rec.Chain = append(rec.Chain, event)
	return s.putMetadata(rec)
}

// GetAnalysis reads the current UnifiedAnalysis for an evidence item, or
// nil if none has been written yet.
func (s *Store) GetAnalysis(id models.EvidenceId) (*models.UnifiedAnalysis, error) {
	path := filepath.Join(s.derivedDir(id), "analysis.v1.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, evterrors.IntegrityError(err, "failed to read analysis record")
	}
	var analysis models.UnifiedAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, evterrors.IntegrityError(err, "analysis record is not valid JSON")
	}
	if err := models.Validate(&analysis); err != nil {
		return nil, evterrors.IntegrityError(err, "analysis record failed schema validation")
	}
	return &analysis, nil
}

// PutAnalysis validates and atomically writes a new UnifiedAnalysis, then
// appends an "analyze" (or "reanalyze", if one already existed) ChainEvent
// and records the fingerprint in the index.
func (s *Store) PutAnalysis(id models.EvidenceId, analysis *models.UnifiedAnalysis, actor string, at time.Time) error {
	if err := models.Validate(analysis); err != nil {
		return evterrors.SchemaError(err, "analysis failed validation; record not written")
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.GetAnalysis(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return evterrors.SchemaError(err, "failed to marshal analysis")
	}
	if err := writeAtomic(filepath.Join(s.derivedDir(id), "analysis.v1.json"), data); err != nil {
		return evterrors.IngestionError(err, "failed to write analysis record")
	}

	action := models.ActionAnalyze
	if existing != nil {
		action = models.ActionReanalyze
	}
	if err := s.indexFingerprint(analysis.Fingerprint, id); err != nil {
		return err
	}

	rec, err := s.GetMetadata(id)
	if err != nil {
		return err
	}
	if rec != nil {
		rec.Chain = append(rec.Chain, models.ChainEvent{
			Timestamp:  at.UTC(),
			Actor:      actor,
			Action:     action,
			EvidenceId: id,
		})
		return s.putMetadata(rec)
	}
	return nil
}

// LookupFingerprint reports whether an analysis with this fingerprint has
// already been materialized, per the §4.1.1 index. A miss here is not an
// error: Dispatch treats it as uncached and runs the analyzer again
// without reading analysis.v1.json, and PutAnalysis then records the
// fingerprint afresh.
func (s *Store) LookupFingerprint(fingerprint string) (models.EvidenceId, bool, error) {
	var id models.EvidenceId
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFingerprints)
		v := b.Get([]byte(fingerprint))
		if v != nil {
			id = models.EvidenceId(v)
			found = true
		}
		return nil
	})
	return id, found, err
}

func (s *Store) indexFingerprint(fingerprint string, id models.EvidenceId) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFingerprints)
		return b.Put([]byte(fingerprint), []byte(id))
	})
}

// manifest is the ordered list of evidence_ids belonging to a case.
type manifest struct {
	EvidenceIds []models.EvidenceId `json:"evidence_ids"`
}

func (s *Store) manifestPath(caseID string) string {
	return filepath.Join(s.caseDir(caseID), "manifest.json")
}

func (s *Store) readManifest(caseID string) (*manifest, error) {
	data, err := os.ReadFile(s.manifestPath(caseID))
	if os.IsNotExist(err) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, evterrors.IntegrityError(err, "failed to read case manifest")
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, evterrors.IntegrityError(err, "case manifest is not valid JSON")
	}
	return &m, nil
}

func (s *Store) appendToManifest(caseID string, id models.EvidenceId) error {
	s.manifestMu.Lock()
	defer s.manifestMu.Unlock()

	m, err := s.readManifest(caseID)
	if err != nil {
		return err
	}
	for _, existing := range m.EvidenceIds {
		if existing == id {
			return nil
		}
	}
	m.EvidenceIds = append(m.EvidenceIds, id)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return evterrors.SchemaError(err, "failed to marshal case manifest")
	}
	return writeAtomic(s.manifestPath(caseID), data)
}

// ListCase returns the ordered evidence_ids belonging to a case.
func (s *Store) ListCase(caseID string) ([]models.EvidenceId, error) {
	m, err := s.readManifest(caseID)
	if err != nil {
		return nil, err
	}
	return m.EvidenceIds, nil
}

// IterCaseAnalyses returns every UnifiedAnalysis for a case's evidence, in
// manifest order. A lazy generator isn't idiomatic here without iterators;
// callers wanting bounded memory should page ListCase themselves — case
// sizes in this domain (tens to low hundreds of items) don't warrant it.
func (s *Store) IterCaseAnalyses(caseID string) ([]models.UnifiedAnalysis, error) {
	ids, err := s.ListCase(caseID)
	if err != nil {
		return nil, err
	}

	out := make([]models.UnifiedAnalysis, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAnalysis(id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

// RawPath returns the path to an evidence item's raw blob, for components
// (C7 image analyzer) that need the bytes directly.
func (s *Store) RawPath(id models.EvidenceId) (string, error) {
	dir := s.rawDir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", evterrors.IngestionError(err, "raw blob directory not found")
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", evterrors.IngestionError(nil, "raw blob directory is empty")
}

// DerivedPath returns the path to a named file under an evidence item's
// derived directory (e.g. "exif.json", "phash.txt").
func (s *Store) DerivedPath(id models.EvidenceId, name string) string {
	return filepath.Join(s.derivedDir(id), name)
}

// WriteDerived atomically writes an auxiliary derived file (EXIF, phash).
func (s *Store) WriteDerived(id models.EvidenceId, name string, data []byte) error {
	return writeAtomic(s.DerivedPath(id, name), data)
}

// CaseCorrelationPath and CaseSummaryPath expose where C8/C10 persist their
// outputs, so package assembly (C11) knows where to read from.
func (s *Store) CaseCorrelationPath(caseID string) string {
	return filepath.Join(s.caseDir(caseID), "correlation.v1.json")
}

func (s *Store) CaseSummaryPath(caseID string) string {
	return filepath.Join(s.caseDir(caseID), "summary.v1.json")
}

func (s *Store) CasePackageDir(caseID string) string {
	return filepath.Join(s.caseDir(caseID), "package")
}

// PutCaseArtifact validates and atomically writes a case-level JSON
// artifact (correlation.v1.json or summary.v1.json).
func (s *Store) PutCaseArtifact(path string, v any) error {
	if err := models.Validate(v); err != nil {
		return evterrors.SchemaError(err, "case artifact failed validation")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return evterrors.SchemaError(err, "failed to marshal case artifact")
	}
	return writeAtomic(path, data)
}
