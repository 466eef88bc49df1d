// Package models owns every record type that crosses a component boundary
// in the evidence pipeline. No other package may define a type that is
// written to or read from the evidence store.
package models

import "time"

// SchemaVersion is carried by every top-level persisted record so that a
// future format change can be detected on read instead of silently
// misparsed.
const SchemaVersion = 1

// EvidenceId is the lowercase hex SHA-256 of the original file's bytes.
// It is the sole primary key for raw evidence.
type EvidenceId string

// EvidenceType classifies a file for analyzer routing (C2).
type EvidenceType string

const (
	EvidenceTypeDocument EvidenceType = "document"
	EvidenceTypeEmail    EvidenceType = "email"
	EvidenceTypeImage    EvidenceType = "image"
	EvidenceTypePDF      EvidenceType = "pdf"
	EvidenceTypeVideo    EvidenceType = "video"
	EvidenceTypeAudio    EvidenceType = "audio"
	EvidenceTypeOther    EvidenceType = "other"
)

// ChainAction is the closed set of actions that may appear in a ChainEvent.
type ChainAction string

const (
	ActionIngest        ChainAction = "ingest"
	ActionAnalyze       ChainAction = "analyze"
	ActionExport        ChainAction = "export"
	ActionReanalyze     ChainAction = "reanalyze"
	ActionCaseAssociate ChainAction = "case_associate"
	ActionFailedAnalyze ChainAction = "failed_analysis"
)

// FileMetadata is created at ingest and never mutated afterward.
type FileMetadata struct {
	Path        string    `json:"path" validate:"required"`
	Filename    string    `json:"filename" validate:"required"`
	SizeBytes   int64     `json:"size_bytes" validate:"gte=0"`
	MimeType    string    `json:"mime_type" validate:"required"`
	Extension   string    `json:"extension"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
	SHA256      string    `json:"sha256" validate:"required,len=64,hexadecimal"`
}

// ChainEvent is one append-only entry in an evidence item's chain of custody.
type ChainEvent struct {
	Timestamp   time.Time   `json:"timestamp" validate:"required"`
	Actor       string      `json:"actor" validate:"required"`
	Action      ChainAction `json:"action" validate:"required,oneof=ingest analyze export reanalyze case_associate failed_analysis"`
	Description string      `json:"description"`
	EvidenceId  EvidenceId  `json:"evidence_id" validate:"required"`
}

// EvidenceRecord is the store's bookkeeping record for one physical artifact.
// case_ids is multi-valued: one artifact can belong to several cases.
type EvidenceRecord struct {
	EvidenceId   EvidenceId     `json:"evidence_id" validate:"required"`
	EvidenceType EvidenceType   `json:"evidence_type" validate:"required,oneof=document email image pdf video audio other"`
	FileMetadata FileMetadata   `json:"file_metadata" validate:"required"`
	CaseIds      []string       `json:"case_ids"`
	Chain        []ChainEvent   `json:"chain"`
}

// HasCase reports whether case_id is already associated with the record.
func (r *EvidenceRecord) HasCase(caseID string) bool {
	for _, id := range r.CaseIds {
		if id == caseID {
			return true
		}
	}
	return false
}

// LastEventTime returns the zero time if the chain is empty.
func (r *EvidenceRecord) LastEventTime() time.Time {
	if len(r.Chain) == 0 {
		return time.Time{}
	}
	return r.Chain[len(r.Chain)-1].Timestamp
}
