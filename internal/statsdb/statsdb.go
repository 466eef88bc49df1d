// Package statsdb implements the optional secondary relational index
// described in SPEC_FULL.md §6.2: per-case evidence counts, analyzer
// outcomes, and timing, read by the `storage stats` CLI surface. The
// canonical Evidence Store remains the JSON-file layout in internal/store;
// this index is a queryable mirror, never authoritative, and nothing in
// the pipeline blocks on it being present or correct.
package statsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// Store wraps a sqlx.DB selected by the DSN's scheme: "postgres://" uses
// the pgx stdlib driver, "postgres-pq://" uses lib/pq (kept for
// deployments whose connection poolers only speak the older wire
// protocol lib/pq implements), anything else is treated as a SQLite file
// path.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *logrus.Logger
}

// Open connects to dsn, selecting a driver by scheme, and creates the
// stats schema if absent.
func Open(dsn string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	driverName, connStr := resolveDriver(dsn)
	if driverName == "sqlite3" {
		if dir := filepath.Dir(connStr); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create statsdb directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to statsdb (%s): %w", driverName, err)
	}

	s := &Store{db: db, driver: driverName, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init statsdb schema: %w", err)
	}

	logger.WithField("driver", driverName).Info("statsdb connected")
	return s, nil
}

func resolveDriver(dsn string) (driverName, connStr string) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "sqlite3", dsn
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return "pgx", dsn
	case "postgres-pq":
		return "postgres", "postgres://" + dsn[len("postgres-pq://"):]
	default:
		return "sqlite3", dsn
	}
}

func (s *Store) initSchema() error {
	// Cross-driver integer/timestamp types are kept to the lowest common
	// denominator (INTEGER/TEXT) so the same schema works unmodified
	// against sqlite3, pgx, and lib/pq.
	schema := `
	CREATE TABLE IF NOT EXISTS case_stats (
		case_id TEXT PRIMARY KEY,
		evidence_count INTEGER NOT NULL DEFAULT 0,
		analyzed_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		last_analyzed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS analyzer_outcomes (
		case_id TEXT NOT NULL,
		evidence_id TEXT NOT NULL,
		evidence_type TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		recorded_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Outcome is the closed set of per-item analyzer results statsdb records.
type Outcome string

const (
	OutcomeAnalyzed Outcome = "analyzed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeError    Outcome = "error"
)

// RecordOutcome appends one analyzer-dispatch result and upserts the
// case's running totals for one dispatched evidence item. No CLI
// subcommand calls it; `analyze` records batch totals with RecordCaseRun.
func (s *Store) RecordOutcome(ctx context.Context, caseID string, evidenceID models.EvidenceId, evidenceType models.EvidenceType, outcome Outcome, duration time.Duration) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO analyzer_outcomes (case_id, evidence_id, evidence_type, outcome, duration_ms, recorded_at)
		VALUES (:case_id, :evidence_id, :evidence_type, :outcome, :duration_ms, :recorded_at)
	`, map[string]any{
		"case_id":       caseID,
		"evidence_id":   string(evidenceID),
		"evidence_type": string(evidenceType),
		"outcome":       string(outcome),
		"duration_ms":   duration.Milliseconds(),
		"recorded_at":   now,
	})
	if err != nil {
		return fmt.Errorf("record analyzer outcome: %w", err)
	}

	analyzedDelta, errorDelta := 0, 0
	switch outcome {
	case OutcomeAnalyzed:
		analyzedDelta = 1
	case OutcomeError:
		errorDelta = 1
	}
	return s.upsertCaseStats(ctx, caseID, 1, analyzedDelta, errorDelta, now)
}

// RecordCaseRun upserts aggregate totals for one analyze run in a single
// call, for callers (the `analyze` CLI subcommand) that only have
// DispatchMany's batch-level RunReport rather than per-item timing.
func (s *Store) RecordCaseRun(ctx context.Context, caseID string, evidenceCount, analyzedCount, errorCount int) error {
	return s.upsertCaseStats(ctx, caseID, evidenceCount, analyzedCount, errorCount, time.Now().UTC().Format(time.RFC3339))
}

func (s *Store) upsertCaseStats(ctx context.Context, caseID string, evidenceDelta, analyzedDelta, errorDelta int, recordedAt string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT count(*) > 0 FROM case_stats WHERE case_id = ?`), caseID); err != nil {
		return fmt.Errorf("check case_stats existence: %w", err)
	}

	args := map[string]any{
		"case_id":  caseID,
		"evidence": evidenceDelta,
		"analyzed": analyzedDelta,
		"errors":   errorDelta,
		"recorded_at": recordedAt,
	}

	if !exists {
		_, err := s.db.NamedExecContext(ctx, `
			INSERT INTO case_stats (case_id, evidence_count, analyzed_count, error_count, last_analyzed_at)
			VALUES (:case_id, :evidence, :analyzed, :errors, :recorded_at)
		`, args)
		return err
	}

	_, err := s.db.NamedExecContext(ctx, `
		UPDATE case_stats SET
			evidence_count = evidence_count + :evidence,
			analyzed_count = analyzed_count + :analyzed,
			error_count = error_count + :errors,
			last_analyzed_at = :recorded_at
		WHERE case_id = :case_id
	`, args)
	return err
}

// CaseStats is the aggregate row read by the `storage stats` CLI surface.
type CaseStats struct {
	CaseId         string `db:"case_id"`
	EvidenceCount  int    `db:"evidence_count"`
	AnalyzedCount  int    `db:"analyzed_count"`
	ErrorCount     int    `db:"error_count"`
	LastAnalyzedAt string `db:"last_analyzed_at"`
}

// CaseStats returns the running totals for one case, or (CaseStats{}, false, nil)
// if the case has no recorded outcomes yet.
func (s *Store) CaseStats(ctx context.Context, caseID string) (CaseStats, bool, error) {
	var stats CaseStats
	err := s.db.GetContext(ctx, &stats, s.db.Rebind(`SELECT * FROM case_stats WHERE case_id = ?`), caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CaseStats{}, false, nil
		}
		return CaseStats{}, false, fmt.Errorf("query case_stats: %w", err)
	}
	return stats, true, nil
}
