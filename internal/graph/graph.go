// Package graph mirrors a case's CorrelationAnalysis into Neo4j for
// exploratory querying (SPEC_FULL.md §6.2, internal/graph, optional). The
// canonical record remains the JSON store (internal/store); this package
// is a queryable mirror that a consistency check can verify but never
// authoritative, and never silently repairs a mismatch.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// Client wraps a Neo4j driver scoped to one database, following the
// operational-side logging convention (logrus, not slog).
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *logrus.Logger
	database string
}

// NewClient connects to uri and verifies connectivity immediately — a
// correlation-graph mirror that silently can't reach its database is
// worse than one that fails fast at startup.
func NewClient(ctx context.Context, uri, user, password string) (*Client, error) {
	return NewClientWithDatabase(ctx, uri, user, password, "neo4j")
}

func NewClientWithDatabase(ctx context.Context, uri, user, password, database string) (*Client, error) {
	if uri == "" || user == "" {
		return nil, evterrors.ConfigurationError("neo4j uri/user missing")
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""),
		func(cfg *neo4j.Config) {
			cfg.MaxConnectionPoolSize = 50
			cfg.ConnectionAcquisitionTimeout = 60 * time.Second
			cfg.MaxConnectionLifetime = time.Hour
		})
	if err != nil {
		return nil, evterrors.ConfigurationErrorf("failed to create neo4j driver: %v", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, evterrors.ConfigurationErrorf("failed to connect to neo4j at %s: %v", uri, err)
	}

	logger := logrus.New()
	logger.WithFields(logrus.Fields{"uri": uri, "database": database}).Info("neo4j graph mirror connected")

	return &Client{driver: driver, logger: logger, database: database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// MirrorCase MERGEs the case's subgraph derived from analysis: a Case
// node, one Entity node per correlation record (MERGEd on name+type so
// repeated mirrors of the same case don't duplicate nodes), a MENTIONS
// edge per entity carrying occurrence_count, and one TimelineEvent node
// per timeline entry linked by HAS_EVENT. Nodes and edges from an earlier
// mirror that are absent from analysis are not removed.
func (c *Client) MirrorCase(ctx context.Context, analysis *models.CorrelationAnalysis) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `MERGE (c:Case {id: $id})`, map[string]any{"id": analysis.CaseId}); err != nil {
			return nil, err
		}

		for _, rec := range analysis.Correlations {
			_, err := tx.Run(ctx, `
				MATCH (c:Case {id: $case_id})
				MERGE (e:Entity {name: $name, type: $type})
				MERGE (c)-[m:MENTIONS]->(e)
				SET m.occurrence_count = $occurrence_count, m.confidence_average = $confidence_average
			`, map[string]any{
				"case_id":             analysis.CaseId,
				"name":                rec.EntityName,
				"type":                string(rec.EntityType),
				"occurrence_count":    int64(rec.OccurrenceCount),
				"confidence_average":  rec.ConfidenceAverage,
			})
			if err != nil {
				return nil, err
			}
		}

		for _, ev := range analysis.Timeline {
			_, err := tx.Run(ctx, `
				MATCH (c:Case {id: $case_id})
				MERGE (t:TimelineEvent {case_id: $case_id, evidence_id: $evidence_id, timestamp: $timestamp})
				SET t.event_type = $event_type, t.description = $description
				MERGE (c)-[:HAS_EVENT]->(t)
			`, map[string]any{
				"case_id":     analysis.CaseId,
				"evidence_id": string(ev.EvidenceId),
				"timestamp":   ev.Timestamp.Format(time.RFC3339),
				"event_type":  ev.EventType,
				"description": ev.Description,
			})
			if err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	if err != nil {
		return evterrors.IntegrityError(err, "failed to mirror case into neo4j")
	}

	c.logger.WithFields(logrus.Fields{
		"case_id":     analysis.CaseId,
		"entities":    len(analysis.Correlations),
		"timeline":    len(analysis.Timeline),
	}).Info("mirrored case into neo4j")
	return nil
}

// CheckConsistency compares the mirror's Entity/TimelineEvent node counts
// for a case against the canonical CorrelationAnalysis and raises an
// Integrity error on any mismatch. It never repairs — a mismatch means
// MirrorCase needs re-running or the mirror is stale, and only an
// operator should decide which.
func (c *Client) CheckConsistency(ctx context.Context, analysis *models.CorrelationAnalysis) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	entityCount, err := c.countMatches(ctx, session, `MATCH (:Case {id: $case_id})-[:MENTIONS]->(:Entity) RETURN count(*) AS n`, analysis.CaseId)
	if err != nil {
		return evterrors.IntegrityError(err, "failed to count mirrored entities")
	}
	eventCount, err := c.countMatches(ctx, session, `MATCH (:Case {id: $case_id})-[:HAS_EVENT]->(:TimelineEvent) RETURN count(*) AS n`, analysis.CaseId)
	if err != nil {
		return evterrors.IntegrityError(err, "failed to count mirrored timeline events")
	}

	wantEntities := len(analysis.Correlations)
	wantEvents := len(analysis.Timeline)
	if entityCount != wantEntities || eventCount != wantEvents {
		return evterrors.IntegrityError(
			fmt.Errorf("mirror mismatch: entities mirror=%d canonical=%d, events mirror=%d canonical=%d",
				entityCount, wantEntities, eventCount, wantEvents),
			"neo4j mirror diverged from the canonical correlation analysis",
		)
	}
	return nil
}

func (c *Client) countMatches(ctx context.Context, session neo4j.SessionWithContext, query string, caseID string) (int, error) {
	result, err := session.Run(ctx, query, map[string]any{"case_id": caseID})
	if err != nil {
		return 0, err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, err
	}
	n, ok := record.Get("n")
	if !ok {
		return 0, fmt.Errorf("count query returned no n")
	}
	count, ok := n.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected type for n: %T", n)
	}
	return int(count), nil
}
