// Package mcp exposes a read-only Model Context Protocol tool surface over
// finished case artifacts (catalog, correlation, summary) so an external
// AI assistant can query a case without touching the evidence store
// directly. There is no write path here: every tool only reads through
// internal/store's existing accessors, never PutAnalysis/Associate/etc.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

// NewServer builds the MCP server and registers its three read-only
// tools: list_case_evidence, get_case_correlation, get_case_summary.
func NewServer(st *store.Store) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "evidence-toolkit", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_case_evidence",
		Description: "List the evidence ids associated with a case, with their type and filename.",
	}, listCaseEvidence(st))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_case_correlation",
		Description: "Fetch the correlation analysis (entities, timeline, gaps, legal patterns) for a case.",
	}, getCaseCorrelation(st))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_case_summary",
		Description: "Fetch the forensic summary and risk assessment for a case.",
	}, getCaseSummary(st))

	return server
}

// CaseIDArgs is the shared single-field input schema for all three tools:
// every finished-case query starts from a case id.
type CaseIDArgs struct {
	CaseID string `json:"case_id" jsonschema:"the case id to query"`
}

func listCaseEvidence(st *store.Store) func(context.Context, *mcp.CallToolRequest, CaseIDArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CaseIDArgs) (*mcp.CallToolResult, any, error) {
		ids, err := st.ListCase(args.CaseID)
		if err != nil {
			return nil, nil, err
		}

		lines := make([]string, 0, len(ids))
		for _, id := range ids {
			rec, err := st.GetMetadata(id)
			if err != nil {
				return nil, nil, err
			}
			if rec == nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s\t%s\t%s", rec.EvidenceId, rec.EvidenceType, rec.FileMetadata.Filename))
		}

		return textResult(strings.Join(lines, "\n")), ids, nil
	}
}

func getCaseCorrelation(st *store.Store) func(context.Context, *mcp.CallToolRequest, CaseIDArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CaseIDArgs) (*mcp.CallToolResult, any, error) {
		var analysis models.CorrelationAnalysis
		if err := readCaseArtifact(st.CaseCorrelationPath(args.CaseID), &analysis); err != nil {
			return nil, nil, err
		}
		data, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return nil, nil, err
		}
		return textResult(string(data)), analysis, nil
	}
}

func getCaseSummary(st *store.Store) func(context.Context, *mcp.CallToolRequest, CaseIDArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CaseIDArgs) (*mcp.CallToolResult, any, error) {
		var summary models.CaseSummary
		if err := readCaseArtifact(st.CaseSummaryPath(args.CaseID), &summary); err != nil {
			return nil, nil, err
		}
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return nil, nil, err
		}
		return textResult(string(data)), summary, nil
	}
}

func readCaseArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no artifact at %s — run the corresponding pipeline stage for this case first", path)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
