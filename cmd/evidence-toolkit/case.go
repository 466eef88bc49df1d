package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Inspect case manifests",
}

var caseListCmd = &cobra.Command{
	Use:   "list [case-id]",
	Short: "List the evidence ids associated with a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaseList,
}

var caseShowCmd = &cobra.Command{
	Use:   "show [case-id] [evidence-id]",
	Short: "Show one evidence item's metadata and chain of custody",
	Args:  cobra.ExactArgs(2),
	RunE:  runCaseShow,
}

func init() {
	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseShowCmd)
}

func runCaseList(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	ids, err := st.ListCase(args[0])
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runCaseShow(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	caseID, evidenceIDArg := args[0], args[1]

	rec, err := st.GetMetadata(models.EvidenceId(evidenceIDArg))
	if err != nil {
		return err
	}
	if rec == nil || !rec.HasCase(caseID) {
		return fmt.Errorf("evidence %s is not associated with case %s", evidenceIDArg, caseID)
	}

	fmt.Printf("evidence_id: %s\n", rec.EvidenceId)
	fmt.Printf("evidence_type: %s\n", rec.EvidenceType)
	fmt.Printf("filename: %s\n", rec.FileMetadata.Filename)
	fmt.Println("chain:")
	for _, ev := range rec.Chain {
		fmt.Printf("  %s  %-16s  %s\n", ev.Timestamp.Format("2006-01-02T15:04:05Z"), ev.Action, ev.Actor)
	}
	return nil
}
