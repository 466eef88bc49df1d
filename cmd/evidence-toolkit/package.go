package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/pkgassembler"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

var packageCaseID string

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Assemble a validated case package directory",
	RunE:  runPackage,
}

func init() {
	packageCmd.Flags().StringVar(&packageCaseID, "case", "", "case id to package (required)")
	packageCmd.MarkFlagRequired("case")
}

func runPackage(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := pkgassembler.Assemble(st, packageCaseID); err != nil {
		return err
	}

	fmt.Printf("package written to %s\n", st.CasePackageDir(packageCaseID))
	return nil
}
