package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/detect"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

var ingestCaseID string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest one or more files into the evidence store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCaseID, "case", "", "associate ingested evidence with this case id")
}

func runIngest(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Core.StorageRoot)
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	for _, path := range args {
		id, rec, err := ingestOne(st, path, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", path, err)
			logger.WithError(err).WithField("path", path).Warn("ingest failed")
			continue
		}
		if ingestCaseID != "" {
			if err := st.Associate(id, ingestCaseID, "cli", now); err != nil {
				fmt.Fprintf(os.Stderr, "associate %s with case %s failed: %v\n", path, ingestCaseID, err)
				continue
			}
		}
		fmt.Printf("%s -> %s (%s)\n", path, id, rec.EvidenceType)
	}
	return nil
}

func ingestOne(st *store.Store, path string, at time.Time) (models.EvidenceId, *models.EvidenceRecord, error) {
	evidenceType, mimeType, err := detect.Detect(path)
	if err != nil {
		return "", nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	id, err := st.PutRaw(f, filepath.Ext(path))
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}

	meta := models.FileMetadata{
		Path:       path,
		Filename:   filepath.Base(path),
		SizeBytes:  info.Size(),
		MimeType:   mimeType,
		Extension:  filepath.Ext(path),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
		SHA256:     string(id),
	}

	rec, err := st.Ingest(id, meta, evidenceType, "cli", at)
	if err != nil {
		return "", nil, err
	}
	return id, rec, nil
}
