package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

func TestStatsEmptyStoreReportsZero(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, 0, stats.RawCount)
	require.Equal(t, 0, stats.DerivedCount)
	require.Equal(t, 0, stats.CaseCount)
	require.True(t, strings.HasSuffix(stats.IndexPath, "index.db"))
}

func TestStatsCountsRawAndCaseDirectories(t *testing.T) {
	s := openTestStore(t)

	id, err := s.PutRaw(strings.NewReader("hello world"), ".txt")
	require.NoError(t, err)

	meta := models.FileMetadata{
		Path: "hello.txt", Filename: "hello.txt", SizeBytes: 11,
		MimeType: "text/plain", Extension: ".txt", SHA256: string(id),
	}
	_, err = s.Ingest(id, meta, models.EvidenceTypeDocument, "tester", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Associate(id, "case-001", "tester", time.Now()))

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.RawCount)
	require.Equal(t, 1, stats.CaseCount)
}
