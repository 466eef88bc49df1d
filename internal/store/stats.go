package store

import (
	"os"
	"path/filepath"
)

// Stats summarizes the population of a store without validating any
// individual record — it is a cheap directory census for operators,
// not a schema check.
type Stats struct {
	RawCount     int
	DerivedCount int
	CaseCount    int
	IndexPath    string
}

// Stats walks the raw/, derived/, and cases/ trees and counts their
// immediate children. It tolerates a missing directory (treats it as
// zero) so a freshly-Open'd empty store reports cleanly.
func (s *Store) Stats() (Stats, error) {
	st := Stats{IndexPath: filepath.Join(s.base, "index.db")}

	rawCount, err := countDirs(filepath.Join(s.base, "raw"))
	if err != nil {
		return Stats{}, err
	}
	st.RawCount = rawCount

	derivedCount, err := countDirs(filepath.Join(s.base, "derived"))
	if err != nil {
		return Stats{}, err
	}
	st.DerivedCount = derivedCount

	caseCount, err := countDirs(filepath.Join(s.base, "cases"))
	if err != nil {
		return Stats{}, err
	}
	st.CaseCount = caseCount

	return st, nil
}

func countDirs(path string) (int, error) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			n++
		}
	}
	return n, nil
}
