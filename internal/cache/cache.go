// Package cache implements the Evidence Store read-path cache (domain-stack
// addition, SPEC_FULL.md §4.1.1/§6.2): an in-memory TTL cache in front of
// get_analysis/iter_case_analyses reads, so a correlate/summarize/package run over
// the same case does not repeatedly decode the same JSON off disk.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/store"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
)

// Cache wraps a *store.Store with a short-lived read-through cache. It
// never caches writes: PutAnalysis/Associate/etc. still go straight to the
// store, and a cached read becomes stale for up to defaultExpiration —
// acceptable for a single analyze→correlate→summarize→package run, not
// safe across long-lived processes that expect to observe concurrent
// writers immediately.
type Cache struct {
	st     *store.Store
	mem    *gocache.Cache
	logger *logrus.Logger
}

// New builds a Cache over st. logger may be nil, in which case a
// logrus.New() default is used.
func New(st *store.Store, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
	}
	return &Cache{
		st:     st,
		mem:    gocache.New(defaultExpiration, cleanupInterval),
		logger: logger,
	}
}

// IterCaseAnalyses returns the case's analyses, serving from the in-memory
// cache when a prior call within the TTL window already loaded this case.
func (c *Cache) IterCaseAnalyses(caseID string) ([]models.UnifiedAnalysis, error) {
	key := "case_analyses:" + caseID
	if cached, found := c.mem.Get(key); found {
		c.logger.WithField("case_id", caseID).Debug("cache hit: case analyses")
		return cached.([]models.UnifiedAnalysis), nil
	}

	analyses, err := c.st.IterCaseAnalyses(caseID)
	if err != nil {
		return nil, err
	}

	c.mem.Set(key, analyses, gocache.DefaultExpiration)
	c.logger.WithField("case_id", caseID).WithField("count", len(analyses)).Debug("cache miss: case analyses loaded")
	return analyses, nil
}

// GetAnalysis returns one evidence item's analysis, serving from cache
// when available.
func (c *Cache) GetAnalysis(id models.EvidenceId) (*models.UnifiedAnalysis, error) {
	key := "analysis:" + string(id)
	if cached, found := c.mem.Get(key); found {
		return cached.(*models.UnifiedAnalysis), nil
	}

	analysis, err := c.st.GetAnalysis(id)
	if err != nil {
		return nil, err
	}
	if analysis != nil {
		c.mem.Set(key, analysis, gocache.DefaultExpiration)
	}
	return analysis, nil
}

// Invalidate drops the cached entry for id and then flushes the whole
// cache, case-level and per-item entries alike, since a write to one
// evidence item can change the analyses list for every case it belongs
// to. No store write path calls it; callers that mutate an analysis after
// caching it must call it themselves.
func (c *Cache) Invalidate(id models.EvidenceId) {
	c.mem.Delete("analysis:" + string(id))
	c.mem.Flush()
}
