package store

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/quaddb/sail/pkg/metrics"
	"github.com/quaddb/sail/pkg/rdf"
)

// statisticsCacheSize bounds the number of distinct pattern shapes
// whose cardinality estimate is cached at once.
const statisticsCacheSize = 4096

// CachingStatistics estimates pattern cardinality by delegating a
// full Statements scan to an underlying Source and caching the count,
// keyed by the pattern's bound shape. It is meant for the query
// optimizer's join-ordering decisions, not transactional reads, so a
// stale estimate after a missed Invalidate is a correctness risk only
// to plan quality, never to the data returned.
type CachingStatistics struct {
	mu     sync.Mutex
	source Source
	cache  *lru.Cache[rdf.StatementKey, int64]
}

// NewCachingStatistics returns a Statistics backed by source.
func NewCachingStatistics(source Source) *CachingStatistics {
	cache, err := lru.New[rdf.StatementKey, int64](statisticsCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// statisticsCacheSize never is.
		panic(err)
	}
	return &CachingStatistics{source: source, cache: cache}
}

func patternCacheKey(p rdf.Pattern) rdf.StatementKey {
	return rdf.StatementKey{
		Subject:   shapeKey(p.Bound&rdf.BoundSubject != 0, p.Subject),
		Predicate: shapeKey(p.Bound&rdf.BoundPredicate != 0, p.Predicate),
		Object:    shapeKey(p.Bound&rdf.BoundObject != 0, p.Object),
		Context:   contextsShapeKey(p.Contexts),
	}
}

func shapeKey(bound bool, v interface{}) string {
	if !bound {
		return "*"
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return "?"
}

func contextsShapeKey(contexts []rdf.Resource) string {
	switch {
	case contexts == nil:
		return "*"
	case len(contexts) == 0:
		return "(default)"
	default:
		return "named"
	}
}

// Cardinality returns the number of statements matching pattern,
// computing and caching it on a miss.
func (s *CachingStatistics) Cardinality(pattern rdf.Pattern) (int64, error) {
	key := patternCacheKey(pattern)

	s.mu.Lock()
	if n, ok := s.cache.Get(key); ok {
		s.mu.Unlock()
		metrics.StatisticsCacheHitsTotal.Inc()
		return n, nil
	}
	s.mu.Unlock()
	metrics.StatisticsCacheMissesTotal.Inc()

	it, err := s.source.Statements(pattern)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var count int64
	for {
		_, ok, err := it.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		count++
	}

	s.mu.Lock()
	s.cache.Add(key, count)
	s.mu.Unlock()
	return count, nil
}

// Invalidate drops every cached estimate. Called after any Apply to
// the source this statistics object estimates.
func (s *CachingStatistics) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}
