package core

import (
	"context"
	"fmt"
	"sync"

	"recordcore/pkg/domain"
)

// CachingLookup resolves lookup display labels through a data service and
// memoizes results per (table, display field, id). It is used to pre-warm
// lookup default labels before a synthesized buffer is published.
type CachingLookup struct {
	data domain.DataService

	mu    sync.RWMutex
	cache map[string]string
}

// NewCachingLookup constructs a label resolver over the data service.
func NewCachingLookup(data domain.DataService) *CachingLookup {
	return &CachingLookup{data: data, cache: make(map[string]string)}
}

// ResolveLabel implements domain.LookupService.
func (l *CachingLookup) ResolveLabel(ctx context.Context, field, lookupTable, displayField, id string) (string, error) {
	key := cacheKey(lookupTable, displayField, id)
	l.mu.RLock()
	label, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return label, nil
	}

	result, err := l.data.Read(ctx, lookupTable, domain.ReadQuery{
		Fields:     []string{displayField},
		Page:       1,
		MaxResults: 1,
		ID:         id,
	})
	if err != nil {
		return "", fmt.Errorf("read lookup %s %s: %w", lookupTable, id, err)
	}
	if !result.Succeeded || len(result.Results) == 0 {
		return "", fmt.Errorf("lookup %s %s not found", lookupTable, id)
	}
	label, _ = result.Results[0][displayField].(string)

	l.mu.Lock()
	l.cache[key] = label
	l.mu.Unlock()
	return label, nil
}

// CachedLabel returns a previously resolved label without touching the data
// service.
func (l *CachingLookup) CachedLabel(lookupTable, displayField, id string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	label, ok := l.cache[cacheKey(lookupTable, displayField, id)]
	return label, ok
}

func cacheKey(lookupTable, displayField, id string) string {
	return lookupTable + "\x00" + displayField + "\x00" + id
}
