package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"foodpillory/internal/facility"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Source yields one snapshot of records. String identifies the snapshot it
// reads and keys the loader's cache.
type Source interface {
	fmt.Stringer
	Load(ctx context.Context) (facility.Dataset, error)
}

// FileSource reads a snapshot from a csv file written by WriteFile.
type FileSource string

func (f FileSource) Load(ctx context.Context) (facility.Dataset, error) {
	return ReadFile(string(f))
}

func (f FileSource) String() string {
	return "file:" + string(f)
}

// StoreSource reads a snapshot from a sqlite mirror.
type StoreSource struct {
	Store    Store
	Snapshot facility.Snapshot
}

func (s StoreSource) Load(ctx context.Context) (facility.Dataset, error) {
	return s.Store.Load(ctx, s.Snapshot)
}

func (s StoreSource) String() string {
	return "sqlite:" + string(s.Snapshot)
}

// Loader unions its sources and keeps the result until Invalidate is
// called or ttl passes. It is safe for concurrent use.
type Loader struct {
	sources []Source
	key     string
	cache   *expirable.LRU[string, facility.Dataset]
}

// NewLoader caches the union of sources without expiry.
func NewLoader(sources ...Source) *Loader {
	return NewExpiringLoader(0, sources...)
}

// NewExpiringLoader is NewLoader, except that a loaded dataset is read again
// once it is older than ttl.
func NewExpiringLoader(ttl time.Duration, sources ...Source) *Loader {
	names := make([]string, len(sources))
	for i, source := range sources {
		names[i] = source.String()
	}
	return &Loader{
		sources: sources,
		key:     strings.Join(names, "+"),
		cache:   expirable.NewLRU[string, facility.Dataset](1, nil, ttl),
	}
}

func (l *Loader) Dataset(ctx context.Context) (facility.Dataset, error) {
	cached, hit := l.cache.Get(l.key)
	if hit {
		return cached, nil
	}

	datasets := make([]facility.Dataset, len(l.sources))
	for i, source := range l.sources {
		ds, err := source.Load(ctx)
		if err != nil {
			return nil, err
		}
		datasets[i] = ds
	}
	combined := facility.Union(datasets...)

	slog.DebugContext(ctx, "loaded dataset", "sources", l.key, "records", len(combined))

	l.cache.Add(l.key, combined)
	return combined, nil
}

// Invalidate drops the cached dataset, the next call to Dataset reads the
// sources again.
func (l *Loader) Invalidate() {
	l.cache.Purge()
}
