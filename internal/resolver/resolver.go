// Package resolver turns catalogue designations such as "M31" or "NGC7822"
// into J2000 coordinates and a SIMBAD object type.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/yetanothergithubaccount/ObsPi/internal/metrics"
)

// Source names reported in ObjectInfo.Source and the lookup metric.
const (
	SourceMemo   = "memo"
	SourceSeed   = "seed"
	SourceDisk   = "disk"
	SourceRemote = "sesame"
)

// Lookup resolves a single designation remotely.
type Lookup interface {
	Fetch(ctx context.Context, name string) (ObjectInfo, error)
}

// Resolver chains an in-memory memo, the embedded seed table, the disk
// cache and a remote lookup, in that order.
type Resolver struct {
	memo   *gocache.Cache
	seed   map[string]ObjectInfo
	disk   *DiskCache
	remote Lookup
	logger *slog.Logger

	diskOnce sync.Once
	diskMu   sync.RWMutex
	diskMap  map[string]ObjectInfo
}

// New creates a Resolver. remote may be nil for offline use; unknown names
// then fail with ErrNotFound.
func New(disk *DiskCache, remote Lookup, memoTTL time.Duration, logger *slog.Logger) (*Resolver, error) {
	seed, err := loadSeed()
	if err != nil {
		return nil, err
	}
	if disk == nil {
		disk = NewDiskCache("")
	}
	if memoTTL <= 0 {
		memoTTL = 24 * time.Hour
	}
	return &Resolver{
		memo:   gocache.New(memoTTL, memoTTL*2),
		seed:   seed,
		disk:   disk,
		remote: remote,
		logger: logger,
	}, nil
}

// normalize trims whitespace; designations are matched case-sensitively
// apart from that, as Sesame does.
func normalize(name string) string {
	return strings.TrimSpace(name)
}

// Resolve returns the J2000 position and type of name.
func (r *Resolver) Resolve(ctx context.Context, name string) (ObjectInfo, error) {
	name = normalize(name)
	if name == "" {
		return ObjectInfo{}, fmt.Errorf("empty name: %w", ErrNotFound)
	}

	if v, ok := r.memo.Get(name); ok {
		metrics.ResolverLookups.WithLabelValues(SourceMemo).Inc()
		info := v.(ObjectInfo)
		info.Source = SourceMemo
		return info, nil
	}

	if info, ok := r.seed[name]; ok {
		return r.remember(info, SourceSeed), nil
	}

	if info, ok := r.fromDisk(name); ok {
		return r.remember(info, SourceDisk), nil
	}

	if r.remote == nil {
		return ObjectInfo{}, fmt.Errorf("resolving %q offline: %w", name, ErrNotFound)
	}

	info, err := r.remote.Fetch(ctx, name)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.Name = name

	if err := r.disk.Add(info); err != nil {
		r.logger.Warn("failed to persist resolved object", "name", name, "error", err)
	} else {
		r.diskMu.Lock()
		if r.diskMap != nil {
			r.diskMap[name] = info
		}
		r.diskMu.Unlock()
	}

	return r.remember(info, SourceRemote), nil
}

func (r *Resolver) remember(info ObjectInfo, source string) ObjectInfo {
	metrics.ResolverLookups.WithLabelValues(source).Inc()
	info.Source = ""
	r.memo.Set(info.Name, info, gocache.DefaultExpiration)
	info.Source = source
	return info
}

// fromDisk loads the disk cache on first use and consults it afterwards.
func (r *Resolver) fromDisk(name string) (ObjectInfo, bool) {
	r.diskOnce.Do(func() {
		m, err := r.disk.Load()
		if err != nil {
			r.logger.Warn("object cache unreadable, ignoring", "path", r.disk.Path(), "error", err)
			m = make(map[string]ObjectInfo)
		}
		r.diskMu.Lock()
		r.diskMap = m
		r.diskMu.Unlock()
	})

	r.diskMu.RLock()
	defer r.diskMu.RUnlock()
	info, ok := r.diskMap[name]
	return info, ok
}

// Known reports how many names are answerable without the network.
func (r *Resolver) Known() int {
	r.fromDisk("")
	r.diskMu.RLock()
	defer r.diskMu.RUnlock()
	n := len(r.seed)
	for name := range r.diskMap {
		if _, dup := r.seed[name]; !dup {
			n++
		}
	}
	return n
}
