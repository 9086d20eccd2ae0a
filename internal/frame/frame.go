// Package frame answers "where is this object in my sky at this instant".
package frame

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/resolver"
	"github.com/yetanothergithubaccount/ObsPi/internal/transform"
)

// Provider returns the horizontal coordinates of a named object for an
// observer at an instant. Unknown names yield an error wrapping
// resolver.ErrNotFound.
type Provider interface {
	AltAz(ctx context.Context, name string, t time.Time, loc transform.Location) (transform.Horizontal, error)
}

// Resolver looks up catalogue positions.
type Resolver interface {
	Resolve(ctx context.Context, name string) (resolver.ObjectInfo, error)
}

// Sky is the Provider backed by a name resolver and the J2000 to
// horizontal transform.
type Sky struct {
	resolver Resolver
	logger   *slog.Logger

	mu     sync.RWMutex
	coords map[string]transform.Equatorial
}

// NewSky creates a Sky.
func NewSky(r Resolver, logger *slog.Logger) *Sky {
	return &Sky{
		resolver: r,
		logger:   logger,
		coords:   make(map[string]transform.Equatorial),
	}
}

// position returns the J2000 coordinates of name, resolving at most once
// per name (double-checked locking).
func (s *Sky) position(ctx context.Context, name string) (transform.Equatorial, error) {
	s.mu.RLock()
	eq, ok := s.coords[name]
	s.mu.RUnlock()
	if ok {
		return eq, nil
	}

	info, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		return transform.Equatorial{}, fmt.Errorf("resolving %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if eq, ok := s.coords[name]; ok {
		return eq, nil
	}
	eq = transform.Equatorial{RA: info.RA, Dec: info.Dec}
	s.coords[name] = eq

	s.logger.Debug("object position cached",
		"name", name,
		"ra", info.RA,
		"dec", info.Dec,
		"type", info.Type,
	)
	return eq, nil
}

// AltAz implements Provider.
func (s *Sky) AltAz(ctx context.Context, name string, t time.Time, loc transform.Location) (transform.Horizontal, error) {
	if err := ctx.Err(); err != nil {
		return transform.Horizontal{}, err
	}
	eq, err := s.position(ctx, name)
	if err != nil {
		return transform.Horizontal{}, err
	}
	return transform.J2000ToHorizontal(eq, loc, t), nil
}

// Info returns the resolved catalogue entry for name.
func (s *Sky) Info(ctx context.Context, name string) (resolver.ObjectInfo, error) {
	return s.resolver.Resolve(ctx, name)
}

