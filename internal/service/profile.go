package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
)

var profileTracer = otel.Tracer("service/profile")

// ProfileService reads profiles for request-time decisions (price tier, admin and delivery guards).
// Reads go through a TTL cache; auth-change delivery reads the store directly.
type ProfileService struct {
	profiles port.ProfileStore
	cache    port.Cache[*domain.UserProfile]
	metrics  *observability.Metrics
}

// NewProfileService creates a cached profile reader.
func NewProfileService(profiles port.ProfileStore, cache port.Cache[*domain.UserProfile], metrics *observability.Metrics) *ProfileService {
	return &ProfileService{profiles: profiles, cache: cache, metrics: metrics}
}

// GetProfile returns the profile of uid, or nil when none exists. Absence is not cached.
func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.GetProfile")
	defer span.End()

	cacheKey := fmt.Sprintf("profile:%s", uid)
	if p, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("profile")
		return p, nil
	}
	s.metrics.IncrCacheMiss("profile")

	p, err := s.profiles.GetProfile(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("profile fetch: %w", err)
	}
	if p != nil {
		s.cache.Set(cacheKey, p)
	}
	return p, nil
}
