// Package memory holds in-process implementations of the repository ports,
// used when no DATABASE_URL is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/ports"
)

type RequestStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*domain.PickupRequest
}

func NewRequestStore(requests ...*domain.PickupRequest) *RequestStore {
	s := &RequestStore{byID: make(map[string]*domain.PickupRequest)}
	for _, r := range requests {
		s.Put(r)
	}
	return s
}

// Put inserts or replaces a request.
func (s *RequestStore) Put(r *domain.PickupRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	c := *r
	s.byID[r.ID] = &c
}

func (s *RequestStore) ListRequests(_ context.Context, status domain.RequestStatus) ([]*domain.PickupRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PickupRequest, 0, len(s.order))
	for _, id := range s.order {
		r := s.byID[id]
		if status != "" && r.Status != status {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (s *RequestStore) GetRequests(_ context.Context, ids []string) (map[string]*domain.PickupRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.PickupRequest, len(ids))
	for _, id := range ids {
		if r, ok := s.byID[id]; ok {
			c := *r
			out[id] = &c
		}
	}
	return out, nil
}

func (s *RequestStore) UpdateRequestStatus(_ context.Context, ids []string, status domain.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			return fmt.Errorf("update request status %q: %w", id, ports.ErrNotFound)
		}
	}
	for _, id := range ids {
		s.byID[id].Status = status
	}
	return nil
}

func (s *RequestStore) TransitionRequestStatus(
	_ context.Context,
	ids []string,
	from []domain.RequestStatus,
	to domain.RequestStatus,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		r, ok := s.byID[id]
		if !ok {
			return fmt.Errorf("transition request status %q: %w", id, ports.ErrNotFound)
		}
		if !slices.Contains(from, r.Status) {
			return fmt.Errorf("transition request status %q: is %s: %w", id, r.Status, ports.ErrConflict)
		}
	}
	for _, id := range ids {
		s.byID[id].Status = to
	}
	return nil
}

// DisposalSiteStore keeps sites in insertion order, which is also the
// tie-break order used by site selection.
type DisposalSiteStore struct {
	mu    sync.RWMutex
	sites []*domain.DisposalSite
}

func NewDisposalSiteStore(sites ...*domain.DisposalSite) *DisposalSiteStore {
	s := &DisposalSiteStore{sites: make([]*domain.DisposalSite, 0, len(sites))}
	for _, site := range sites {
		s.sites = append(s.sites, site.Clone())
	}
	return s
}

func (s *DisposalSiteStore) ListDisposalSites(_ context.Context) ([]*domain.DisposalSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.DisposalSite, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, site.Clone())
	}
	return out, nil
}

func (s *DisposalSiteStore) GetDisposalSite(_ context.Context, id string) (*domain.DisposalSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, site := range s.sites {
		if site.ID == id {
			return site.Clone(), nil
		}
	}
	return nil, fmt.Errorf("get disposal site %q: %w", id, ports.ErrNotFound)
}

type RouteStore struct {
	mu     sync.RWMutex
	routes map[string]*domain.Route
}

func NewRouteStore() *RouteStore {
	return &RouteStore{routes: make(map[string]*domain.Route)}
}

func (s *RouteStore) SaveRoute(_ context.Context, route *domain.Route) error {
	if route.ID == "" {
		return fmt.Errorf("save route: id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route.ID] = route.Clone()
	return nil
}

func (s *RouteStore) GetRoute(_ context.Context, id string) (*domain.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, fmt.Errorf("get route %q: %w", id, ports.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *RouteStore) ListRoutes(_ context.Context, collectorID string) ([]*domain.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Route, 0, len(s.routes))
	for _, r := range s.routes {
		if collectorID != "" && r.CollectorID != collectorID {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ModifyRoute applies fn to a copy under the store lock and keeps the copy
// only when fn succeeds.
func (s *RouteStore) ModifyRoute(_ context.Context, id string, fn func(*domain.Route) error) (*domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, fmt.Errorf("modify route %q: %w", id, ports.ErrNotFound)
	}
	c := r.Clone()
	if err := fn(c); err != nil {
		return nil, err
	}
	s.routes[id] = c
	return c.Clone(), nil
}
